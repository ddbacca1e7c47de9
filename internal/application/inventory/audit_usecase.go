package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/application/dto"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

// AuditUseCase consultas de solo lectura para las vistas de trazabilidad.
type AuditUseCase struct {
	lotRepo repository.LotRepository
	movRepo repository.StockMovementRepository
}

// NewAuditUseCase construye el caso de uso con repositorios atados al pool.
func NewAuditUseCase(lotRepo repository.LotRepository, movRepo repository.StockMovementRepository) *AuditUseCase {
	return &AuditUseCase{lotRepo: lotRepo, movRepo: movRepo}
}

// GetLot devuelve un lote o domain.ErrNotFound.
func (uc *AuditUseCase) GetLot(ctx context.Context, lotID string) (*entity.Lot, error) {
	if lotID == "" {
		return nil, fmt.Errorf("%w: lot_id requerido", domain.ErrInvalidInput)
	}
	lot, err := uc.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

// LotHistory movimientos de un lote en [from, to], orden cronológico.
func (uc *AuditUseCase) LotHistory(ctx context.Context, lotID string, from, to *time.Time) ([]*entity.StockMovement, error) {
	if _, err := uc.GetLot(ctx, lotID); err != nil {
		return nil, err
	}
	return uc.movRepo.ListByLot(ctx, lotID, from, to)
}

// ProductHistory movimientos de un producto en [from, to], más recientes primero.
func (uc *AuditUseCase) ProductHistory(ctx context.Context, productID string, from, to *time.Time, page dto.PageRequest) ([]*entity.StockMovement, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	page.DefaultPage()
	return uc.movRepo.ListByProduct(ctx, productID, from, to, page.Limit, page.Offset)
}

// VerifyLot reproduce el libro del lote y compara con su peso restante.
func (uc *AuditUseCase) VerifyLot(ctx context.Context, lotID string) (*dto.LotVerifyResponse, error) {
	lot, err := uc.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	movs, err := uc.movRepo.ListByLot(ctx, lotID, nil, nil)
	if err != nil {
		return nil, err
	}
	replayed := inventory.ReplayRemaining(lot, movs)
	return &dto.LotVerifyResponse{
		LotID:           lot.ID,
		RemainingWeight: lot.RemainingWeight,
		ReplayedWeight:  replayed,
		Consistent:      inventory.ReplayMatches(lot, movs),
		Movements:       len(movs),
	}, nil
}
