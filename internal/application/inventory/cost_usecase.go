package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Pescaderia-api/internal/application/dto"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

// CostUseCase agregador de costo (PMA) y vista de valoración por producto.
// Solo lectura y sin caché: se recalcula en cada llamada sobre el estado actual de los lotes.
type CostUseCase struct {
	lotRepo repository.LotRepository
}

// NewCostUseCase construye el caso de uso. lotRepo debe estar atado al pool, no a una tx.
func NewCostUseCase(lotRepo repository.LotRepository) *CostUseCase {
	return &CostUseCase{lotRepo: lotRepo}
}

// WeightedAverageCost devuelve el peso abierto total y el costo promedio ponderado del producto.
func (uc *CostUseCase) WeightedAverageCost(ctx context.Context, productID string) (inventory.WeightedCost, error) {
	if productID == "" {
		return inventory.WeightedCost{}, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	return weightedCost(ctx, uc.lotRepo, productID)
}

// StockSummary devuelve lotes abiertos, peso teórico y PMA del producto.
func (uc *CostUseCase) StockSummary(ctx context.Context, productID string) (*dto.StockSummaryResponse, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	lots, err := uc.lotRepo.ListOpenByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	wc, err := weightedCostFrom(ctx, uc.lotRepo, productID, lots)
	if err != nil {
		return nil, err
	}

	out := &dto.StockSummaryResponse{
		ProductID:         productID,
		OpenLots:          make([]dto.LotResponse, 0, len(lots)),
		TheoreticalWeight: inventory.TheoreticalWeight(lots),
		WeightedUnitCost:  wc.UnitCost,
	}
	for _, l := range lots {
		out.OpenLots = append(out.OpenLots, dto.ToLotResponse(l))
	}
	return out, nil
}

// weightedCost calcula el PMA con el repositorio dado (pool o tx).
// Solo consulta el último lote cerrado si no hay peso abierto.
func weightedCost(ctx context.Context, lotRepo repository.LotRepository, productID string) (inventory.WeightedCost, error) {
	lots, err := lotRepo.ListOpenByProduct(ctx, productID)
	if err != nil {
		return inventory.WeightedCost{}, err
	}
	return weightedCostFrom(ctx, lotRepo, productID, lots)
}

// weightedCostFrom calcula el PMA sobre lotes ya cargados.
func weightedCostFrom(ctx context.Context, lotRepo repository.LotRepository, productID string, lots []*entity.Lot) (inventory.WeightedCost, error) {
	wc := inventory.WeightedAverage(lots, nil)
	if wc.TotalOpenWeight.IsPositive() {
		return wc, nil
	}
	lastClosed, err := lotRepo.LastClosedByProduct(ctx, productID)
	if err != nil {
		return inventory.WeightedCost{}, err
	}
	return inventory.WeightedAverage(nil, lastClosed), nil
}
