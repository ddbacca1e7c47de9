package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
)

// StockMovementRepository puerto del libro de movimientos. Solo admite altas (append-only).
type StockMovementRepository interface {
	Append(ctx context.Context, movement *entity.StockMovement) error
	// ListByLot devuelve el historial de un lote en orden cronológico ascendente.
	ListByLot(ctx context.Context, lotID string, from, to *time.Time) ([]*entity.StockMovement, error)
	// ListByProduct devuelve movimientos de un producto, más recientes primero.
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
}
