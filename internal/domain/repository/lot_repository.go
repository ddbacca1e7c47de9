package repository

import (
	"context"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes (DIP).
// Dentro de una transacción, ListOpenByProduct bloquea las filas devueltas.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	GetByPurchaseLine(ctx context.Context, purchaseID, lineID string) (*entity.Lot, error)
	// ListOpenByProduct devuelve los lotes abiertos ordenados por CreatedAt, ID ascendente.
	ListOpenByProduct(ctx context.Context, productID string) ([]*entity.Lot, error)
	// LastClosedByProduct devuelve el lote cerrado más reciente o nil.
	LastClosedByProduct(ctx context.Context, productID string) (*entity.Lot, error)
	// UpdateRemaining persiste peso restante y cierre con compare-and-swap sobre Version.
	// Devuelve domain.ErrConflict si otra transacción modificó el lote; incrementa lot.Version.
	UpdateRemaining(ctx context.Context, lot *entity.Lot) error
	// Replace reescribe peso, costo y trazabilidad de un lote aún no consumido (sincronización de compras).
	Replace(ctx context.Context, lot *entity.Lot) error
	Delete(ctx context.Context, id string) error
}
