package inventory

import (
	"context"

	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no se confirma nada: lotes y libro quedan exactamente como antes.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}

// EventPublisher publica eventos de dominio tras el commit (mejor esfuerzo).
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}
