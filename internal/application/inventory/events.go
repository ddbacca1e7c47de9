package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/Pescaderia-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// Tipos de evento publicados por el motor de lotes.
const (
	EventLotCreated     = "lots.lot.created"
	EventLotDeleted     = "lots.lot.deleted"
	EventStockConsumed  = "lots.stock.consumed"
	EventStockCorrected = "lots.stock.corrected"
)

// LotCreatedEvent payload de lots.lot.created.
type LotCreatedEvent struct {
	LotID      string          `json:"lot_id"`
	ProductID  string          `json:"product_id"`
	SourceType string          `json:"source_type"`
	Weight     decimal.Decimal `json:"weight"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	CreatedAt  time.Time       `json:"created_at"`
	// PMA del producto tras la recepción; solo en lotes de compra.
	WeightedUnitCost *decimal.Decimal `json:"weighted_unit_cost,omitempty"`
	OpenWeight       *decimal.Decimal `json:"open_weight,omitempty"`
}

// LotDeletedEvent payload de lots.lot.deleted.
type LotDeletedEvent struct {
	LotID          string `json:"lot_id"`
	ProductID      string `json:"product_id"`
	PurchaseID     string `json:"purchase_id"`
	PurchaseLineID string `json:"purchase_line_id"`
}

// StockConsumedEvent payload de lots.stock.consumed y lots.stock.corrected.
type StockConsumedEvent struct {
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Kind          string          `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

// publish envía el evento si hay publicador; un fallo solo se registra porque el commit ya ocurrió.
func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, eventType string, data interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, eventType, data); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("publicar evento")
	}
}
