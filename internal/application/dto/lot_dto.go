package dto

import (
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ConsumeRequest body para POST /api/stock/consume (venta u otro consumo FIFO).
type ConsumeRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Kind      string          `json:"kind,omitempty" validate:"omitempty,oneof=sale inventory-correction"`
	SaleID    string          `json:"sale_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// TransformSourceRequest par (producto origen, cantidad).
type TransformSourceRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// TransformRequest body para POST /api/transformations (1→1 o n→1).
type TransformRequest struct {
	Sources              []TransformSourceRequest `json:"sources" validate:"required,min=1,dive"`
	DestinationProductID string                   `json:"destination_product_id" validate:"required"`
	ProducedQuantity     decimal.Decimal          `json:"produced_quantity" validate:"gt=0"`
	SourceType           string                   `json:"source_type,omitempty" validate:"omitempty,oneof=transformation recipe"`
	SessionID            string                   `json:"session_id,omitempty"`
}

// ReconcileRequest body para POST /api/reconciliations.
type ReconcileRequest struct {
	ProductID     string          `json:"product_id" validate:"required"`
	CountedWeight decimal.Decimal `json:"counted_weight" validate:"gte=0"`
	SessionID     string          `json:"session_id,omitempty"`
	CountDate     *time.Time      `json:"count_date,omitempty"`
}

// PurchaseLineRequest body para PUT /api/purchases/:purchaseId/lines/:lineId.
type PurchaseLineRequest struct {
	ProductID  string            `json:"product_id" validate:"required"`
	Received   bool              `json:"received"`
	WeightKg   decimal.Decimal   `json:"weight_kg" validate:"gte=0"`
	UnitCost   decimal.Decimal   `json:"unit_cost" validate:"gte=0"`
	ReceivedAt *time.Time        `json:"received_at,omitempty"`
	Provenance entity.Provenance `json:"provenance"`
}

// LotResponse representación pública de un lote.
type LotResponse struct {
	ID              string                    `json:"id"`
	ProductID       string                    `json:"product_id"`
	SourceType      string                    `json:"source_type"`
	InitialWeight   decimal.Decimal           `json:"initial_weight"`
	RemainingWeight decimal.Decimal           `json:"remaining_weight"`
	UnitCost        decimal.Decimal           `json:"unit_cost"`
	CreatedAt       time.Time                 `json:"created_at"`
	Closed          bool                      `json:"closed"`
	ClosedAt        *time.Time                `json:"closed_at,omitempty"`
	Provenance      entity.Provenance         `json:"provenance"`
	PurchaseID      string                    `json:"purchase_id,omitempty"`
	PurchaseLineID  string                    `json:"purchase_line_id,omitempty"`
	Composition     []entity.CompositionEntry `json:"composition,omitempty"`
}

// MovementResponse representación pública de un movimiento del libro.
type MovementResponse struct {
	ID                   string                 `json:"id"`
	TransactionID        string                 `json:"transaction_id"`
	LotID                string                 `json:"lot_id"`
	ProductID            string                 `json:"product_id"`
	Kind                 string                 `json:"kind"`
	SignedQuantity       decimal.Decimal        `json:"signed_quantity"`
	UnitCostSnapshot     decimal.Decimal        `json:"unit_cost_snapshot"`
	TotalCost            decimal.Decimal        `json:"total_cost"`
	RemainingWeightAfter decimal.Decimal        `json:"remaining_weight_after"`
	Timestamp            time.Time              `json:"timestamp"`
	Context              entity.MovementContext `json:"context"`
}

// StockSummaryResponse vista de valoración por producto.
type StockSummaryResponse struct {
	ProductID         string          `json:"product_id"`
	OpenLots          []LotResponse   `json:"open_lots"`
	TheoreticalWeight decimal.Decimal `json:"theoretical_weight"`
	WeightedUnitCost  decimal.Decimal `json:"weighted_unit_cost"`
}

// ConsumeResponse resultado de un consumo FIFO.
type ConsumeResponse struct {
	TransactionID string             `json:"transaction_id"`
	Consumed      decimal.Decimal    `json:"consumed"`
	TotalCost     decimal.Decimal    `json:"total_cost"`
	Shortfall     decimal.Decimal    `json:"shortfall"`
	Movements     []MovementResponse `json:"movements"`
}

// TransformResponse resultado de una transformación.
type TransformResponse struct {
	TransactionID string             `json:"transaction_id"`
	Lot           LotResponse        `json:"lot"`
	TotalCost     decimal.Decimal    `json:"total_cost"`
	Movements     []MovementResponse `json:"movements"`
}

// ReconcileResponse resultado de una conciliación de inventario.
type ReconcileResponse struct {
	TransactionID     string             `json:"transaction_id,omitempty"`
	ProductID         string             `json:"product_id"`
	NoCorrection      bool               `json:"no_correction"`
	TheoreticalWeight decimal.Decimal    `json:"theoretical_weight"`
	CountedWeight     decimal.Decimal    `json:"counted_weight"`
	Shortfall         decimal.Decimal    `json:"shortfall"`
	Gain              decimal.Decimal    `json:"gain"`
	Uncovered         decimal.Decimal    `json:"uncovered"`
	UnitCostSnapshot  decimal.Decimal    `json:"unit_cost_snapshot"`
	Movements         []MovementResponse `json:"movements"`
}

// LotSyncResponse resultado de sincronizar una línea de compra.
type LotSyncResponse struct {
	Action           string           `json:"action"`
	Lot              *LotResponse     `json:"lot,omitempty"`
	WeightedUnitCost *decimal.Decimal `json:"weighted_unit_cost,omitempty"`
	OpenWeight       *decimal.Decimal `json:"open_weight,omitempty"`
}

// LotVerifyResponse resultado de reproducir el libro de un lote.
type LotVerifyResponse struct {
	LotID           string          `json:"lot_id"`
	RemainingWeight decimal.Decimal `json:"remaining_weight"`
	ReplayedWeight  decimal.Decimal `json:"replayed_weight"`
	Consistent      bool            `json:"consistent"`
	Movements       int             `json:"movements"`
}

// ToLotResponse convierte la entidad a su representación pública.
func ToLotResponse(l *entity.Lot) LotResponse {
	return LotResponse{
		ID:              l.ID,
		ProductID:       l.ProductID,
		SourceType:      l.SourceType,
		InitialWeight:   l.InitialWeight,
		RemainingWeight: l.RemainingWeight,
		UnitCost:        l.UnitCost,
		CreatedAt:       l.CreatedAt,
		Closed:          l.Closed,
		ClosedAt:        l.ClosedAt,
		Provenance:      l.Provenance,
		PurchaseID:      l.PurchaseID,
		PurchaseLineID:  l.PurchaseLineID,
		Composition:     l.Composition,
	}
}

// ToMovementResponses convierte una lista de movimientos.
func ToMovementResponses(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementResponse{
			ID:                   m.ID,
			TransactionID:        m.TransactionID,
			LotID:                m.LotID,
			ProductID:            m.ProductID,
			Kind:                 m.Kind,
			SignedQuantity:       m.SignedQuantity,
			UnitCostSnapshot:     m.UnitCostSnapshot,
			TotalCost:            m.TotalCost,
			RemainingWeightAfter: m.RemainingWeightAfter,
			Timestamp:            m.Timestamp,
			Context:              m.Context,
		})
	}
	return out
}
