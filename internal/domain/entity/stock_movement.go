package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de lotes.
const (
	MovementKindSale                = "sale"
	MovementKindInventoryCorrection = "inventory-correction"
	MovementKindTransformationOut   = "transformation-out"
	MovementKindTransformationIn    = "transformation-in"
)

// MovementContext referencias opcionales que dan contexto a un movimiento.
type MovementContext struct {
	SessionID        string `json:"session_id,omitempty"`
	SaleID           string `json:"sale_id,omitempty"`
	TransformationID string `json:"transformation_id,omitempty"`
	Actor            string `json:"actor,omitempty"`
}

// StockMovement entrada inmutable del libro: un cambio de peso sobre un lote.
// El libro es append-only; nunca se actualiza ni se borra un movimiento.
type StockMovement struct {
	ID                   string
	TransactionID        string // agrupa los movimientos de una misma operación
	LotID                string
	ProductID            string
	Kind                 string
	SignedQuantity       decimal.Decimal // negativo = consumo, positivo = producción
	UnitCostSnapshot     decimal.Decimal
	TotalCost            decimal.Decimal // |SignedQuantity| * UnitCostSnapshot; en transformation-in, costo de los orígenes
	RemainingWeightAfter decimal.Decimal
	Timestamp            time.Time
	Context              MovementContext
}

// FitsStorage indica si cantidades y costos caben en la escala persistida.
func (m *StockMovement) FitsStorage() bool {
	return FitsScale(m.SignedQuantity, WeightScale) &&
		FitsScale(m.RemainingWeightAfter, WeightScale) &&
		FitsScale(m.UnitCostSnapshot, CostScale) &&
		FitsScale(m.TotalCost, AmountScale)
}

// IsStrictKind indica si el tipo de consumo exige stock completo (todo o nada).
func IsStrictKind(kind string) bool {
	return kind == MovementKindSale || kind == MovementKindTransformationOut
}

// IsConsumptionKind indica si el tipo es un consumo que pasa por el motor FIFO.
func IsConsumptionKind(kind string) bool {
	switch kind {
	case MovementKindSale, MovementKindTransformationOut, MovementKindInventoryCorrection:
		return true
	}
	return false
}
