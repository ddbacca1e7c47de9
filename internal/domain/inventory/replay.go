package inventory

import (
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReplayRemaining reconstruye el peso restante de un lote a partir de su libro de movimientos.
// El movimiento transformation-in es el registro de origen de un lote derivado y ya está
// reflejado en InitialWeight, por eso solo se suman los consumos.
func ReplayRemaining(lot *entity.Lot, movements []*entity.StockMovement) decimal.Decimal {
	remaining := lot.InitialWeight
	for _, m := range movements {
		if m.LotID != lot.ID || m.Kind == entity.MovementKindTransformationIn {
			continue
		}
		remaining = remaining.Add(m.SignedQuantity)
	}
	return remaining
}

// ReplayMatches indica si el libro reproduce exactamente el estado actual del lote.
func ReplayMatches(lot *entity.Lot, movements []*entity.StockMovement) bool {
	return ReplayRemaining(lot, movements).Equal(lot.RemainingWeight)
}
