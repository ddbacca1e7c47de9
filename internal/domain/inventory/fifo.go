package inventory

import (
	"sort"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Allocation cantidad tomada de un lote concreto.
type Allocation struct {
	Lot   *entity.Lot
	Taken decimal.Decimal
}

// FIFOPlan reparto de una cantidad pedida sobre los lotes abiertos, del más antiguo al más reciente.
type FIFOPlan struct {
	Allocations []Allocation
	Covered     decimal.Decimal // cantidad cubierta por los lotes
	Shortfall   decimal.Decimal // cantidad pedida que no se pudo cubrir
}

// Satisfied indica si la cantidad pedida quedó totalmente cubierta.
func (p FIFOPlan) Satisfied() bool {
	return p.Shortfall.IsZero()
}

// TotalCost Σ tomado·costo unitario del lote.
func (p FIFOPlan) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Taken.Mul(a.Lot.UnitCost))
	}
	return total
}

// SortFIFO ordena los lotes por CreatedAt ascendente; empates por ID ascendente.
func SortFIFO(lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].ID < lots[j].ID
	})
}

// PlanFIFO calcula qué tomar de cada lote para cubrir qty. No modifica los lotes.
// Los lotes cerrados se ignoran aunque su peso restante sea positivo.
func PlanFIFO(lots []*entity.Lot, qty decimal.Decimal) FIFOPlan {
	ordered := make([]*entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.IsOpen() {
			ordered = append(ordered, l)
		}
	}
	SortFIFO(ordered)

	needed := qty
	plan := FIFOPlan{Covered: decimal.Zero}
	for _, l := range ordered {
		if needed.LessThanOrEqual(decimal.Zero) {
			break
		}
		taken := decimal.Min(l.RemainingWeight, needed)
		plan.Allocations = append(plan.Allocations, Allocation{Lot: l, Taken: taken})
		plan.Covered = plan.Covered.Add(taken)
		needed = needed.Sub(taken)
	}
	if needed.GreaterThan(decimal.Zero) {
		plan.Shortfall = needed
	} else {
		plan.Shortfall = decimal.Zero
	}
	return plan
}
