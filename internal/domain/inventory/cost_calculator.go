package inventory

import (
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// WeightedCost resultado del costo promedio ponderado (PMA) de un producto.
type WeightedCost struct {
	TotalOpenWeight decimal.Decimal
	UnitCost        decimal.Decimal
}

// WeightedAverage calcula Σ(restante·costo) / Σ(restante) sobre los lotes abiertos.
// Si no hay peso abierto usa el costo del último lote cerrado (lastClosed) y si tampoco existe, 0.
func WeightedAverage(lots []*entity.Lot, lastClosed *entity.Lot) WeightedCost {
	weight := decimal.Zero
	value := decimal.Zero
	for _, l := range lots {
		if !l.IsOpen() {
			continue
		}
		weight = weight.Add(l.RemainingWeight)
		value = value.Add(l.RemainingWeight.Mul(l.UnitCost))
	}
	if weight.GreaterThan(decimal.Zero) {
		return WeightedCost{TotalOpenWeight: weight, UnitCost: value.Div(weight)}
	}
	if lastClosed != nil {
		return WeightedCost{TotalOpenWeight: decimal.Zero, UnitCost: lastClosed.UnitCost}
	}
	return WeightedCost{TotalOpenWeight: decimal.Zero, UnitCost: decimal.Zero}
}

// TheoreticalWeight suma el peso restante de los lotes abiertos.
func TheoreticalWeight(lots []*entity.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		if l.IsOpen() {
			total = total.Add(l.RemainingWeight)
		}
	}
	return total
}
