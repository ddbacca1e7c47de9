package inventory_test

import (
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
)

// Lotes abiertos [10 kg @ 30, 5 kg @ 45] → PMA = (300 + 225) / 15 = 35.
func TestWeightedAverage_LotesAbiertos(t *testing.T) {
	lots := []*entity.Lot{
		newLot("A", "10", "30", t0),
		newLot("B", "5", "45", t0.Add(time.Hour)),
	}

	wc := inventory.WeightedAverage(lots, nil)

	assertDecimal(t, "15", wc.TotalOpenWeight)
	assertDecimal(t, "35", wc.UnitCost)
}

func TestWeightedAverage_SinStockUsaUltimoCerrado(t *testing.T) {
	closed := newLot("Z", "8", "27.5", t0)
	closed.Take(d("8"), t0.Add(time.Hour))

	wc := inventory.WeightedAverage(nil, closed)
	assertDecimal(t, "0", wc.TotalOpenWeight)
	assertDecimal(t, "27.5", wc.UnitCost)

	wc = inventory.WeightedAverage(nil, nil)
	assertDecimal(t, "0", wc.UnitCost)
}

func TestWeightedAverage_IgnoraCerrados(t *testing.T) {
	corrupt := newLot("A", "100", "1", t0)
	corrupt.Closed = true

	wc := inventory.WeightedAverage([]*entity.Lot{corrupt, newLot("B", "2", "50", t0)}, nil)

	assertDecimal(t, "2", wc.TotalOpenWeight)
	assertDecimal(t, "50", wc.UnitCost)
}

func TestTheoreticalWeight(t *testing.T) {
	lots := []*entity.Lot{
		newLot("A", "60", "10", t0),
		newLot("B", "40", "12", t0.Add(time.Hour)),
	}
	assertDecimal(t, "100", inventory.TheoreticalWeight(lots))
}

func TestCostCalculator(t *testing.T) {
	tests := []struct {
		name                              string
		stock, cost, entrada, costEntrada string
		want                              string
	}{
		{"mezcla", "10", "30", "5", "45", "35"},
		{"sin stock previo", "0", "0", "5", "45", "45"},
		{"todo cero", "0", "0", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inventory.CostCalculator(d(tt.stock), d(tt.cost), d(tt.entrada), d(tt.costEntrada))
			assertDecimal(t, tt.want, got)
		})
	}
}

// [10 kg @ 2.00, 5 kg @ 3.00] → (10·2 + 5·3) / 15 = 2.333…
func TestWeightedAverage_Periodico(t *testing.T) {
	lots := []*entity.Lot{
		newLot("A", "10", "2.00", t0),
		newLot("B", "5", "3.00", t0.Add(time.Hour)),
	}

	wc := inventory.WeightedAverage(lots, nil)

	assert.True(t, wc.UnitCost.Mul(d("15")).Round(8).Equal(d("35")))
	assert.Equal(t, "2.33", wc.UnitCost.StringFixed(2))
}
