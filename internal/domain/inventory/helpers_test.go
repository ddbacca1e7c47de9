package inventory_test

import (
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"esperado %s, obtenido %s", want, got.String()}, msgAndArgs...)...)
}

func newLot(id, remaining, cost string, createdAt time.Time) *entity.Lot {
	return &entity.Lot{
		ID:              id,
		ProductID:       "merlu",
		SourceType:      entity.LotSourcePurchase,
		InitialWeight:   d(remaining),
		RemainingWeight: d(remaining),
		UnitCost:        d(cost),
		CreatedAt:       createdAt,
	}
}
