package inventory

import (
	"fmt"

	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// checkScale rechaza valores con más decimales que la escala persistida.
func checkScale(field string, d decimal.Decimal, scale int32) error {
	if !entity.FitsScale(d, scale) {
		return fmt.Errorf("%w: %s admite como máximo %d decimales", domain.ErrInvalidInput, field, scale)
	}
	return nil
}

// roundCost lleva un costo calculado (cociente) a la escala persistida.
func roundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(entity.CostScale)
}
