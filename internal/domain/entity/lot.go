package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Escala decimal persistida: pesos en kg y costos por kg con 4 decimales,
// importes (peso·costo) con 8. Coincide con los CHECK de escala del esquema.
const (
	WeightScale int32 = 4
	CostScale   int32 = 4
	AmountScale int32 = 8
)

// FitsScale indica si d se representa sin pérdida con scale decimales.
func FitsScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Round(scale))
}

// Orígenes posibles de un lote.
const (
	LotSourcePurchase       = "purchase"       // línea de compra recibida
	LotSourceTransformation = "transformation" // 1 producto origen → 1 derivado
	LotSourceRecipe         = "recipe"         // n productos origen → 1 derivado
)

// Provenance datos de trazabilidad de un lote.
// Los lotes de compra solo llevan los campos escalares; los lotes derivados
// llevan además las listas con la unión de valores de todos los contribuyentes.
type Provenance struct {
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	FishingZone string     `json:"fishing_zone,omitempty"`
	SubZone     string     `json:"sub_zone,omitempty"`
	Gear        string     `json:"gear,omitempty"`
	Species     string     `json:"species,omitempty"`
	Photo       string     `json:"photo,omitempty"`

	FishingZones []string `json:"fishing_zones,omitempty"`
	SubZones     []string `json:"sub_zones,omitempty"`
	Gears        []string `json:"gears,omitempty"`
	SpeciesNames []string `json:"species_names,omitempty"`
	Photos       []string `json:"photos,omitempty"`
}

// CompositionEntry parte de un lote origen consumida para producir un lote derivado.
type CompositionEntry struct {
	ContributingLotID string          `json:"contributing_lot_id"`
	QuantityTaken     decimal.Decimal `json:"quantity_taken"`
	UnitCostAtTime    decimal.Decimal `json:"unit_cost_at_time"`
}

// Lot lote físico de un producto con peso restante consumible y costo por kg.
// Invariante: Closed ⇔ RemainingWeight == 0. RemainingWeight nunca aumenta tras la creación.
type Lot struct {
	ID              string
	ProductID       string
	SourceType      string
	InitialWeight   decimal.Decimal // kg, > 0
	RemainingWeight decimal.Decimal // kg, 0 <= remaining <= initial
	UnitCost        decimal.Decimal // costo por kg, >= 0
	CreatedAt       time.Time       // clave de orden FIFO
	Closed          bool
	ClosedAt        *time.Time
	Provenance      Provenance
	PurchaseID      string // vacío si el lote no viene de una compra
	PurchaseLineID  string
	Composition     []CompositionEntry
	Version         int64 // control de concurrencia optimista
}

// IsOpen indica si el lote puede ser seleccionado por el consumo FIFO.
// Un lote cerrado nunca se reabre aunque su peso restante esté corrupto.
func (l *Lot) IsOpen() bool {
	return !l.Closed && l.RemainingWeight.GreaterThan(decimal.Zero)
}

// IsConsumed indica si el lote ya tuvo algún consumo.
func (l *Lot) IsConsumed() bool {
	return l.RemainingWeight.LessThan(l.InitialWeight)
}

// Take descuenta qty del peso restante y cierra el lote si llega a cero.
func (l *Lot) Take(qty decimal.Decimal, now time.Time) {
	l.RemainingWeight = l.RemainingWeight.Sub(qty)
	if l.RemainingWeight.LessThanOrEqual(decimal.Zero) {
		l.RemainingWeight = decimal.Zero
		l.Closed = true
		closedAt := now
		l.ClosedAt = &closedAt
	}
}

// FitsStorage indica si pesos y costo del lote caben en la escala persistida.
func (l *Lot) FitsStorage() bool {
	return FitsScale(l.InitialWeight, WeightScale) &&
		FitsScale(l.RemainingWeight, WeightScale) &&
		FitsScale(l.UnitCost, CostScale)
}

// Clone devuelve una copia profunda del lote.
func (l *Lot) Clone() *Lot {
	c := *l
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		c.ClosedAt = &t
	}
	if l.Provenance.ExpiryDate != nil {
		t := *l.Provenance.ExpiryDate
		c.Provenance.ExpiryDate = &t
	}
	c.Provenance.FishingZones = append([]string(nil), l.Provenance.FishingZones...)
	c.Provenance.SubZones = append([]string(nil), l.Provenance.SubZones...)
	c.Provenance.Gears = append([]string(nil), l.Provenance.Gears...)
	c.Provenance.SpeciesNames = append([]string(nil), l.Provenance.SpeciesNames...)
	c.Provenance.Photos = append([]string(nil), l.Provenance.Photos...)
	c.Composition = append([]CompositionEntry(nil), l.Composition...)
	return &c
}
