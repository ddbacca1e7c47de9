package messaging

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Tipos de evento del servicio de compras.
const (
	EventPurchaseLineReceived = "purchase.line.received"
	EventPurchaseLineUpdated  = "purchase.line.updated"
	EventPurchaseLineDeleted  = "purchase.line.deleted"
)

// flexDecimal acepta número JSON, cadena con punto o con coma decimal ("12,5") y null.
type flexDecimal struct {
	Value decimal.Decimal
	Set   bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("número inválido %q: %w", s, err)
	}
	f.Value, f.Set = v, true
	return nil
}

// PurchaseLineEvent payload tal como lo emite el servicio de compras.
// Los nombres de peso y trazabilidad son los heredados del sistema de compras;
// esta es la única parte del servicio que los conoce.
type PurchaseLineEvent struct {
	PurchaseID string      `json:"purchase_id"`
	LineID     string      `json:"line_id"`
	ProductID  string      `json:"product_id"`
	Received   bool        `json:"received"`
	WeightKg   flexDecimal `json:"weight_kg"`
	PoidsKg    flexDecimal `json:"poidsKg"`
	PoidsTotal flexDecimal `json:"poidsTotalKg"`
	PoidsColis flexDecimal `json:"poidsColisKg"`
	UnitCost   flexDecimal `json:"unit_cost"`
	PrixKg     flexDecimal `json:"prixKg"`
	ReceivedAt *time.Time  `json:"received_at"`

	Dlc        string   `json:"dlc"`
	ZonePeche  string   `json:"zonePeche"`
	SousZone   string   `json:"sousZone"`
	Engin      string   `json:"engin"`
	Espece     string   `json:"espece"`
	Photo      string   `json:"photo"`
	ZonesPeche []string `json:"zonesPeche"`
	SousZones  []string `json:"sousZones"`
	Engins     []string `json:"engins"`
	Especes    []string `json:"especes"`
	Photos     []string `json:"photos"`
}

// Weight devuelve el primer peso informado: weight_kg, poidsKg, poidsTotalKg, poidsColisKg.
func (e PurchaseLineEvent) Weight() decimal.Decimal {
	for _, w := range []flexDecimal{e.WeightKg, e.PoidsKg, e.PoidsTotal, e.PoidsColis} {
		if w.Set {
			return w.Value
		}
	}
	return decimal.Zero
}

// expiryLayouts formatos aceptados para la DLC.
var expiryLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006"}

func parseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: dlc %q", domain.ErrInvalidInput, s)
}

// ToPurchaseLine traduce el evento a la línea normalizada que entiende el motor de lotes.
func (e PurchaseLineEvent) ToPurchaseLine() (inventory.PurchaseLine, error) {
	expiry, err := parseExpiry(e.Dlc)
	if err != nil {
		return inventory.PurchaseLine{}, err
	}
	cost := e.UnitCost.Value
	if !e.UnitCost.Set && e.PrixKg.Set {
		cost = e.PrixKg.Value
	}
	line := inventory.PurchaseLine{
		PurchaseID: e.PurchaseID,
		LineID:     e.LineID,
		ProductID:  e.ProductID,
		Received:   e.Received,
		WeightKg:   e.Weight(),
		UnitCost:   cost,
		Provenance: entity.Provenance{
			ExpiryDate:   expiry,
			FishingZone:  e.ZonePeche,
			SubZone:      e.SousZone,
			Gear:         e.Engin,
			Species:      e.Espece,
			Photo:        e.Photo,
			FishingZones: e.ZonesPeche,
			SubZones:     e.SousZones,
			Gears:        e.Engins,
			SpeciesNames: e.Especes,
			Photos:       e.Photos,
		},
	}
	if e.ReceivedAt != nil {
		line.ReceivedAt = e.ReceivedAt.UTC()
	}
	return line, nil
}

// decodePurchaseLine decodifica el payload de un evento de línea de compra.
func decodePurchaseLine(event *Event) (PurchaseLineEvent, error) {
	var data PurchaseLineEvent
	if err := event.UnmarshalData(&data); err != nil {
		return data, fmt.Errorf("%w: payload de línea de compra: %v", domain.ErrInvalidInput, err)
	}
	return data, nil
}
