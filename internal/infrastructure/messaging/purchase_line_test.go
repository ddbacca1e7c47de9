package messaging_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/messaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvent(t *testing.T, payload string) messaging.PurchaseLineEvent {
	t.Helper()
	var e messaging.PurchaseLineEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &e))
	return e
}

func TestPurchaseLineEvent_NormalizaPeso(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"weight_kg", `{"weight_kg": 12.5, "poidsKg": 99}`, "12.5"},
		{"poidsKg número", `{"poidsKg": 8.25}`, "8.25"},
		{"poidsKg con coma", `{"poidsKg": "8,25"}`, "8.25"},
		{"poidsTotalKg", `{"poidsKg": null, "poidsTotalKg": "20"}`, "20"},
		{"poidsColisKg", `{"poidsColisKg": "3.4"}`, "3.4"},
		{"sin peso", `{}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeEvent(t, tt.payload)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(e.Weight()), "peso %s", e.Weight())
		})
	}
}

func TestPurchaseLineEvent_PesoInvalido(t *testing.T) {
	var e messaging.PurchaseLineEvent
	err := json.Unmarshal([]byte(`{"poidsKg": "doce"}`), &e)
	assert.Error(t, err)
}

func TestPurchaseLineEvent_ToPurchaseLine(t *testing.T) {
	e := decodeEvent(t, `{
		"purchase_id": "BC-104",
		"line_id": "3",
		"product_id": "lubina",
		"received": true,
		"poidsTotalKg": "12,5",
		"prixKg": "14.20",
		"received_at": "2026-03-02T07:30:00+01:00",
		"dlc": "2026-03-09",
		"zonePeche": "27.8.c",
		"engin": "palangre",
		"espece": "Dicentrarchus labrax",
		"photos": ["a.jpg"]
	}`)

	line, err := e.ToPurchaseLine()
	require.NoError(t, err)

	assert.Equal(t, "BC-104", line.PurchaseID)
	assert.Equal(t, "3", line.LineID)
	assert.True(t, line.Received)
	assert.True(t, decimal.RequireFromString("12.5").Equal(line.WeightKg))
	assert.True(t, decimal.RequireFromString("14.2").Equal(line.UnitCost))
	assert.Equal(t, time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC), line.ReceivedAt)
	require.NotNil(t, line.Provenance.ExpiryDate)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), *line.Provenance.ExpiryDate)
	assert.Equal(t, "27.8.c", line.Provenance.FishingZone)
	assert.Equal(t, "palangre", line.Provenance.Gear)
	assert.Equal(t, "Dicentrarchus labrax", line.Provenance.Species)
	assert.Equal(t, []string{"a.jpg"}, line.Provenance.Photos)
}

func TestPurchaseLineEvent_DLCInvalida(t *testing.T) {
	e := decodeEvent(t, `{"purchase_id": "P", "line_id": "1", "dlc": "pronto"}`)
	_, err := e.ToPurchaseLine()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPurchaseLineEvent_DLCFormatoFrances(t *testing.T) {
	e := decodeEvent(t, `{"dlc": "09/03/2026"}`)
	line, err := e.ToPurchaseLine()
	require.NoError(t, err)
	require.NotNil(t, line.Provenance.ExpiryDate)
	assert.Equal(t, time.March, line.Provenance.ExpiryDate.Month())
	assert.Equal(t, 9, line.Provenance.ExpiryDate.Day())
}
