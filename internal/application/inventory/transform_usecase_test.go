package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1→1: 4 kg de merluza entera (10 kg @ 30) producen 2 kg de filete a 60 €/kg.
func TestTransform_UnoAUno(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	src := f.seedLot(t, "A", "merlu", "10", "30", t0)
	exp := t0.AddDate(0, 0, 4)
	src.Provenance = entity.Provenance{FishingZone: "27.8.c", Gear: "palangre", ExpiryDate: &exp}
	require.NoError(t, f.store.Lots().Replace(ctx, src))

	res, err := f.transform.Transform(ctx, inventory.TransformInput{
		Sources:              []inventory.TransformSource{{ProductID: "merlu", Quantity: d("4")}},
		DestinationProductID: "merlu-filete",
		ProducedQuantity:     d("2"),
		Context:              entity.MovementContext{Actor: "obrador"},
	})
	require.NoError(t, err)

	lot := res.Lot
	assert.Equal(t, entity.LotSourceTransformation, lot.SourceType)
	assertDecimal(t, "2", lot.InitialWeight)
	assertDecimal(t, "60", lot.UnitCost)
	assertDecimal(t, "120", res.TotalCost)
	require.Len(t, lot.Composition, 1)
	assert.Equal(t, "A", lot.Composition[0].ContributingLotID)
	assertDecimal(t, "4", lot.Composition[0].QuantityTaken)
	assertDecimal(t, "30", lot.Composition[0].UnitCostAtTime)
	assert.Equal(t, "27.8.c", lot.Provenance.FishingZone)
	require.NotNil(t, lot.Provenance.ExpiryDate)
	assert.Equal(t, exp, *lot.Provenance.ExpiryDate)

	require.Len(t, res.Movements, 2)
	out, in := res.Movements[0], res.Movements[1]
	assert.Equal(t, entity.MovementKindTransformationOut, out.Kind)
	assertDecimal(t, "-4", out.SignedQuantity)
	assert.Equal(t, entity.MovementKindTransformationIn, in.Kind)
	assertDecimal(t, "2", in.SignedQuantity)
	for _, m := range res.Movements {
		assert.Equal(t, res.TransactionID, m.TransactionID)
		assert.Equal(t, lot.ID, m.Context.TransformationID)
	}

	assertDecimal(t, "6", f.lot(t, "A").RemainingWeight)
	stored := f.lot(t, lot.ID)
	assertDecimal(t, "2", stored.RemainingWeight)
	f.assertReplay(t, "A", lot.ID)
	assert.Equal(t, []string{inventory.EventLotCreated}, f.publisher.types())
}

// n→1: receta con dos orígenes, costo = Σ costos / cantidad producida.
func TestTransform_Receta(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "S1", "salmon", "3", "20", t0)
	f.seedLot(t, "S2", "salmon", "3", "26", t0.Add(time.Hour))
	f.seedLot(t, "E", "eneldo", "1", "10", t0)

	res, err := f.transform.Transform(ctx, inventory.TransformInput{
		Sources: []inventory.TransformSource{
			{ProductID: "salmon", Quantity: d("4")},
			{ProductID: "eneldo", Quantity: d("0.5")},
		},
		DestinationProductID: "gravlax",
		ProducedQuantity:     d("3.5"),
	})
	require.NoError(t, err)

	// 3·20 + 1·26 + 0.5·10 = 91 → 91 / 3.5 = 26
	assertDecimal(t, "91", res.TotalCost)
	assertDecimal(t, "26", res.Lot.UnitCost)
	assert.Equal(t, entity.LotSourceRecipe, res.Lot.SourceType)
	require.Len(t, res.Lot.Composition, 3)
	assert.Equal(t, []string{"S1", "S2", "E"}, []string{
		res.Lot.Composition[0].ContributingLotID,
		res.Lot.Composition[1].ContributingLotID,
		res.Lot.Composition[2].ContributingLotID,
	})
	f.assertReplay(t, "S1", "S2", "E", res.Lot.ID)
}

// Si un origen no tiene stock, nada se confirma: ni consumos previos ni el lote destino.
func TestTransform_AtomicaAnteFaltante(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "S", "salmon", "5", "20", t0)
	f.seedLot(t, "E", "eneldo", "0.2", "10", t0)

	_, err := f.transform.Transform(ctx, inventory.TransformInput{
		Sources: []inventory.TransformSource{
			{ProductID: "salmon", Quantity: d("4")},
			{ProductID: "eneldo", Quantity: d("0.5")},
		},
		DestinationProductID: "gravlax",
		ProducedQuantity:     d("3.5"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assertDecimal(t, "5", f.lot(t, "S").RemainingWeight)
	assertDecimal(t, "0.2", f.lot(t, "E").RemainingWeight)
	dest, err := f.store.Lots().ListOpenByProduct(ctx, "gravlax")
	require.NoError(t, err)
	assert.Empty(t, dest)
	movs, _ := f.store.Movements().ListByProduct(ctx, "salmon", nil, nil, 10, 0)
	assert.Empty(t, movs)
	assert.Empty(t, f.publisher.types())
}

func TestTransform_Validacion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "A", "merlu", "10", "30", t0)

	tests := []struct {
		name string
		in   inventory.TransformInput
	}{
		{"sin orígenes", inventory.TransformInput{DestinationProductID: "x", ProducedQuantity: d("1")}},
		{"producido cero", inventory.TransformInput{
			Sources:              []inventory.TransformSource{{ProductID: "merlu", Quantity: d("1")}},
			DestinationProductID: "x", ProducedQuantity: d("0"),
		}},
		{"sin destino", inventory.TransformInput{
			Sources:          []inventory.TransformSource{{ProductID: "merlu", Quantity: d("1")}},
			ProducedQuantity: d("1"),
		}},
		{"source_type inválido", inventory.TransformInput{
			Sources:              []inventory.TransformSource{{ProductID: "merlu", Quantity: d("1")}},
			DestinationProductID: "x", ProducedQuantity: d("1"), SourceType: entity.LotSourcePurchase,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transform.Transform(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assertDecimal(t, "10", f.lot(t, "A").RemainingWeight)
}

// Un lote derivado se puede volver a consumir por FIFO como cualquier otro.
func TestTransform_LoteDerivadoConsumible(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "A", "merlu", "10", "30", t0)

	res, err := f.transform.Transform(ctx, inventory.TransformInput{
		Sources:              []inventory.TransformSource{{ProductID: "merlu", Quantity: d("4")}},
		DestinationProductID: "merlu-filete",
		ProducedQuantity:     d("2"),
	})
	require.NoError(t, err)

	cons, err := f.engine.Consume(ctx, sale("merlu-filete", "0.5"))
	require.NoError(t, err)
	assertDecimal(t, "30", cons.TotalCost)
	assertDecimal(t, "1.5", f.lot(t, res.Lot.ID).RemainingWeight)
	f.assertReplay(t, res.Lot.ID)
}
