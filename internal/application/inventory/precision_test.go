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

// ──────────────────────────────────────────────────────────────────────────────
// Escala decimal: pesos y costos con 4 decimales como máximo
// ──────────────────────────────────────────────────────────────────────────────

func TestConsume_CantidadFueraDeEscala_NoEscribe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "A", "lubina", "10", "14", t0)

	_, err := f.engine.Consume(ctx, inventory.ConsumeInput{
		ProductID: "lubina",
		Quantity:  d("0.00005"),
		Kind:      entity.MovementKindSale,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	assertDecimal(t, "10", f.lot(t, "A").RemainingWeight)
	movs, err := f.store.Movements().ListByLot(ctx, "A", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, movs)
	assert.Empty(t, f.publisher.types())
}

func TestConsume_CostoSnapshotFueraDeEscala(t *testing.T) {
	f := newFixture()
	f.seedLot(t, "A", "lubina", "10", "14", t0)

	snapshot := d("1.23456")
	_, err := f.engine.Consume(context.Background(), inventory.ConsumeInput{
		ProductID:    "lubina",
		Quantity:     d("1"),
		Kind:         entity.MovementKindInventoryCorrection,
		CostSnapshot: &snapshot,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assertDecimal(t, "10", f.lot(t, "A").RemainingWeight)
}

func TestTransform_CostoUnitarioPeriodicoSeRedondea(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedLot(t, "A", "lubina", "10", "2", t0)

	// 10 kg · 2 = 20 repartidos en 3 kg → 6.6667 por kg
	res, err := f.transform.Transform(ctx, inventory.TransformInput{
		Sources:              []inventory.TransformSource{{ProductID: "lubina", Quantity: d("10")}},
		DestinationProductID: "filete-lubina",
		ProducedQuantity:     d("3"),
	})
	require.NoError(t, err)
	assertDecimal(t, "20", res.TotalCost)
	assertDecimal(t, "6.6667", res.Lot.UnitCost)

	stored := f.lot(t, res.Lot.ID)
	assertDecimal(t, "6.6667", stored.UnitCost)
	assert.True(t, entity.FitsScale(stored.UnitCost, entity.CostScale))
	f.assertReplay(t, "A", res.Lot.ID)

	// El consumo posterior valora con el costo almacenado.
	cons, err := f.engine.Consume(ctx, inventory.ConsumeInput{
		ProductID: "filete-lubina",
		Quantity:  d("3"),
		Kind:      entity.MovementKindSale,
	})
	require.NoError(t, err)
	assertDecimal(t, "20.0001", cons.TotalCost)
	assert.True(t, f.lot(t, res.Lot.ID).Closed)
	f.assertReplay(t, res.Lot.ID)
}

func TestTransform_CantidadesFueraDeEscala(t *testing.T) {
	f := newFixture()
	f.seedLot(t, "A", "lubina", "10", "2", t0)

	_, err := f.transform.Transform(context.Background(), inventory.TransformInput{
		Sources:              []inventory.TransformSource{{ProductID: "lubina", Quantity: d("1.00001")}},
		DestinationProductID: "filete-lubina",
		ProducedQuantity:     d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.transform.Transform(context.Background(), inventory.TransformInput{
		Sources:              []inventory.TransformSource{{ProductID: "lubina", Quantity: d("1")}},
		DestinationProductID: "filete-lubina",
		ProducedQuantity:     d("0.33333"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assertDecimal(t, "10", f.lot(t, "A").RemainingWeight)
}

func TestReconcile_PMAPeriodicoSeRedondea(t *testing.T) {
	f := newFixture()
	f.seedLot(t, "A", "lubina", "1", "1", t0)
	f.seedLot(t, "B", "lubina", "2", "2", t0.Add(time.Hour))

	// PMA = (1·1 + 2·2) / 3 = 1.6666… → 1.6667
	res, err := f.reconcile.Reconcile(context.Background(), inventory.ReconcileInput{
		ProductID:     "lubina",
		CountedWeight: d("2"),
	})
	require.NoError(t, err)
	assertDecimal(t, "1", res.Shortfall)
	assertDecimal(t, "1.6667", res.UnitCostSnapshot)
	require.Len(t, res.Movements, 1)
	assertDecimal(t, "1.6667", res.Movements[0].UnitCostSnapshot)
	assertDecimal(t, "1.6667", res.Movements[0].TotalCost)
	f.assertReplay(t, "A", "B")
}

func TestReconcile_ConteoFueraDeEscala(t *testing.T) {
	f := newFixture()
	f.seedLot(t, "A", "lubina", "10", "2", t0)

	_, err := f.reconcile.Reconcile(context.Background(), inventory.ReconcileInput{
		ProductID:     "lubina",
		CountedWeight: d("9.99999"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assertDecimal(t, "10", f.lot(t, "A").RemainingWeight)
}

func TestSyncPurchaseLine_ValoresFueraDeEscala(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.sync.SyncPurchaseLine(ctx, receivedLine("12.00001", "14"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.sync.SyncPurchaseLine(ctx, receivedLine("12", "14.00001"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	lots, err := f.store.Lots().ListOpenByProduct(ctx, "lubina")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

// ──────────────────────────────────────────────────────────────────────────────
// PMA tras la recepción
// ──────────────────────────────────────────────────────────────────────────────

func TestSyncPurchaseLine_DevuelvePMA(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.sync.SyncPurchaseLine(ctx, receivedLine("10", "30"))
	require.NoError(t, err)
	require.NotNil(t, first.Weighted)
	assertDecimal(t, "30", first.Weighted.UnitCost)
	assertDecimal(t, "10", first.Weighted.TotalOpenWeight)

	line := receivedLine("5", "45")
	line.LineID = "2"
	second, err := f.sync.SyncPurchaseLine(ctx, line)
	require.NoError(t, err)
	require.NotNil(t, second.Weighted)
	assertDecimal(t, "35", second.Weighted.UnitCost)
	assertDecimal(t, "15", second.Weighted.TotalOpenWeight)

	ev, ok := f.publisher.last(inventory.EventLotCreated).(inventory.LotCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, second.Lot.ID, ev.LotID)
	require.NotNil(t, ev.WeightedUnitCost)
	assertDecimal(t, "35", *ev.WeightedUnitCost)
	require.NotNil(t, ev.OpenWeight)
	assertDecimal(t, "15", *ev.OpenWeight)

	// Una actualización no crea lote y no recalcula el PMA.
	updated, err := f.sync.SyncPurchaseLine(ctx, receivedLine("11", "30"))
	require.NoError(t, err)
	assert.Equal(t, inventory.SyncActionUpdated, updated.Action)
	assert.Nil(t, updated.Weighted)
}
