package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func purchaseLot(id, purchaseID, lineID, weight string, createdAt time.Time) *entity.Lot {
	w := decimal.RequireFromString(weight)
	return &entity.Lot{
		ID:              id,
		ProductID:       "merlu",
		SourceType:      entity.LotSourcePurchase,
		InitialWeight:   w,
		RemainingWeight: w,
		UnitCost:        decimal.NewFromInt(30),
		CreatedAt:       createdAt,
		PurchaseID:      purchaseID,
		PurchaseLineID:  lineID,
	}
}

func TestLotRepo_CreateYLectura(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Lots()

	lot := purchaseLot("A", "P1", "L1", "10", t0)
	require.NoError(t, repo.Create(ctx, lot))
	assert.Equal(t, int64(1), lot.Version)

	got, err := repo.GetByID(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "merlu", got.ProductID)

	// Las lecturas devuelven copias
	got.RemainingWeight = decimal.Zero
	again, _ := repo.GetByID(ctx, "A")
	assert.True(t, again.RemainingWeight.Equal(decimal.NewFromInt(10)))

	byLine, err := repo.GetByPurchaseLine(ctx, "P1", "L1")
	require.NoError(t, err)
	require.NotNil(t, byLine)
	assert.Equal(t, "A", byLine.ID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLotRepo_LineaDeCompraUnica(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Lots()

	require.NoError(t, repo.Create(ctx, purchaseLot("A", "P1", "L1", "10", t0)))
	err := repo.Create(ctx, purchaseLot("B", "P1", "L1", "5", t0))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLotRepo_ListOpenByProductOrdenFIFO(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Lots()

	require.NoError(t, repo.Create(ctx, purchaseLot("C", "P", "3", "1", t0.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, purchaseLot("B", "P", "2", "1", t0)))
	require.NoError(t, repo.Create(ctx, purchaseLot("A", "P", "1", "1", t0)))
	closed := purchaseLot("Z", "P", "4", "1", t0.Add(-time.Hour))
	closed.Closed = true
	require.NoError(t, repo.Create(ctx, closed))

	lots, err := repo.ListOpenByProduct(ctx, "merlu")
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{lots[0].ID, lots[1].ID, lots[2].ID})
}

func TestLotRepo_UpdateRemainingCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Lots()
	require.NoError(t, repo.Create(ctx, purchaseLot("A", "", "", "10", t0)))

	first, _ := repo.GetByID(ctx, "A")
	stale, _ := repo.GetByID(ctx, "A")

	first.Take(decimal.NewFromInt(3), t0)
	require.NoError(t, repo.UpdateRemaining(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Take(decimal.NewFromInt(5), t0)
	err := repo.UpdateRemaining(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, _ := repo.GetByID(ctx, "A")
	assert.True(t, got.RemainingWeight.Equal(decimal.NewFromInt(7)))
}

func TestLastClosedByProduct(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Lots()

	older := purchaseLot("A", "", "", "1", t0)
	older.Take(decimal.NewFromInt(1), t0.Add(time.Hour))
	newer := purchaseLot("B", "", "", "1", t0)
	newer.UnitCost = decimal.NewFromInt(44)
	newer.Take(decimal.NewFromInt(1), t0.Add(2*time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.LastClosedByProduct(ctx, "merlu")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones
// ──────────────────────────────────────────────────────────────────────────────

func TestTxRunner_RollbackDescartaTodo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Lots().Create(ctx, purchaseLot("A", "", "", "10", t0)))
	runner := memory.NewTxRunner(store)

	boom := errors.New("boom")
	err := runner.Run(ctx, func(lotRepo repository.LotRepository, movRepo repository.StockMovementRepository) error {
		lot, err := lotRepo.GetByID(ctx, "A")
		require.NoError(t, err)
		lot.Take(decimal.NewFromInt(4), t0)
		require.NoError(t, lotRepo.UpdateRemaining(ctx, lot))
		require.NoError(t, movRepo.Append(ctx, &entity.StockMovement{ID: "m1", LotID: "A", ProductID: "merlu", Timestamp: t0}))
		require.NoError(t, lotRepo.Create(ctx, purchaseLot("B", "", "", "2", t0)))

		// La tx ve sus propias escrituras
		seen, _ := lotRepo.GetByID(ctx, "A")
		assert.True(t, seen.RemainingWeight.Equal(decimal.NewFromInt(6)))
		movs, _ := movRepo.ListByLot(ctx, "A", nil, nil)
		assert.Len(t, movs, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	lot, _ := store.Lots().GetByID(ctx, "A")
	assert.True(t, lot.RemainingWeight.Equal(decimal.NewFromInt(10)))
	b, _ := store.Lots().GetByID(ctx, "B")
	assert.Nil(t, b)
	movs, _ := store.Movements().ListByLot(ctx, "A", nil, nil)
	assert.Empty(t, movs)
}

// Dos transacciones que leen la misma versión: la segunda en confirmar falla sin aplicar nada.
func TestTxRunner_ConflictoAlConfirmar(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Lots().Create(ctx, purchaseLot("A", "", "", "10", t0)))
	runner := memory.NewTxRunner(store)

	err := runner.Run(ctx, func(lotRepo repository.LotRepository, movRepo repository.StockMovementRepository) error {
		lot, _ := lotRepo.GetByID(ctx, "A")
		lot.Take(decimal.NewFromInt(2), t0)
		require.NoError(t, lotRepo.UpdateRemaining(ctx, lot))
		require.NoError(t, movRepo.Append(ctx, &entity.StockMovement{ID: "m-inner", LotID: "A", Timestamp: t0}))

		// Otro escritor confirma mientras tanto
		inner := runner.Run(ctx, func(lr repository.LotRepository, _ repository.StockMovementRepository) error {
			other, _ := lr.GetByID(ctx, "A")
			other.Take(decimal.NewFromInt(1), t0)
			return lr.UpdateRemaining(ctx, other)
		})
		require.NoError(t, inner)
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	lot, _ := store.Lots().GetByID(ctx, "A")
	assert.True(t, lot.RemainingWeight.Equal(decimal.NewFromInt(9)))
	movs, _ := store.Movements().ListByLot(ctx, "A", nil, nil)
	assert.Empty(t, movs)
}

func TestTxRunner_DeleteYCreateEnLaMismaTx(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Lots().Create(ctx, purchaseLot("A", "P1", "L1", "10", t0)))
	runner := memory.NewTxRunner(store)

	err := runner.Run(ctx, func(lotRepo repository.LotRepository, _ repository.StockMovementRepository) error {
		require.NoError(t, lotRepo.Delete(ctx, "A"))
		got, _ := lotRepo.GetByPurchaseLine(ctx, "P1", "L1")
		assert.Nil(t, got)
		return nil
	})
	require.NoError(t, err)

	got, _ := store.Lots().GetByID(ctx, "A")
	assert.Nil(t, got)
	assert.ErrorIs(t, store.Lots().Delete(ctx, "A"), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Libro de movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestMovementRepo_Listados(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Movements()

	for i, lotID := range []string{"A", "B", "A", "A"} {
		require.NoError(t, repo.Append(ctx, &entity.StockMovement{
			ID:        string(rune('1' + i)),
			LotID:     lotID,
			ProductID: "merlu",
			Kind:      entity.MovementKindSale,
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
		}))
	}

	byLot, err := repo.ListByLot(ctx, "A", nil, nil)
	require.NoError(t, err)
	require.Len(t, byLot, 3)
	assert.Equal(t, "1", byLot[0].ID)
	assert.Equal(t, "4", byLot[2].ID)

	from := t0.Add(90 * time.Minute)
	ranged, _ := repo.ListByLot(ctx, "A", &from, nil)
	assert.Len(t, ranged, 2)

	byProduct, err := repo.ListByProduct(ctx, "merlu", nil, nil, 2, 1)
	require.NoError(t, err)
	require.Len(t, byProduct, 2)
	assert.Equal(t, "3", byProduct[0].ID)
	assert.Equal(t, "2", byProduct[1].ID)

	empty, _ := repo.ListByProduct(ctx, "merlu", nil, nil, 10, 10)
	assert.Empty(t, empty)
}

func TestMovementRepo_MismoInstante_OrdenDeInsercion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)

	// Tres movimientos en una misma transacción comparten timestamp.
	err := runner.Run(ctx, func(_ repository.LotRepository, movRepo repository.StockMovementRepository) error {
		for _, id := range []string{"m1", "m2", "m3"} {
			if err := movRepo.Append(ctx, &entity.StockMovement{
				ID:        id,
				LotID:     "A",
				ProductID: "merlu",
				Kind:      entity.MovementKindSale,
				Timestamp: t0,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	byLot, err := store.Movements().ListByLot(ctx, "A", nil, nil)
	require.NoError(t, err)
	require.Len(t, byLot, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{byLot[0].ID, byLot[1].ID, byLot[2].ID})

	byProduct, err := store.Movements().ListByProduct(ctx, "merlu", nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, byProduct, 3)
	assert.Equal(t, []string{"m3", "m2", "m1"}, []string{byProduct[0].ID, byProduct[1].ID, byProduct[2].ID})
}

// ──────────────────────────────────────────────────────────────────────────────
// Escala decimal: se rechaza, nunca se redondea
// ──────────────────────────────────────────────────────────────────────────────

func TestLotRepo_RechazaDecimalesFueraDeEscala(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Lots()

	lot := purchaseLot("A", "P1", "L1", "10.00001", t0)
	assert.ErrorIs(t, repo.Create(ctx, lot), domain.ErrInvalidInput)

	lot = purchaseLot("B", "P1", "L2", "10", t0)
	lot.UnitCost = decimal.RequireFromString("6.66666")
	assert.ErrorIs(t, repo.Create(ctx, lot), domain.ErrInvalidInput)

	lot = purchaseLot("C", "P1", "L3", "10", t0)
	require.NoError(t, repo.Create(ctx, lot))
	stored, _ := repo.GetByID(ctx, "C")
	stored.RemainingWeight = decimal.RequireFromString("9.99999")
	assert.ErrorIs(t, repo.UpdateRemaining(ctx, stored), domain.ErrInvalidInput)

	got, _ := repo.GetByID(ctx, "C")
	assert.True(t, decimal.NewFromInt(10).Equal(got.RemainingWeight))
	missing, _ := repo.GetByID(ctx, "A")
	assert.Nil(t, missing)
}

func TestMovementRepo_RechazaDecimalesFueraDeEscala(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Movements()

	err := repo.Append(ctx, &entity.StockMovement{
		ID:             "1",
		LotID:          "A",
		ProductID:      "merlu",
		Kind:           entity.MovementKindSale,
		SignedQuantity: decimal.RequireFromString("-0.00005"),
		Timestamp:      t0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Importe con 8 decimales (cantidad·costo a escala 4) sí se admite.
	require.NoError(t, repo.Append(ctx, &entity.StockMovement{
		ID:               "2",
		LotID:            "A",
		ProductID:        "merlu",
		Kind:             entity.MovementKindSale,
		SignedQuantity:   decimal.RequireFromString("-1.0001"),
		UnitCostSnapshot: decimal.RequireFromString("1.0001"),
		TotalCost:        decimal.RequireFromString("1.00020001"),
		Timestamp:        t0,
	}))

	movs, _ := repo.ListByLot(ctx, "A", nil, nil)
	require.Len(t, movs, 1)
	assert.Equal(t, "2", movs[0].ID)
}
