package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/infrastructure/memory"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"esperado %s, obtenido %s", want, got.String()}, msgAndArgs...)...)
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu       sync.Mutex
	events   []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.payloads = append(p.payloads, data)
	return nil
}

// last devuelve el payload más reciente del tipo dado, o nil.
func (p *recordingPublisher) last(eventType string) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i] == eventType {
			return p.payloads[i]
		}
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// fixture motor completo sobre el almacén en memoria.
type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	engine    *inventory.FIFOEngine
	transform *inventory.TransformUseCase
	reconcile *inventory.ReconcileUseCase
	sync      *inventory.LotSyncUseCase
	cost      *inventory.CostUseCase
	audit     *inventory.AuditUseCase
}

func newFixture() *fixture {
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)
	pub := &recordingPublisher{}
	log := logger.Nop()
	engine := inventory.NewFIFOEngine(runner, pub, log)
	return &fixture{
		store:     store,
		publisher: pub,
		engine:    engine,
		transform: inventory.NewTransformUseCase(runner, engine, pub, log),
		reconcile: inventory.NewReconcileUseCase(runner, engine, pub, log),
		sync:      inventory.NewLotSyncUseCase(runner, pub, log),
		cost:      inventory.NewCostUseCase(store.Lots()),
		audit:     inventory.NewAuditUseCase(store.Lots(), store.Movements()),
	}
}

// seedLot crea un lote de compra abierto directamente en el almacén.
func (f *fixture) seedLot(t *testing.T, id, productID, weight, cost string, createdAt time.Time) *entity.Lot {
	t.Helper()
	lot := &entity.Lot{
		ID:              id,
		ProductID:       productID,
		SourceType:      entity.LotSourcePurchase,
		InitialWeight:   d(weight),
		RemainingWeight: d(weight),
		UnitCost:        d(cost),
		CreatedAt:       createdAt,
	}
	require.NoError(t, f.store.Lots().Create(context.Background(), lot))
	return lot
}

func (f *fixture) lot(t *testing.T, id string) *entity.Lot {
	t.Helper()
	lot, err := f.store.Lots().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, lot, "lote %s", id)
	return lot
}

// assertReplay verifica que el libro reproduce el peso restante de cada lote.
func (f *fixture) assertReplay(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		v, err := f.audit.VerifyLot(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, v.Consistent, "lote %s: restante %s, reproducido %s", id, v.RemainingWeight, v.ReplayedWeight)
	}
}
