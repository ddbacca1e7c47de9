// Package memory implementa los puertos de lotes y movimientos en memoria.
// Se usa en tests y en desarrollo (LOTS_STORAGE=memory). Las transacciones
// acumulan escrituras y las validan por versión al confirmar: si otro escritor
// modificó un lote tocado, el commit falla con domain.ErrConflict y no aplica nada.
// Como las columnas NUMERIC de PostgreSQL, rechaza valores con más decimales que
// la escala persistida (domain.ErrInvalidInput) en lugar de redondearlos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

var (
	_ repository.LotRepository           = (*LotRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
	_ inventory.TxRunner                 = (*TxRunner)(nil)
)

// Store estado confirmado compartido por todos los repositorios.
type Store struct {
	mu        sync.RWMutex
	lots      map[string]*entity.Lot
	movements []movementRecord
	seq       int64 // último número de secuencia asignado a un movimiento
}

// movementRecord movimiento confirmado con su orden de inserción (equivale a seq en PostgreSQL).
type movementRecord struct {
	seq int64
	mov entity.StockMovement
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{lots: make(map[string]*entity.Lot)}
}

// Lots devuelve el repositorio de lotes fuera de transacción.
func (s *Store) Lots() *LotRepo {
	return &LotRepo{s: s}
}

// Movements devuelve el repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo {
	return &MovementRepo{s: s}
}

// txState escrituras pendientes de una transacción.
type txState struct {
	staged    map[string]*entity.Lot // lotes creados o modificados
	created   map[string]bool
	deleted   map[string]bool
	expected  map[string]int64 // versión confirmada leída antes de modificar
	movements []*entity.StockMovement
}

func newTxState() *txState {
	return &txState{
		staged:   make(map[string]*entity.Lot),
		created:  make(map[string]bool),
		deleted:  make(map[string]bool),
		expected: make(map[string]int64),
	}
}

// TxRunner ejecuta callbacks con repositorios atados a una transacción en memoria.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn y confirma sus escrituras de forma atómica; si fn falla se descartan.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxState()
	if err := fn(&LotRepo{s: r.s, tx: tx}, &MovementRepo{s: r.s, tx: tx}); err != nil {
		return err
	}
	return r.s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range tx.expected {
		current, ok := s.lots[id]
		if !ok || current.Version != version {
			return fmt.Errorf("%w: lote %s modificado por otra operación", domain.ErrConflict, id)
		}
	}
	for id := range tx.created {
		if _, ok := s.lots[id]; ok {
			return fmt.Errorf("%w: lote %s ya existe", domain.ErrConflict, id)
		}
		lot := tx.staged[id]
		if lot != nil && lot.PurchaseID != "" {
			if other := s.findByPurchaseLineLocked(lot.PurchaseID, lot.PurchaseLineID); other != nil {
				return fmt.Errorf("%w: la línea %s/%s ya tiene lote", domain.ErrConflict, lot.PurchaseID, lot.PurchaseLineID)
			}
		}
	}

	for id := range tx.deleted {
		delete(s.lots, id)
	}
	for id, lot := range tx.staged {
		if tx.deleted[id] {
			continue
		}
		s.lots[id] = lot.Clone()
	}
	for _, m := range tx.movements {
		s.appendLocked(m)
	}
	return nil
}

func (s *Store) appendLocked(m *entity.StockMovement) {
	s.seq++
	s.movements = append(s.movements, movementRecord{seq: s.seq, mov: *m})
}

func checkLotScale(lot *entity.Lot) error {
	if !lot.FitsStorage() {
		return fmt.Errorf("%w: lote %s con más decimales que la escala persistida", domain.ErrInvalidInput, lot.ID)
	}
	return nil
}

func (s *Store) findByPurchaseLineLocked(purchaseID, lineID string) *entity.Lot {
	for _, l := range s.lots {
		if l.PurchaseID == purchaseID && l.PurchaseLineID == lineID {
			return l
		}
	}
	return nil
}

// LotRepo repositorio de lotes; con tx != nil lee sus propias escrituras pendientes.
type LotRepo struct {
	s  *Store
	tx *txState
}

// visible devuelve copias de todos los lotes visibles para este repositorio.
func (r *LotRepo) visible() []*entity.Lot {
	r.s.mu.RLock()
	out := make([]*entity.Lot, 0, len(r.s.lots))
	for id, l := range r.s.lots {
		if r.tx != nil && (r.tx.deleted[id] || r.tx.staged[id] != nil) {
			continue
		}
		out = append(out, l.Clone())
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for id, l := range r.tx.staged {
			if !r.tx.deleted[id] {
				out = append(out, l.Clone())
			}
		}
	}
	return out
}

func (r *LotRepo) get(id string) *entity.Lot {
	if r.tx != nil {
		if r.tx.deleted[id] {
			return nil
		}
		if l, ok := r.tx.staged[id]; ok {
			return l.Clone()
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.lots[id]; ok {
		return l.Clone()
	}
	return nil
}

// Create persiste un lote nuevo.
func (r *LotRepo) Create(_ context.Context, lot *entity.Lot) error {
	if err := checkLotScale(lot); err != nil {
		return err
	}
	if lot.PurchaseID != "" {
		for _, l := range r.visible() {
			if l.PurchaseID == lot.PurchaseID && l.PurchaseLineID == lot.PurchaseLineID {
				return fmt.Errorf("%w: la línea %s/%s ya tiene lote", domain.ErrConflict, lot.PurchaseID, lot.PurchaseLineID)
			}
		}
	}
	if r.get(lot.ID) != nil {
		return fmt.Errorf("%w: lote %s ya existe", domain.ErrConflict, lot.ID)
	}
	lot.Version = 1
	if r.tx != nil {
		r.tx.staged[lot.ID] = lot.Clone()
		r.tx.created[lot.ID] = true
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lots[lot.ID] = lot.Clone()
	return nil
}

// GetByID obtiene un lote por ID; nil si no existe.
func (r *LotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	return r.get(id), nil
}

// GetByPurchaseLine obtiene el lote de una línea de compra; nil si no existe.
func (r *LotRepo) GetByPurchaseLine(_ context.Context, purchaseID, lineID string) (*entity.Lot, error) {
	for _, l := range r.visible() {
		if l.PurchaseID == purchaseID && l.PurchaseLineID == lineID {
			return l, nil
		}
	}
	return nil, nil
}

// ListOpenByProduct lotes con closed=false del producto en orden FIFO.
func (r *LotRepo) ListOpenByProduct(_ context.Context, productID string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.visible() {
		if l.ProductID == productID && !l.Closed {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LastClosedByProduct lote cerrado más reciente (por ClosedAt) del producto.
func (r *LotRepo) LastClosedByProduct(_ context.Context, productID string) (*entity.Lot, error) {
	var last *entity.Lot
	for _, l := range r.visible() {
		if l.ProductID != productID || !l.Closed || l.ClosedAt == nil {
			continue
		}
		if last == nil || l.ClosedAt.After(*last.ClosedAt) {
			last = l
		}
	}
	return last, nil
}

// UpdateRemaining aplica el nuevo peso restante con compare-and-swap sobre Version.
func (r *LotRepo) UpdateRemaining(_ context.Context, lot *entity.Lot) error {
	return r.swap(lot, func(dst *entity.Lot) {
		dst.RemainingWeight = lot.RemainingWeight
		dst.Closed = lot.Closed
		dst.ClosedAt = lot.ClosedAt
	})
}

// Replace reescribe producto, pesos, costo y trazabilidad con compare-and-swap sobre Version.
func (r *LotRepo) Replace(_ context.Context, lot *entity.Lot) error {
	return r.swap(lot, func(dst *entity.Lot) {
		src := lot.Clone()
		dst.ProductID = src.ProductID
		dst.InitialWeight = src.InitialWeight
		dst.RemainingWeight = src.RemainingWeight
		dst.UnitCost = src.UnitCost
		dst.Closed = src.Closed
		dst.ClosedAt = src.ClosedAt
		dst.Provenance = src.Provenance
	})
}

func (r *LotRepo) swap(lot *entity.Lot, apply func(dst *entity.Lot)) error {
	if err := checkLotScale(lot); err != nil {
		return err
	}
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		current, ok := r.s.lots[lot.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.Version != lot.Version {
			return fmt.Errorf("%w: lote %s modificado por otra operación", domain.ErrConflict, lot.ID)
		}
		apply(current)
		current.Version++
		lot.Version = current.Version
		return nil
	}

	current := r.get(lot.ID)
	if current == nil {
		return domain.ErrNotFound
	}
	if current.Version != lot.Version {
		return fmt.Errorf("%w: lote %s modificado por otra operación", domain.ErrConflict, lot.ID)
	}
	if _, staged := r.tx.staged[lot.ID]; !staged && !r.tx.created[lot.ID] {
		r.tx.expected[lot.ID] = current.Version
	}
	apply(current)
	current.Version++
	r.tx.staged[lot.ID] = current
	lot.Version = current.Version
	return nil
}

// Delete elimina un lote.
func (r *LotRepo) Delete(_ context.Context, id string) error {
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		if _, ok := r.s.lots[id]; !ok {
			return domain.ErrNotFound
		}
		delete(r.s.lots, id)
		return nil
	}
	current := r.get(id)
	if current == nil {
		return domain.ErrNotFound
	}
	if r.tx.created[id] {
		delete(r.tx.created, id)
		delete(r.tx.staged, id)
		return nil
	}
	if _, staged := r.tx.staged[id]; !staged {
		r.tx.expected[id] = current.Version
	}
	r.tx.deleted[id] = true
	return nil
}

// MovementRepo libro de movimientos en memoria (append-only).
type MovementRepo struct {
	s  *Store
	tx *txState
}

// Append añade un movimiento al libro.
func (r *MovementRepo) Append(_ context.Context, movement *entity.StockMovement) error {
	if !movement.FitsStorage() {
		return fmt.Errorf("%w: movimiento %s con más decimales que la escala persistida", domain.ErrInvalidInput, movement.ID)
	}
	mc := *movement
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, &mc)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendLocked(&mc)
	return nil
}

// all devuelve copias en orden de inserción; los pendientes de la tx van después de los confirmados.
func (r *MovementRepo) all() []movementRecord {
	r.s.mu.RLock()
	out := make([]movementRecord, 0, len(r.s.movements))
	out = append(out, r.s.movements...)
	next := r.s.seq
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, m := range r.tx.movements {
			next++
			out = append(out, movementRecord{seq: next, mov: *m})
		}
	}
	return out
}

func filterMovements(recs []movementRecord, keep func(m *entity.StockMovement) bool, desc bool) []*entity.StockMovement {
	var matched []movementRecord
	for _, rec := range recs {
		if keep(&rec.mov) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.mov.Timestamp.Equal(b.mov.Timestamp) {
			return a.mov.Timestamp.Before(b.mov.Timestamp) != desc
		}
		return (a.seq < b.seq) != desc
	})
	out := make([]*entity.StockMovement, 0, len(matched))
	for i := range matched {
		m := matched[i].mov
		out = append(out, &m)
	}
	return out
}

func inRange(ts time.Time, from, to *time.Time) bool {
	if from != nil && ts.Before(*from) {
		return false
	}
	if to != nil && ts.After(*to) {
		return false
	}
	return true
}

// ListByLot historial del lote en orden cronológico.
func (r *MovementRepo) ListByLot(_ context.Context, lotID string, from, to *time.Time) ([]*entity.StockMovement, error) {
	out := filterMovements(r.all(), func(m *entity.StockMovement) bool {
		return m.LotID == lotID && inRange(m.Timestamp, from, to)
	}, false)
	return out, nil
}

// ListByProduct movimientos del producto, más recientes primero.
func (r *MovementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	out := filterMovements(r.all(), func(m *entity.StockMovement) bool {
		return m.ProductID == productID && inRange(m.Timestamp, from, to)
	}, true)
	if offset >= len(out) {
		return []*entity.StockMovement{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
