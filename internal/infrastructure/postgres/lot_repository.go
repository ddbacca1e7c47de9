package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q         Querier
	forUpdate bool
}

// NewLotRepository construye el adaptador de lotes para lecturas con el pool.
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

// newTxLotRepository adaptador atado a una tx: las lecturas de lotes abiertos bloquean filas.
func newTxLotRepository(tx pgx.Tx) *LotRepo {
	return &LotRepo{q: tx, forUpdate: true}
}

const lotColumns = `id, product_id, source_type, initial_weight, remaining_weight, unit_cost,
	created_at, closed, closed_at, provenance, purchase_id, purchase_line_id, composition, version`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var (
		l                          entity.Lot
		provenance, composition    []byte
		purchaseID, purchaseLineID *string
	)
	if err := row.Scan(
		&l.ID, &l.ProductID, &l.SourceType, &l.InitialWeight, &l.RemainingWeight, &l.UnitCost,
		&l.CreatedAt, &l.Closed, &l.ClosedAt, &provenance, &purchaseID, &purchaseLineID, &composition, &l.Version,
	); err != nil {
		return nil, err
	}
	if len(provenance) > 0 {
		if err := json.Unmarshal(provenance, &l.Provenance); err != nil {
			return nil, fmt.Errorf("decode provenance: %w", err)
		}
	}
	if len(composition) > 0 {
		if err := json.Unmarshal(composition, &l.Composition); err != nil {
			return nil, fmt.Errorf("decode composition: %w", err)
		}
	}
	if purchaseID != nil {
		l.PurchaseID = *purchaseID
	}
	if purchaseLineID != nil {
		l.PurchaseLineID = *purchaseLineID
	}
	return &l, nil
}

func (r *LotRepo) queryLots(ctx context.Context, op, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func (r *LotRepo) queryLot(ctx context.Context, op, query string, args ...any) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return l, nil
}

// Create persiste un lote nuevo con version 1.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	provenance, err := json.Marshal(lot.Provenance)
	if err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}
	composition := lot.Composition
	if composition == nil {
		composition = []entity.CompositionEntry{}
	}
	compJSON, err := json.Marshal(composition)
	if err != nil {
		return fmt.Errorf("encode composition: %w", err)
	}
	query := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`
	_, err = r.q.Exec(ctx, query,
		lot.ID, lot.ProductID, lot.SourceType, lot.InitialWeight, lot.RemainingWeight, lot.UnitCost,
		lot.CreatedAt, lot.Closed, lot.ClosedAt, provenance,
		nullable(lot.PurchaseID), nullable(lot.PurchaseLineID), compJSON,
	)
	if err != nil {
		return mapError("create lot", err)
	}
	lot.Version = 1
	return nil
}

// GetByID obtiene un lote por ID; nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}
	return r.queryLot(ctx, "get lot", query, id)
}

// GetByPurchaseLine obtiene el lote de una línea de compra; nil si no existe.
func (r *LotRepo) GetByPurchaseLine(ctx context.Context, purchaseID, lineID string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE purchase_id = $1 AND purchase_line_id = $2`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}
	return r.queryLot(ctx, "get lot by purchase line", query, purchaseID, lineID)
}

// ListOpenByProduct lotes abiertos del producto en orden FIFO; en tx bloquea las filas (SELECT FOR UPDATE).
func (r *LotRepo) ListOpenByProduct(ctx context.Context, productID string) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots WHERE product_id = $1 AND closed = FALSE
		ORDER BY created_at ASC, id ASC`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}
	return r.queryLots(ctx, "list open lots", query, productID)
}

// LastClosedByProduct lote cerrado más reciente del producto; nil si no hay.
func (r *LotRepo) LastClosedByProduct(ctx context.Context, productID string) (*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots WHERE product_id = $1 AND closed = TRUE
		ORDER BY closed_at DESC NULLS LAST, id DESC
		LIMIT 1`
	return r.queryLot(ctx, "last closed lot", query, productID)
}

// checkSwap interpreta un UPDATE con compare-and-swap que no afectó filas.
func (r *LotRepo) checkSwap(ctx context.Context, id string) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lots WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapError("check lot", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: lote %s modificado por otra operación", domain.ErrConflict, id)
}

// UpdateRemaining actualiza peso restante y cierre si la versión coincide.
func (r *LotRepo) UpdateRemaining(ctx context.Context, lot *entity.Lot) error {
	query := `
		UPDATE lots SET remaining_weight = $3, closed = $4, closed_at = $5, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, lot.ID, lot.Version, lot.RemainingWeight, lot.Closed, lot.ClosedAt)
	if err != nil {
		return mapError("update lot remaining", err)
	}
	if tag.RowsAffected() == 0 {
		return r.checkSwap(ctx, lot.ID)
	}
	lot.Version++
	return nil
}

// Replace reescribe producto, pesos, costo y trazabilidad si la versión coincide.
func (r *LotRepo) Replace(ctx context.Context, lot *entity.Lot) error {
	provenance, err := json.Marshal(lot.Provenance)
	if err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}
	query := `
		UPDATE lots SET product_id = $3, initial_weight = $4, remaining_weight = $5, unit_cost = $6,
			closed = $7, closed_at = $8, provenance = $9, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, lot.ID, lot.Version,
		lot.ProductID, lot.InitialWeight, lot.RemainingWeight, lot.UnitCost,
		lot.Closed, lot.ClosedAt, provenance,
	)
	if err != nil {
		return mapError("replace lot", err)
	}
	if tag.RowsAffected() == 0 {
		return r.checkSwap(ctx, lot.ID)
	}
	lot.Version++
	return nil
}

// Delete elimina un lote.
func (r *LotRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return mapError("delete lot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
