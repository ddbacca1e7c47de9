package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla rechaza UPDATE y DELETE mediante trigger.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, transaction_id, lot_id, product_id, kind, signed_quantity, unit_cost_snapshot,
	total_cost, remaining_weight_after, created_at, session_id, sale_id, transformation_id, actor`

// Append añade un movimiento al libro.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, m.LotID, m.ProductID, m.Kind, m.SignedQuantity, m.UnitCostSnapshot,
		m.TotalCost, m.RemainingWeightAfter, m.Timestamp,
		m.Context.SessionID, m.Context.SaleID, m.Context.TransformationID, m.Context.Actor,
	)
	if err != nil {
		return mapError("append stock movement", err)
	}
	return nil
}

// ListByLot historial de un lote en orden cronológico (y de inserción).
func (r *StockMovementRepo) ListByLot(ctx context.Context, lotID string, from, to *time.Time) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE lot_id = $1`
	args := []any{lotID}
	query, args = appendRange(query, args, from, to)
	query += " ORDER BY created_at ASC, seq ASC"
	return r.list(ctx, "list movements by lot", query, args...)
}

// ListByProduct movimientos de un producto, más recientes primero.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	query, args = appendRange(query, args, from, to)
	pos := len(args) + 1
	query += fmt.Sprintf(" ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.list(ctx, "list movements by product", query, args...)
}

func appendRange(query string, args []any, from, to *time.Time) (string, []any) {
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	return query, args
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.LotID, &m.ProductID, &m.Kind, &m.SignedQuantity, &m.UnitCostSnapshot,
			&m.TotalCost, &m.RemainingWeightAfter, &m.Timestamp,
			&m.Context.SessionID, &m.Context.SaleID, &m.Context.TransformationID, &m.Context.Actor,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}
