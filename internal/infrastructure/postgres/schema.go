package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate crea el esquema de lotes y del libro de movimientos si no existe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return mapError("migrate", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS lots (
	id               TEXT PRIMARY KEY,
	product_id       TEXT NOT NULL,
	source_type      TEXT NOT NULL CHECK (source_type IN ('purchase', 'transformation', 'recipe')),
	initial_weight   NUMERIC NOT NULL CHECK (initial_weight > 0 AND initial_weight = round(initial_weight, 4)),
	remaining_weight NUMERIC NOT NULL CHECK (remaining_weight >= 0 AND remaining_weight <= initial_weight AND remaining_weight = round(remaining_weight, 4)),
	unit_cost        NUMERIC NOT NULL CHECK (unit_cost >= 0 AND unit_cost = round(unit_cost, 4)),
	created_at       TIMESTAMPTZ NOT NULL,
	closed           BOOLEAN NOT NULL DEFAULT FALSE,
	closed_at        TIMESTAMPTZ,
	provenance       JSONB NOT NULL DEFAULT '{}',
	purchase_id      TEXT,
	purchase_line_id TEXT,
	composition      JSONB NOT NULL DEFAULT '[]',
	version          BIGINT NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS lots_purchase_line_uq
	ON lots (purchase_id, purchase_line_id) WHERE purchase_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS lots_product_open_idx
	ON lots (product_id, created_at, id) WHERE closed = FALSE;
CREATE INDEX IF NOT EXISTS lots_product_closed_idx
	ON lots (product_id, closed_at DESC) WHERE closed = TRUE;

CREATE TABLE IF NOT EXISTS stock_movements (
	seq                    BIGSERIAL PRIMARY KEY,
	id                     TEXT NOT NULL UNIQUE,
	transaction_id         TEXT NOT NULL,
	lot_id                 TEXT NOT NULL,
	product_id             TEXT NOT NULL,
	kind                   TEXT NOT NULL,
	signed_quantity        NUMERIC NOT NULL CHECK (signed_quantity = round(signed_quantity, 4)),
	unit_cost_snapshot     NUMERIC NOT NULL CHECK (unit_cost_snapshot = round(unit_cost_snapshot, 4)),
	total_cost             NUMERIC NOT NULL CHECK (total_cost = round(total_cost, 8)),
	remaining_weight_after NUMERIC NOT NULL CHECK (remaining_weight_after = round(remaining_weight_after, 4)),
	created_at             TIMESTAMPTZ NOT NULL,
	session_id             TEXT NOT NULL DEFAULT '',
	sale_id                TEXT NOT NULL DEFAULT '',
	transformation_id      TEXT NOT NULL DEFAULT '',
	actor                  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS stock_movements_lot_idx ON stock_movements (lot_id, created_at, seq);
CREATE INDEX IF NOT EXISTS stock_movements_product_idx ON stock_movements (product_id, created_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS stock_movements_tx_idx ON stock_movements (transaction_id);

CREATE OR REPLACE FUNCTION stock_movements_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'stock_movements es de solo inserción';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS stock_movements_no_update ON stock_movements;
CREATE TRIGGER stock_movements_no_update
	BEFORE UPDATE OR DELETE ON stock_movements
	FOR EACH ROW EXECUTE FUNCTION stock_movements_append_only();
`
