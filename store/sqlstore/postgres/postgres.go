// Package postgres wires store/sqlstore to PostgreSQL via the teacher's
// own wire driver, github.com/lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/relindex/relindex/store/sqlstore"
)

var dialect = sqlstore.Dialect{
	Name:        "postgres",
	BlobType:    "BYTEA",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Upsert: func(table string, ph func(int) string) string {
		return fmt.Sprintf(
			"INSERT INTO %s (index_id, root_position) VALUES (%s, %s) ON CONFLICT (index_id) DO UPDATE SET root_position = EXCLUDED.root_position",
			table, ph(1), ph(2),
		)
	},
}

// Open connects to dsn and returns a sqlstore.Store backed by it.
func Open(ctx context.Context, dsn string, indexCount int, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore/postgres: open: %w", err)
	}
	return sqlstore.Open(ctx, db, dialect, indexCount, opts...)
}
