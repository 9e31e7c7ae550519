// Package sqlite wires store/sqlstore to SQLite via modernc.org/sqlite,
// a pure-Go, cgo-free driver — the teacher's preferred local-dev path
// over mattn/go-sqlite3 for exactly that reason.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/relindex/relindex/store/sqlstore"
)

var dialect = sqlstore.Dialect{
	Name:        "sqlite",
	BlobType:    "BLOB",
	Placeholder: func(int) string { return "?" },
	Upsert: func(table string, ph func(int) string) string {
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (index_id, root_position) VALUES (%s, %s)", table, ph(1), ph(2))
	},
}

// Open connects to dataSourceName (e.g. "file:test.db?cache=shared" or
// ":memory:") and returns a sqlstore.Store backed by it.
func Open(ctx context.Context, dataSourceName string, indexCount int, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore/sqlite: open: %w", err)
	}
	return sqlstore.Open(ctx, db, dialect, indexCount, opts...)
}
