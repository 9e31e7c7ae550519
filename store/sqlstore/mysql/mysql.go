// Package mysql wires store/sqlstore to MySQL via the teacher's own wire
// driver, github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/relindex/relindex/store/sqlstore"
)

var dialect = sqlstore.Dialect{
	Name:        "mysql",
	BlobType:    "BLOB",
	Placeholder: func(int) string { return "?" },
	Upsert: func(table string, ph func(int) string) string {
		return fmt.Sprintf("REPLACE INTO %s (index_id, root_position) VALUES (%s, %s)", table, ph(1), ph(2))
	},
}

// Open connects to dsn and returns a sqlstore.Store backed by it.
func Open(ctx context.Context, dsn string, indexCount int, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore/mysql: open: %w", err)
	}
	return sqlstore.Open(ctx, db, dialect, indexCount, opts...)
}
