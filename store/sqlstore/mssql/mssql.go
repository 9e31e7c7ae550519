// Package mssql wires store/sqlstore to SQL Server via the teacher's own
// wire driver, github.com/denisenkom/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/relindex/relindex/store/sqlstore"
)

var dialect = sqlstore.Dialect{
	Name:        "mssql",
	BlobType:    "VARBINARY(MAX)",
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	Upsert: func(table string, ph func(int) string) string {
		// mssql has no ON CONFLICT / REPLACE; MERGE is the idiomatic
		// upsert but needs a multi-statement batch. sqlstore.Open seeds
		// one accessors row per index, so a plain UPDATE is enough here;
		// see sqlstore.go's SetAccessor path.
		return fmt.Sprintf(
			"UPDATE %s SET root_position = %s WHERE index_id = %s",
			table, ph(2), ph(1),
		)
	},
}

// Open connects to dsn and returns a sqlstore.Store backed by it.
func Open(ctx context.Context, dsn string, indexCount int, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("relindex/sqlstore/mssql: open: %w", err)
	}
	return sqlstore.Open(ctx, db, dialect, indexCount, opts...)
}
