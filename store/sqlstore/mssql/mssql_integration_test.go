//go:build integration

package mssql_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relindex/relindex/store/sqlstore/mssql"
)

// TestOpenAndRoundTrip requires RELINDEX_MSSQL_DSN to point at a live
// server; it skips otherwise so `go test -tags integration ./...` stays
// runnable without infrastructure.
func TestOpenAndRoundTrip(t *testing.T) {
	dsn := os.Getenv("RELINDEX_MSSQL_DSN")
	if dsn == "" {
		t.Skip("RELINDEX_MSSQL_DSN not set")
	}
	ctx := context.Background()
	st, err := mssql.Open(ctx, dsn, 1)
	require.NoError(t, err)

	row, err := st.NewRow(ctx, []any{int64(1)})
	require.NoError(t, err)

	got, ok := st.Get(row.Position, false)
	require.True(t, ok)
	require.Equal(t, row, got)
}
