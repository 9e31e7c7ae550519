//go:build integration

package mysql_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relindex/relindex/store/sqlstore/mysql"
)

// TestOpenAndRoundTrip requires RELINDEX_MYSQL_DSN to point at a live
// server; it skips otherwise so `go test -tags integration ./...` stays
// runnable without infrastructure.
func TestOpenAndRoundTrip(t *testing.T) {
	dsn := os.Getenv("RELINDEX_MYSQL_DSN")
	if dsn == "" {
		t.Skip("RELINDEX_MYSQL_DSN not set")
	}
	ctx := context.Background()
	st, err := mysql.Open(ctx, dsn, 1)
	require.NoError(t, err)

	row, err := st.NewRow(ctx, []any{int64(1)})
	require.NoError(t, err)

	got, ok := st.Get(row.Position, false)
	require.True(t, ok)
	require.Equal(t, row, got)
}
