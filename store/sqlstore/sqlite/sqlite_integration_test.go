//go:build integration

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relindex/relindex/index"
	"github.com/relindex/relindex/store"
	"github.com/relindex/relindex/store/sqlstore/sqlite"
)

func TestRoundTripSurvivesReload(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.Open(ctx, "file:relindex_test.db?mode=memory&cache=shared", 1)
	require.NoError(t, err)

	d, err := index.NewDescriptor(index.DescriptorConfig{
		Name:          "pk",
		ColumnIndexes: []int{0},
		ColumnTypes:   []store.ColumnType{store.TypeInt64},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
		IsPK:          true,
		IsUnique:      true,
	})
	require.NoError(t, err)
	tr := index.NewTree(d)

	for _, v := range []int64{3, 1, 2} {
		row, err := st.NewRow(ctx, []any{v})
		require.NoError(t, err)
		require.NoError(t, tr.Insert(st, nil, row))
	}

	rows, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	tr2 := index.NewTree(d)
	for _, row := range rows {
		require.NoError(t, tr2.Insert(st, nil, row))
	}
	require.EqualValues(t, 3, tr2.Size(st, nil))
}
