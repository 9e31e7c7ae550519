package index_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relindex/relindex/index"
	"github.com/relindex/relindex/store"
	"github.com/relindex/relindex/store/memstore"
)

func uniqueIntDescriptor(t *testing.T) *index.Descriptor {
	t.Helper()
	return descOf(t, index.DescriptorConfig{
		Position:      0,
		Name:          "pk",
		ColumnIndexes: []int{0},
		ColumnTypes:   []store.ColumnType{store.TypeInt64},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
		IsPK:          true,
		IsUnique:      true,
	})
}

func heightOf(n *store.Node) int {
	if n == nil {
		return 0
	}
	lh, rh := heightOf(n.Left), heightOf(n.Right)
	if lh > rh {
		return 1 + lh
	}
	return 1 + rh
}

// assertAVLInvariant walks the whole tree verifying that every node's
// stored Balance equals height(right)-height(left) and stays within
// [-1, 1], and that parent links agree with child links.
func assertAVLInvariant(t *testing.T, root *store.Node) {
	t.Helper()
	var walk func(n, parent *store.Node)
	walk = func(n, parent *store.Node) {
		if n == nil {
			return
		}
		require.Equal(t, parent, n.Parent, "parent link mismatch")
		wantBalance := heightOf(n.Right) - heightOf(n.Left)
		require.Equal(t, wantBalance, int(n.Balance), "balance factor mismatch")
		require.GreaterOrEqual(t, int(n.Balance), -1)
		require.LessOrEqual(t, int(n.Balance), 1)
		walk(n.Left, n)
		walk(n.Right, n)
	}
	walk(root, nil)
}

func collectAscending(tr *index.Tree, st store.Store) []int64 {
	var out []int64
	it := tr.FirstRow(st, nil, 0)
	for it.Next() {
		out = append(out, it.CurrentRow().Values[0].(int64))
	}
	return out
}

func TestTreeInsertMaintainsAVLInvariantAndOrder(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)

	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(500)
	for _, k := range keys {
		row := st.NewRow([]any{int64(k)})
		require.NoError(t, tr.Insert(st, nil, row))
		assertAVLInvariant(t, st.GetAccessor(0))
	}

	got := collectAscending(tr, st)
	require.Len(t, got, 500)
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1], got[i])
	}
}

func TestTreeDeleteMaintainsAVLInvariantAndOrder(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)

	rng := rand.New(rand.NewSource(2))
	keys := rng.Perm(300)
	rows := make(map[int]*store.Row, len(keys))
	for _, k := range keys {
		row := st.NewRow([]any{int64(k)})
		require.NoError(t, tr.Insert(st, nil, row))
		rows[k] = row
	}

	toDelete := rng.Perm(300)[:150]
	remaining := map[int]bool{}
	for _, k := range keys {
		remaining[k] = true
	}
	for _, k := range toDelete {
		require.NoError(t, tr.Delete(st, nil, rows[k]))
		delete(remaining, k)
		assertAVLInvariant(t, st.GetAccessor(0))
	}

	got := collectAscending(tr, st)
	require.Len(t, got, len(remaining))
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1], got[i])
	}
	require.Equal(t, int64(len(remaining)), tr.Size(st, nil))
}

func TestTreeUniqueViolationBlocksVisibleDuplicate(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)

	row1 := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, row1))

	row2 := st.NewRow([]any{int64(7)})
	err := tr.Insert(st, nil, row2)
	require.Error(t, err)
	var idxErr *index.Error
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, index.KindUniqueViolation, idxErr.Kind)
}

func TestTreeUniqueInsertProceedsWhenNeighborInvisible(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)

	invisible := map[int64]bool{}
	st := memstore.New(1, memstore.WithVisibility(func(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool {
		return !invisible[row.Position]
	}))

	row1 := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, row1))
	invisible[row1.Position] = true

	row2 := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, row2))

	assertAVLInvariant(t, st.GetAccessor(0))
}

func TestTreeUniqueViolationCatchesDuplicateOffDescentPath(t *testing.T) {
	// Three rows sharing a key, inserted in increasing row-id order (each
	// while the earlier ones are invisible, so the unique check lets it
	// in), rebalance into a local cluster where the first-inserted row ends
	// up as the left child of the second (the new local root after the
	// right-right rotation triggered by the third insert), with the
	// third as the right child. A fourth insert on the same key descends
	// through the second and third nodes but never visits the first. If
	// only the first row is visible, a uniqueness check limited to the
	// descent path misses the violation entirely.
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)

	invisible := map[int64]bool{}
	st := memstore.New(1, memstore.WithVisibility(func(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool {
		return !invisible[row.Position]
	}))

	rowA := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, rowA))
	invisible[rowA.Position] = true
	rowB := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, rowB))
	invisible[rowB.Position] = true
	rowC := st.NewRow([]any{int64(7)})
	require.NoError(t, tr.Insert(st, nil, rowC))
	assertAVLInvariant(t, st.GetAccessor(0))

	root := st.GetAccessor(0)
	require.Same(t, rowB.Node(0), root, "expected the second-inserted row to become the local root after rebalancing")
	require.Same(t, rowA.Node(0), root.Left)
	require.Same(t, rowC.Node(0), root.Right)

	// Only rowA (off the descent path for a fourth same-key insert) is
	// visible; the nodes a path-only check would see are hidden.
	invisible[rowA.Position] = false
	invisible[rowB.Position] = true
	invisible[rowC.Position] = true

	rowD := st.NewRow([]any{int64(7)})
	err := tr.Insert(st, nil, rowD)
	require.Error(t, err)
	var idxErr *index.Error
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, index.KindUniqueViolation, idxErr.Kind)
}

func TestTreeUniqueAllowsNullKey(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)

	row1 := st.NewRow([]any{nil})
	require.NoError(t, tr.Insert(st, nil, row1))
	row2 := st.NewRow([]any{nil})
	require.NoError(t, tr.Insert(st, nil, row2))
}

func TestFindFirstRowRangeOps(t *testing.T) {
	d := descOf(t, index.DescriptorConfig{
		Name:          "idx",
		ColumnIndexes: []int{0},
		ColumnTypes:   []store.ColumnType{store.TypeInt64},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
	})
	tr := index.NewTree(d)
	st := memstore.New(1)
	for _, k := range []int64{10, 20, 20, 30, 40, 50} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
	}

	readAll := func(it *index.Iterator) []int64 {
		var out []int64
		for it.Next() {
			out = append(out, it.CurrentRow().Values[0].(int64))
		}
		return out
	}

	t.Run("equal", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, []any{int64(20)}, 1, store.OpEqual, false)
		assert.Equal(t, []int64{20, 20}, readAll(it))
	})
	t.Run("greater", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, []any{int64(20)}, 1, store.OpGreater, false)
		assert.Equal(t, []int64{30, 40, 50}, readAll(it))
	})
	t.Run("greater equal", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, []any{int64(20)}, 1, store.OpGreaterEqual, false)
		assert.Equal(t, []int64{20, 20, 30, 40, 50}, readAll(it))
	})
	t.Run("smaller reversed", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, []any{int64(30)}, 1, store.OpSmaller, true)
		assert.Equal(t, []int64{20, 20, 10}, readAll(it))
	})
	t.Run("smaller equal reversed", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, []any{int64(30)}, 1, store.OpSmallerEqual, true)
		assert.Equal(t, []int64{30, 20, 20, 10}, readAll(it))
	})
	t.Run("max", func(t *testing.T) {
		it := tr.FindFirstRow(st, nil, nil, 0, store.OpMax, false)
		assert.Equal(t, []int64{50}, readAll(it))
	})
}

func TestIteratorDistinctHop(t *testing.T) {
	d := descOf(t, index.DescriptorConfig{
		Name:          "idx",
		ColumnIndexes: []int{0},
		ColumnTypes:   []store.ColumnType{store.TypeInt64},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
	})
	tr := index.NewTree(d)
	st := memstore.New(1)
	for _, k := range []int64{1, 1, 1, 2, 2, 3, 4, 4} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
	}

	it := tr.FirstRow(st, nil, 1)
	var out []int64
	for it.Next() {
		out = append(out, it.CurrentRow().Values[0].(int64))
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, out)
}

func TestIteratorSingle(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)
	for _, k := range []int64{1, 2, 3} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
	}
	it := tr.FirstRow(st, nil, 0).Single()
	require.True(t, it.Next())
	assert.Equal(t, int64(1), it.CurrentRow().Values[0].(int64))
	require.False(t, it.Next())
}

func TestIteratorSkipsInvisibleRows(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)

	hidden := map[int64]bool{}
	st := memstore.New(1, memstore.WithVisibility(func(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool {
		return !hidden[row.Position]
	}))
	for _, k := range []int64{1, 2, 3, 4, 5} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
		if k == 2 || k == 4 {
			hidden[row.Position] = true
		}
	}

	session := store.NewSession()
	it := tr.FirstRow(st, session, 0)
	var out []int64
	for it.Next() {
		out = append(out, it.CurrentRow().Values[0].(int64))
	}
	assert.Equal(t, []int64{1, 3, 5}, out)
}

func TestIteratorRemoveCurrent(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)
	for _, k := range []int64{1, 2, 3} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
	}

	it := tr.FindFirstRow(st, nil, []any{int64(2)}, 1, store.OpEqual, false)
	require.True(t, it.Next())
	require.NoError(t, it.RemoveCurrent())

	got := collectAscending(tr, st)
	assert.Equal(t, []int64{1, 3}, got)
	assertAVLInvariant(t, st.GetAccessor(0))
}

func TestSearchCostClampsToAtLeastTwo(t *testing.T) {
	d := uniqueIntDescriptor(t)
	tr := index.NewTree(d)
	st := memstore.New(1)
	for _, k := range []int64{1, 2, 3} {
		row := st.NewRow([]any{k})
		require.NoError(t, tr.Insert(st, nil, row))
	}
	costs := tr.SearchCost(st, nil, 3)
	require.Len(t, costs, 1)
	assert.GreaterOrEqual(t, costs[0], int64(2))
}

func TestSearchCostAllConcurrent(t *testing.T) {
	d1 := uniqueIntDescriptor(t)
	d2 := descOf(t, index.DescriptorConfig{
		Position:      1,
		Name:          "idx2",
		ColumnIndexes: []int{1},
		ColumnTypes:   []store.ColumnType{store.TypeInt64},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
	})
	tr1 := index.NewTree(d1)
	tr2 := index.NewTree(d2)
	st := memstore.New(2)
	for i := int64(0); i < 50; i++ {
		row := st.NewRow([]any{i, i % 5})
		require.NoError(t, tr1.Insert(st, nil, row))
		require.NoError(t, tr2.Insert(st, nil, row))
	}
	results := index.SearchCostAll(st, nil, []*index.Tree{tr1, tr2}, 3)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0][0], int64(2))
	assert.GreaterOrEqual(t, results[1][0], int64(2))
}
