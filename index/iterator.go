package index

import (
	"errors"

	"github.com/relindex/relindex/internal/rlog"
	"github.com/relindex/relindex/store"
)

// Iterator walks one index in ascending or descending key order,
// skipping rows the session cannot see. It holds no lock between calls
// to Next — each call re-acquires the store's read lock for the span of
// computing the following candidate, so a long-lived iterator never
// blocks writers indefinitely.
type Iterator struct {
	tree    *Tree
	store   store.Store
	session *store.Session

	reversed      bool
	single        bool
	distinctCount int

	// boundCheck, when set, ends iteration (without consuming the row)
	// the first time a candidate no longer satisfies the predicate the
	// iterator was built for.
	boundCheck func(*store.Row) bool

	nextCandidate *store.Node
	current       *store.Node
	done          bool
}

// Single restricts the iterator to at most one row.
func (it *Iterator) Single() *Iterator {
	it.single = true
	return it
}

// Next advances the iterator to the next visible row. It returns false
// once the index, the predicate bound, or the session's interruption
// flag ends the scan.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.session.Interrupted() {
		rlog.Debug("relindex iterator cancelled", "index", it.tree.desc.Name)
		it.done = true
		return false
	}

	it.store.ReadLock()
	defer it.store.ReadUnlock()

	for {
		cand := it.nextCandidate
		if cand == nil {
			rlog.Debug("relindex iterator exhausted", "index", it.tree.desc.Name)
			it.done = true
			return false
		}
		if it.boundCheck != nil && !it.boundCheck(cand.Row) {
			it.done = true
			it.nextCandidate = nil
			return false
		}

		it.nextCandidate = it.advance(cand)

		if it.session != nil && !it.store.CanRead(it.session, cand.Row, store.ActionRead, nil) {
			continue
		}

		it.current = cand
		if it.single {
			it.nextCandidate = nil
		}
		return true
	}
}

// CurrentRow returns the row reached by the most recent successful
// call to Next, or nil if Next has not yet succeeded.
func (it *Iterator) CurrentRow() *store.Row {
	if it.current == nil {
		return nil
	}
	return it.current.Row
}

// RemoveCurrent unlinks the current row from this index and marks it
// deleted in the store. Only this index's node is touched; a caller
// maintaining several indexes over the same table must remove the row
// from each index itself.
func (it *Iterator) RemoveCurrent() error {
	if it.current == nil {
		return errors.New("relindex: RemoveCurrent called with no current row")
	}
	row := it.current.Row
	if err := it.tree.Delete(it.store, it.session, row); err != nil {
		return err
	}
	return it.store.Delete(it.session, row)
}

func (it *Iterator) advance(cand *store.Node) *store.Node {
	if it.distinctCount > 0 {
		if it.reversed {
			return it.prevDistinct(cand)
		}
		return it.nextDistinct(cand)
	}
	if it.reversed {
		return predecessor(cand)
	}
	return successor(cand)
}

func (it *Iterator) nextDistinct(cand *store.Node) *store.Node {
	root := it.store.GetAccessor(it.tree.desc.Position)
	key := it.prefixKey(cand)
	return it.tree.findBoundary(root, key, it.distinctCount, store.OpGreater, false)
}

func (it *Iterator) prevDistinct(cand *store.Node) *store.Node {
	root := it.store.GetAccessor(it.tree.desc.Position)
	key := it.prefixKey(cand)
	return it.tree.findBoundary(root, key, it.distinctCount, store.OpSmaller, true)
}

func (it *Iterator) prefixKey(cand *store.Node) []any {
	key := make([]any, it.distinctCount)
	for j := 0; j < it.distinctCount; j++ {
		key[j] = cand.Row.Values[it.tree.desc.ColumnIndexes[j]]
	}
	return key
}
