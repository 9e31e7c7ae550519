package store

// OpType names the predicate family an index range-scan starts from,
// mirroring the comparison operators the core supports when looking up
// an access path (spec.md 4.1/6: "Obtain an iterator for a predicate").
type OpType int

const (
	OpEqual OpType = iota
	OpGreater
	OpGreaterEqual
	OpSmaller
	OpSmallerEqual
	OpIsNull
	OpIsNotNull
	OpMax
)

// Store is the narrow contract the index engine depends on. A store
// owns row storage, the per-index root accessor, and the MVCC visibility
// predicate; it does not know about comparators, balance factors, or
// rotations. Mutation methods assume the caller already holds the
// store's write lock (spec.md section 5) — Store itself only arbitrates
// the lock, it does not serialize calls internally.
type Store interface {
	// Get fetches a row by position. keep hints that the caller wants it
	// pinned in memory across the call (a no-op for a pure in-memory
	// store; meaningful for a paging backend).
	Get(position int64, keep bool) (*Row, bool)

	// KeepInMemory toggles the pin hint for an already-fetched row.
	KeepInMemory(position int64, keep bool)

	// GetAccessor returns the current root node for the index at the
	// given position, or nil if the index is empty.
	GetAccessor(indexPosition int) *Node

	// SetAccessor replaces the root node for the index at the given
	// position. A nil root marks the index empty.
	SetAccessor(indexPosition int, root *Node)

	// Delete marks a row deleted and releases any cache pin. It does not
	// unlink the row from any index; that is index.Tree.Delete's job.
	Delete(session *Session, row *Row) error

	// Remove drops a row from the store entirely. Callers only call this
	// once every index has unlinked the row's nodes.
	Remove(row *Row)

	// CanRead answers the MVCC visibility predicate for a row under the
	// given action mode. colMap, when non-nil, narrows which columns the
	// caller cares about (used by REF lookups); a nil colMap means "the
	// whole row".
	CanRead(session *Session, row *Row, action ActionMode, colMap []int) bool

	ReadLock()
	ReadUnlock()
	WriteLock()
	WriteUnlock()

	// ElementCount reports the store's total live row count. Used as the
	// numerator in searchCost's cardinality estimate.
	ElementCount(indexPosition int) int64

	// ElementCountUnique reports a best-effort distinct-key estimate for
	// the given index. A store with no comparator awareness of its own
	// may fall back to ElementCount.
	ElementCountUnique(indexPosition int) int64
}
