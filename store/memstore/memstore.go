// Package memstore is the in-memory reference implementation of
// store.Store: an arena of rows keyed by position, guarded by a single
// reader-writer lock per spec.md section 5. It is the backing used by
// the engine's own unit tests and by cmd/relindexctl.
package memstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/relindex/relindex/store"
)

// VisibilityFunc decides whether row is visible to session under the
// given action mode. A nil VisibilityFunc makes every live row visible
// to everyone, since MVCC policy itself belongs to a transaction
// manager outside this module's scope (spec.md section 1).
type VisibilityFunc func(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool

// Store is a arena-backed, in-memory Store. The zero value is not
// usable; construct with New.
type Store struct {
	id string

	mu           sync.RWMutex
	rows         map[int64]*store.Row
	accessors    map[int]*store.Node
	nextPosition int64
	indexCount   int
	visibility   VisibilityFunc
}

// Option configures a Store at construction.
type Option func(*Store)

// WithVisibility installs a custom MVCC visibility predicate.
func WithVisibility(fn VisibilityFunc) Option {
	return func(s *Store) { s.visibility = fn }
}

// New creates an empty store. indexCount is the number of indexes
// defined over the table this store backs — every row gets that many
// Nodes up front.
func New(indexCount int, opts ...Option) *Store {
	s := &Store{
		id:         uuid.New().String(),
		rows:       make(map[int64]*store.Row),
		accessors:  make(map[int]*store.Node),
		indexCount: indexCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the store's generated identifier.
func (s *Store) ID() string {
	return s.id
}

// NewRow allocates and inserts a row at the next position. Callers then
// run it through each index's Tree.Insert.
func (s *Store) NewRow(values []any) *store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.nextPosition
	s.nextPosition++
	row := store.NewRow(pos, values, s.indexCount)
	s.rows[pos] = row
	return row
}

// RestoreRow inserts a row at a caller-chosen position, advancing
// nextPosition past it if needed. It exists for stores that replay rows
// back from a durable log (see store/sqlstore): the durable layer
// persists row values only, never the index's pointer structure, so
// recovery restores rows first and then replays each one through every
// index's Tree.Insert to rebuild the tree.
func (s *Store) RestoreRow(position int64, values []any) *store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := store.NewRow(position, values, s.indexCount)
	s.rows[position] = row
	if position >= s.nextPosition {
		s.nextPosition = position + 1
	}
	return row
}

func (s *Store) Get(position int64, keep bool) (*store.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[position]
	return row, ok
}

// KeepInMemory is a no-op: every row in memstore is already
// memory-resident for its whole lifetime.
func (s *Store) KeepInMemory(position int64, keep bool) {}

func (s *Store) GetAccessor(indexPosition int) *store.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessors[indexPosition]
}

func (s *Store) SetAccessor(indexPosition int, root *store.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if root == nil {
		delete(s.accessors, indexPosition)
		return
	}
	s.accessors[indexPosition] = root
}

func (s *Store) Delete(session *store.Session, row *store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.Deleted = true
	return nil
}

func (s *Store) Remove(row *store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, row.Position)
}

func (s *Store) CanRead(session *store.Session, row *store.Row, action store.ActionMode, colMap []int) bool {
	if row == nil || row.Deleted {
		return false
	}
	if s.visibility == nil {
		return true
	}
	return s.visibility(session, row, action, colMap)
}

func (s *Store) ReadLock()    { s.mu.RLock() }
func (s *Store) ReadUnlock()  { s.mu.RUnlock() }
func (s *Store) WriteLock()   { s.mu.Lock() }
func (s *Store) WriteUnlock() { s.mu.Unlock() }

func (s *Store) ElementCount(indexPosition int) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, row := range s.rows {
		if !row.Deleted {
			n++
		}
	}
	return n
}

// ElementCountUnique is a best-effort approximation: memstore has no
// comparator of its own, so it cannot group rows by key without help
// from the owning index. Callers that need an exact distinct-key count
// should walk the index with distinctCount instead; this exists only so
// Store satisfies the interface for searchCost callers that tolerate an
// approximation.
func (s *Store) ElementCountUnique(indexPosition int) int64 {
	return s.ElementCount(indexPosition)
}
