// Package store defines the narrow contract the index engine depends on:
// rows, their AVL nodes, sessions, and the persistent-cache abstraction
// that serves them. It owns no storage itself beyond the model types;
// concrete backings live in store/memstore and store/sqlstore.
package store

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ColumnType names the typed comparison semantics for one column
// participating in an index key.
type ColumnType int

const (
	TypeInt64 ColumnType = iota
	TypeFloat64
	TypeString
	TypeBool
	TypeTimestamp
)

// ActionMode governs the strictness of a Store's visibility predicate.
type ActionMode int

const (
	// ActionRead gates ordinary scan/iteration visibility.
	ActionRead ActionMode = iota
	// ActionRef gates foreign-key parent lookups.
	ActionRef
	// ActionDup gates the uniqueness-neighborhood visibility check on insert.
	ActionDup
)

func (a ActionMode) String() string {
	switch a {
	case ActionRead:
		return "READ"
	case ActionRef:
		return "REF"
	case ActionDup:
		return "DUP"
	default:
		return "UNKNOWN"
	}
}

// Session is the explicit replacement for an implicit thread-local
// "current session". A nil *Session means "bypass MVCC" throughout the
// index engine. Interrupted is cooperative: iteration checks it between
// rows and stops early without corrupting any structure.
type Session struct {
	ID string

	interrupted atomic.Bool
}

// NewSession creates a session with a fresh opaque identifier.
func NewSession() *Session {
	return &Session{ID: uuid.New().String()}
}

// Interrupt marks the session as cancelled. Safe to call concurrently.
func (s *Session) Interrupt() {
	if s == nil {
		return
	}
	s.interrupted.Store(true)
}

// Interrupted reports whether Interrupt was called. A nil session is
// never interrupted.
func (s *Session) Interrupted() bool {
	return s != nil && s.interrupted.Load()
}

// Node is one of a row's N AVL nodes, one per index defined over its
// table. Links are direct pointers: this module implements only the
// memory-resident node representation (spec's "capability set"
// remapping) since on-disk page layout is out of this module's scope and
// stays hidden behind Store.
type Node struct {
	Row          *Row
	IndexPosition int
	Left, Right, Parent *Node
	Balance      int8
}

// ChildAt returns the left child if left is true, else the right child.
func (n *Node) ChildAt(left bool) *Node {
	if left {
		return n.Left
	}
	return n.Right
}

// SetChildAt sets the left or right child link.
func (n *Node) SetChildAt(left bool, child *Node) {
	if left {
		n.Left = child
	} else {
		n.Right = child
	}
}

// IsRoot reports whether this node has no parent link. It does not by
// itself confirm the node is the index's accessor root; callers compare
// against Store.GetAccessor for that.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Row is an ordered tuple of typed values plus a monotonic position
// identifier, carrying one Node per index defined over its table.
type Row struct {
	Position int64
	Values   []any
	Nodes    []*Node
	Deleted  bool
}

// NewRow allocates a row and its per-index node set. indexCount is the
// table's number of defined indexes (N in the spec's data model).
func NewRow(position int64, values []any, indexCount int) *Row {
	r := &Row{Position: position, Values: values, Nodes: make([]*Node, indexCount)}
	for i := range r.Nodes {
		r.Nodes[i] = &Node{Row: r, IndexPosition: i}
	}
	return r
}

// Node returns the row's node for the index at the given position.
func (r *Row) Node(indexPosition int) *Node {
	return r.Nodes[indexPosition]
}
