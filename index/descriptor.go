// Package index implements the AVL-tree row index engine: comparator
// rules, the tree itself (insert/delete/rebalance/search), and a
// bidirectional, MVCC-aware iterator over it. It depends only on the
// store package's narrow contract, never on a concrete backend.
package index

import (
	"fmt"

	"github.com/relindex/relindex/store"
)

// DescriptorConfig is the constructor input for a Descriptor. It mirrors
// the shape a table's index definition would hand the engine: which
// columns participate, in what order, and with what null/direction
// rules.
type DescriptorConfig struct {
	Position       int
	PersistenceID  int64
	Name           string
	TableName      string
	ColumnIndexes  []int
	ColumnTypes    []store.ColumnType
	Descending     []bool
	NullsLast      []bool
	IsPK           bool
	IsUnique       bool
	IsConstraint   bool
	ConstraintName string
	IsForward      bool
	IsClustered    bool

	// SystemVersionColumn, when set, names the row column (by table
	// column index, not by key ordinal) holding the system-versioned end
	// timestamp used as the comparator's zeroth tie-break.
	SystemVersionColumn *int
}

// Descriptor is the immutable shape of one index over one table: which
// columns it orders on, in which direction, and the flags that govern
// uniqueness checking and the comparator's fast path.
type Descriptor struct {
	Position       int
	PersistenceID  int64
	Name           string
	TableName      string
	ColumnIndexes  []int
	ColumnTypes    []store.ColumnType
	Descending     []bool
	NullsLast      []bool
	IsPK           bool
	IsUnique       bool
	IsConstraint   bool
	ConstraintName string
	IsForward      bool
	IsClustered    bool

	SystemVersionColumn *int

	isSimpleOrder bool
	isSimple      bool
}

// NewDescriptor validates cfg and derives isSimpleOrder/isSimple.
func NewDescriptor(cfg DescriptorConfig) (*Descriptor, error) {
	n := len(cfg.ColumnIndexes)
	if n == 0 {
		return nil, fmt.Errorf("relindex: index %q has no key columns", cfg.Name)
	}
	if len(cfg.ColumnTypes) != n {
		return nil, fmt.Errorf("relindex: index %q: columnTypes length %d != columnIndexes length %d", cfg.Name, len(cfg.ColumnTypes), n)
	}
	if len(cfg.Descending) != n {
		return nil, fmt.Errorf("relindex: index %q: descending length %d != columnIndexes length %d", cfg.Name, len(cfg.Descending), n)
	}
	if len(cfg.NullsLast) != n {
		return nil, fmt.Errorf("relindex: index %q: nullsLast length %d != columnIndexes length %d", cfg.Name, len(cfg.NullsLast), n)
	}
	if cfg.IsPK && !cfg.IsUnique {
		return nil, fmt.Errorf("relindex: index %q: isPK requires isUnique", cfg.Name)
	}

	d := &Descriptor{
		Position:            cfg.Position,
		PersistenceID:       cfg.PersistenceID,
		Name:                cfg.Name,
		TableName:           cfg.TableName,
		ColumnIndexes:       append([]int(nil), cfg.ColumnIndexes...),
		ColumnTypes:         append([]store.ColumnType(nil), cfg.ColumnTypes...),
		Descending:          append([]bool(nil), cfg.Descending...),
		NullsLast:           append([]bool(nil), cfg.NullsLast...),
		IsPK:                cfg.IsPK,
		IsUnique:            cfg.IsUnique,
		IsConstraint:        cfg.IsConstraint,
		ConstraintName:      cfg.ConstraintName,
		IsForward:           cfg.IsForward,
		IsClustered:         cfg.IsClustered,
		SystemVersionColumn: cfg.SystemVersionColumn,
	}

	allDefault := true
	for j := 0; j < n; j++ {
		if d.Descending[j] || d.NullsLast[j] {
			allDefault = false
			break
		}
	}
	d.isSimpleOrder = allDefault
	d.isSimple = allDefault && n == 1

	return d, nil
}

// IsSimpleOrder reports whether every column sorts ascending with
// default (nulls-first) null placement, enabling the comparator's fast
// path that skips the per-column direction switch entirely.
func (d *Descriptor) IsSimpleOrder() bool {
	return d.isSimpleOrder
}

// IsSimple reports whether the index has exactly one key column and
// IsSimpleOrder holds.
func (d *Descriptor) IsSimple() bool {
	return d.isSimple
}

// errorName picks the identifier a violation should be reported under:
// the constraint's own name when this index backs a named constraint,
// else the index's own name.
func (d *Descriptor) errorName() string {
	if d.IsConstraint && d.ConstraintName != "" {
		return d.ConstraintName
	}
	return d.Name
}
