package index

import (
	"github.com/relindex/relindex/store"
)

// Tree is the AVL engine for one index over one table. It holds no row
// data of its own — every node, and the root accessor, live behind the
// store.Store the caller passes to each operation. Size, SearchCost,
// FindFirstRow, FirstRow and LastRow take the store's read lock
// themselves (and each Iterator.Next takes it again); Insert and Delete
// take no lock of their own.
type Tree struct {
	desc *Descriptor
}

// NewTree returns the engine for the given index descriptor.
func NewTree(desc *Descriptor) *Tree {
	return &Tree{desc: desc}
}

// Descriptor returns the tree's index descriptor.
func (t *Tree) Descriptor() *Descriptor {
	return t.desc
}

func successor(n *store.Node) *store.Node {
	if n.Right != nil {
		n = n.Right
		for n.Left != nil {
			n = n.Left
		}
		return n
	}
	for n.Parent != nil && n.Parent.Right == n {
		n = n.Parent
	}
	return n.Parent
}

func predecessor(n *store.Node) *store.Node {
	if n.Left != nil {
		n = n.Left
		for n.Right != nil {
			n = n.Right
		}
		return n
	}
	for n.Parent != nil && n.Parent.Left == n {
		n = n.Parent
	}
	return n.Parent
}

func treeMin(root *store.Node) *store.Node {
	if root == nil {
		return nil
	}
	for root.Left != nil {
		root = root.Left
	}
	return root
}

func treeMax(root *store.Node) *store.Node {
	if root == nil {
		return nil
	}
	for root.Right != nil {
		root = root.Right
	}
	return root
}

// replace swaps oldNode for newNode under parent, or updates the
// store's root accessor directly when parent is nil (oldNode was root).
func (t *Tree) replace(st store.Store, parent, oldNode, newNode *store.Node) {
	if newNode != nil {
		newNode.Parent = parent
	}
	if parent == nil {
		st.SetAccessor(t.desc.Position, newNode)
		return
	}
	if parent.Left == oldNode {
		parent.Left = newNode
	} else {
		parent.Right = newNode
	}
}

// rotateLeft and rotateRight are the generic single rotations, correct
// for both the insert- and delete-triggered rebalancing cases (unlike a
// height-tracking AVL, a balance-factor-only AVL needs the general
// update formula rather than the insert-only special case, since
// deletion can present a pivot with balance 0).
func rotateLeft(z *store.Node) *store.Node {
	y := z.Right
	z.Right = y.Left
	if y.Left != nil {
		y.Left.Parent = z
	}
	y.Left = z
	z.Parent = y

	zb, yb := int(z.Balance), int(y.Balance)
	newZB := zb - 1 - max(yb, 0)
	newYB := yb - 1 + min(newZB, 0)
	z.Balance = int8(newZB)
	y.Balance = int8(newYB)
	return y
}

func rotateRight(z *store.Node) *store.Node {
	y := z.Left
	z.Left = y.Right
	if y.Right != nil {
		y.Right.Parent = z
	}
	y.Right = z
	z.Parent = y

	zb, yb := int(z.Balance), int(y.Balance)
	newZB := zb + 1 - min(yb, 0)
	newYB := yb + 1 + max(newZB, 0)
	z.Balance = int8(newZB)
	y.Balance = int8(newYB)
	return y
}

func rotateLeftRight(z *store.Node) *store.Node {
	z.Left = rotateLeft(z.Left)
	z.Left.Parent = z
	return rotateRight(z)
}

func rotateRightLeft(z *store.Node) *store.Node {
	z.Right = rotateRight(z.Right)
	z.Right.Parent = z
	return rotateLeft(z)
}

// Insert places row's node for this index into the tree. If the index
// is unique and the key contains no null, the first equal-key node
// found along the descent triggers a sweep of the whole equal-key
// neighborhood (every row tied on key columns, not just the nodes the
// descent happens to pass through — an equal-key cluster of three or
// more rows can balance so that a visible duplicate sits off the
// descent path) for MVCC visibility to the inserting session
// (ActionDup): a visible neighbor aborts the insert before any
// structural change; an invisible one is skipped, and the insert
// proceeds with the row-id tie-break, exactly as an engine supporting
// snapshot isolation must (two sessions may each believe they are
// inserting the only live copy of a key).
func (t *Tree) Insert(st store.Store, session *store.Session, row *store.Row) error {
	d := t.desc
	node := row.Node(d.Position)
	node.Left, node.Right, node.Parent, node.Balance = nil, nil, nil, 0

	root := st.GetAccessor(d.Position)
	if root == nil {
		st.SetAccessor(d.Position, node)
		return nil
	}

	hasNull := d.hasNullKey(row)
	uniqueChecked := false
	cur := root
	for {
		colSign := d.compareColumnsOnly(row, cur.Row)
		if colSign == 0 && d.IsUnique && !hasNull && !uniqueChecked {
			if t.hasVisibleDuplicate(st, session, row, cur) {
				return newUniqueViolation(d)
			}
			uniqueChecked = true
		}

		var goLeft bool
		if colSign != 0 {
			goLeft = colSign < 0
		} else if d.SystemVersionColumn != nil {
			if vsign := compareSystemVersion(row, cur.Row, *d.SystemVersionColumn); vsign != 0 {
				goLeft = vsign < 0
			} else {
				goLeft = rowIDLess(row, cur.Row)
			}
		} else {
			goLeft = rowIDLess(row, cur.Row)
		}

		child := cur.ChildAt(goLeft)
		if child == nil {
			cur.SetChildAt(goLeft, node)
			node.Parent = cur
			break
		}
		cur = child
	}

	t.rebalanceAfterInsert(st, node)
	return nil
}

// hasVisibleDuplicate checks start, plus every node reachable by
// walking predecessors and successors while they stay tied with row on
// key columns, for MVCC visibility to session. The equal-key cluster is
// contiguous in in-order sequence (the comparator orders by key columns
// first), so walking outward from any one member in both directions
// until the tie breaks reaches every other member exactly once.
func (t *Tree) hasVisibleDuplicate(st store.Store, session *store.Session, row *store.Row, start *store.Node) bool {
	d := t.desc
	if st.CanRead(session, start.Row, store.ActionDup, d.ColumnIndexes) {
		return true
	}
	for n := predecessor(start); n != nil && d.compareColumnsOnly(row, n.Row) == 0; n = predecessor(n) {
		if st.CanRead(session, n.Row, store.ActionDup, d.ColumnIndexes) {
			return true
		}
	}
	for n := successor(start); n != nil && d.compareColumnsOnly(row, n.Row) == 0; n = successor(n) {
		if st.CanRead(session, n.Row, store.ActionDup, d.ColumnIndexes) {
			return true
		}
	}
	return false
}

func rowIDLess(a, b *store.Row) bool {
	if a.Position == b.Position {
		panic(newInvariantError("two distinct rows share position %d", a.Position))
	}
	return a.Position < b.Position
}

func (t *Tree) rebalanceAfterInsert(st store.Store, inserted *store.Node) {
	child := inserted
	parent := inserted.Parent
	for parent != nil {
		if parent.Left == child {
			parent.Balance--
		} else {
			parent.Balance++
		}

		switch {
		case parent.Balance == 0:
			return
		case parent.Balance == 1 || parent.Balance == -1:
			child = parent
			parent = parent.Parent
		default:
			gp := parent.Parent
			var newRoot *store.Node
			if parent.Balance == -2 {
				if parent.Left.Balance == 1 {
					newRoot = rotateLeftRight(parent)
				} else {
					newRoot = rotateRight(parent)
				}
			} else {
				if parent.Right.Balance == -1 {
					newRoot = rotateRightLeft(parent)
				} else {
					newRoot = rotateLeft(parent)
				}
			}
			t.replace(st, gp, parent, newRoot)
			return
		}
	}
}

// Delete unlinks row's node for this index from the tree and
// rebalances. If the node has two children, the engine splices out its
// in-order predecessor and grafts it into the deleted node's place
// (rather than moving row data, since a Node's identity is tied to its
// owning Row).
func (t *Tree) Delete(st store.Store, session *store.Session, row *store.Row) error {
	d := t.desc
	node := row.Node(d.Position)
	if node.Parent == nil && st.GetAccessor(d.Position) != node {
		return newInvariantError("node for row %d is not linked into index %q", row.Position, d.Name)
	}

	if node.Left != nil && node.Right != nil {
		pred := node.Left
		for pred.Right != nil {
			pred = pred.Right
		}
		pParent := pred.Parent
		predLeft := pred.Left

		if pParent == node {
			node.Left = predLeft
			if predLeft != nil {
				predLeft.Parent = node
			}
		} else {
			pParent.Right = predLeft
			if predLeft != nil {
				predLeft.Parent = pParent
			}
		}

		pred.Left = node.Left
		if pred.Left != nil {
			pred.Left.Parent = pred
		}
		pred.Right = node.Right
		if pred.Right != nil {
			pred.Right.Parent = pred
		}
		pred.Balance = node.Balance

		gp := node.Parent
		t.replace(st, gp, node, pred)

		if pParent == node {
			t.rebalanceAfterDelete(st, pred, true)
		} else {
			t.rebalanceAfterDelete(st, pParent, false)
		}

		node.Left, node.Right, node.Parent, node.Balance = nil, nil, nil, 0
		return nil
	}

	child := node.Left
	if child == nil {
		child = node.Right
	}
	parent := node.Parent
	wasLeft := parent != nil && parent.Left == node
	t.replace(st, parent, node, child)
	node.Left, node.Right, node.Parent, node.Balance = nil, nil, nil, 0
	if parent != nil {
		t.rebalanceAfterDelete(st, parent, wasLeft)
	}
	return nil
}

func (t *Tree) rebalanceAfterDelete(st store.Store, node *store.Node, deletedFromLeft bool) {
	cur := node
	for cur != nil {
		if deletedFromLeft {
			cur.Balance++
		} else {
			cur.Balance--
		}

		parent := cur.Parent
		var wasLeftOfParent bool
		if parent != nil {
			wasLeftOfParent = parent.Left == cur
		}

		switch {
		case cur.Balance == 1 || cur.Balance == -1:
			return
		case cur.Balance == 0:
			cur = parent
			deletedFromLeft = wasLeftOfParent
		default:
			heightUnchanged := false
			var newRoot *store.Node
			if cur.Balance == -2 {
				sib := cur.Left
				if sib.Balance == 1 {
					newRoot = rotateLeftRight(cur)
				} else {
					if sib.Balance == 0 {
						heightUnchanged = true
					}
					newRoot = rotateRight(cur)
				}
			} else {
				sib := cur.Right
				if sib.Balance == -1 {
					newRoot = rotateRightLeft(cur)
				} else {
					if sib.Balance == 0 {
						heightUnchanged = true
					}
					newRoot = rotateLeft(cur)
				}
			}
			t.replace(st, parent, cur, newRoot)
			if heightUnchanged {
				return
			}
			cur = parent
			deletedFromLeft = wasLeftOfParent
		}
	}
}

// Size walks the whole index under the store's read lock, counting rows
// visible to session (a nil session sees every live row).
func (t *Tree) Size(st store.Store, session *store.Session) int64 {
	st.ReadLock()
	defer st.ReadUnlock()

	var count int64
	cur := treeMin(st.GetAccessor(t.desc.Position))
	for cur != nil {
		if session == nil || st.CanRead(session, cur.Row, store.ActionRead, nil) {
			count++
		}
		cur = successor(cur)
	}
	return count
}

// findBoundary locates the node an iterator should start from for a
// given predicate and scan direction. Greater/GreaterEqual predicates
// carve out an upward-closed suffix of the sorted order, so scanning
// ascending starts at the smallest qualifying node (found by descent)
// while scanning descending starts at the overall maximum. Smaller/
// SmallerEqual carve out a prefix, so the roles invert. Equal always
// needs descent, picking the leftmost or rightmost node of the matching
// cluster depending on direction.
func (t *Tree) findBoundary(root *store.Node, key []any, fieldCount int, op store.OpType, reversed bool) *store.Node {
	switch op {
	case store.OpEqual:
		return t.descendEqual(root, key, fieldCount, reversed)
	case store.OpGreaterEqual, store.OpGreater:
		if !reversed {
			return t.descendThreshold(root, key, fieldCount, op)
		}
		return treeMax(root)
	case store.OpSmallerEqual, store.OpSmaller:
		if reversed {
			return t.descendThreshold(root, key, fieldCount, op)
		}
		return treeMin(root)
	default:
		return nil
	}
}

func (t *Tree) descendEqual(root *store.Node, key []any, fieldCount int, reversed bool) *store.Node {
	var result *store.Node
	cur := root
	for cur != nil {
		sign := t.desc.compareColumnsPrefix(cur.Row, key, fieldCount)
		switch {
		case sign == 0:
			result = cur
			if reversed {
				cur = cur.Right
			} else {
				cur = cur.Left
			}
		case sign < 0:
			cur = cur.Right
		default:
			cur = cur.Left
		}
	}
	return result
}

// descendThreshold finds the node closest to key that still satisfies
// op, by always moving toward the boundary: for an upward-closed
// predicate (Greater/GreaterEqual) that means recording a match and then
// trying to find an even smaller one; for a downward-closed predicate
// (Smaller/SmallerEqual) it means recording a match and trying to find
// an even larger one.
func (t *Tree) descendThreshold(root *store.Node, key []any, fieldCount int, op store.OpType) *store.Node {
	upwardClosed := op == store.OpGreaterEqual || op == store.OpGreater
	var result *store.Node
	cur := root
	for cur != nil {
		sign := t.desc.compareColumnsPrefix(cur.Row, key, fieldCount)
		var matched bool
		switch op {
		case store.OpGreaterEqual:
			matched = sign >= 0
		case store.OpGreater:
			matched = sign > 0
		case store.OpSmallerEqual:
			matched = sign <= 0
		case store.OpSmaller:
			matched = sign < 0
		}
		if matched {
			result = cur
			if upwardClosed {
				cur = cur.Left
			} else {
				cur = cur.Right
			}
		} else {
			if upwardClosed {
				cur = cur.Right
			} else {
				cur = cur.Left
			}
		}
	}
	return result
}

func (t *Tree) findNullBoundary(root *store.Node, colOrdinal int, wantNull, reversed bool) *store.Node {
	d := t.desc
	col := d.ColumnIndexes[colOrdinal]
	nullsLast := d.NullsLast[colOrdinal]
	rank := func(isNull bool) int {
		v := 0
		if isNull {
			v = 1
		}
		if !nullsLast {
			v = 1 - v
		}
		return v
	}
	targetRank := rank(wantNull)

	var result *store.Node
	cur := root
	for cur != nil {
		isNull := cur.Row.Values[col] == nil
		if isNull == wantNull {
			result = cur
			if reversed {
				cur = cur.Right
			} else {
				cur = cur.Left
			}
			continue
		}
		if rank(isNull) < targetRank {
			cur = cur.Right
		} else {
			cur = cur.Left
		}
	}
	return result
}

// FindFirstRow returns an iterator over the rows matching a predicate on
// the leading fieldCount columns of the index. key holds fieldCount
// values in index column order (unused for OpMax). reversed selects
// descending enumeration.
func (t *Tree) FindFirstRow(st store.Store, session *store.Session, key []any, fieldCount int, op store.OpType, reversed bool) *Iterator {
	st.ReadLock()
	defer st.ReadUnlock()

	root := st.GetAccessor(t.desc.Position)
	var start *store.Node

	switch op {
	case store.OpMax:
		start = treeMax(root)
		reversed = true
	case store.OpIsNull:
		start = t.findNullBoundary(root, 0, true, reversed)
	case store.OpIsNotNull:
		start = t.findNullBoundary(root, 0, false, reversed)
	default:
		start = t.findBoundary(root, key, fieldCount, op, reversed)
	}

	it := &Iterator{tree: t, store: st, session: session, reversed: reversed, nextCandidate: start}
	if op == store.OpMax {
		it.single = true
	} else {
		it.boundCheck = func(row *store.Row) bool {
			switch op {
			case store.OpEqual:
				return t.desc.compareColumnsPrefix(row, key, fieldCount) == 0
			case store.OpGreaterEqual:
				return t.desc.compareColumnsPrefix(row, key, fieldCount) >= 0
			case store.OpGreater:
				return t.desc.compareColumnsPrefix(row, key, fieldCount) > 0
			case store.OpSmallerEqual:
				return t.desc.compareColumnsPrefix(row, key, fieldCount) <= 0
			case store.OpSmaller:
				return t.desc.compareColumnsPrefix(row, key, fieldCount) < 0
			case store.OpIsNull:
				return row.Values[t.desc.ColumnIndexes[0]] == nil
			case store.OpIsNotNull:
				return row.Values[t.desc.ColumnIndexes[0]] != nil
			default:
				return true
			}
		}
	}
	return it
}

// FirstRow returns an ascending iterator over the whole index.
// distinctCount, when > 0, makes the iterator hop to the next row whose
// leading distinctCount columns differ rather than visiting every row.
func (t *Tree) FirstRow(st store.Store, session *store.Session, distinctCount int) *Iterator {
	st.ReadLock()
	defer st.ReadUnlock()
	root := st.GetAccessor(t.desc.Position)
	return &Iterator{tree: t, store: st, session: session, nextCandidate: treeMin(root), distinctCount: distinctCount}
}

// LastRow returns a descending iterator over the whole index.
func (t *Tree) LastRow(st store.Store, session *store.Session, distinctCount int) *Iterator {
	st.ReadLock()
	defer st.ReadUnlock()
	root := st.GetAccessor(t.desc.Position)
	return &Iterator{tree: t, store: st, session: session, reversed: true, nextCandidate: treeMax(root), distinctCount: distinctCount}
}
