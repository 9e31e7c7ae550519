package index

import "github.com/relindex/relindex/store"

// SearchCost estimates, for each key column of the index, how many rows
// an equality lookup on that column's value is likely to match; each
// column is counted on its own, not as part of a leading prefix. It
// never scans the whole index: it probes to
// probeDepth, counts how often adjacent sampled rows change value per
// column, and — if the tree is deeper than probeDepth — takes two more
// probes toward the leaves to account for variation the shallow sample
// missed. The result is clamped to at least 2 so callers never treat an
// index as perfectly selective on stale or sparse samples.
func (t *Tree) SearchCost(st store.Store, session *store.Session, probeDepth int) []int64 {
	st.ReadLock()
	defer st.ReadUnlock()

	d := t.desc
	colCount := len(d.ColumnIndexes)
	counters := make([]int64, colCount)
	for i := range counters {
		counters[i] = 1
	}

	root := st.GetAccessor(d.Position)
	if root == nil {
		results := make([]int64, colCount)
		for i := range results {
			results[i] = 2
		}
		return results
	}

	cur := root
	depth := 0
	for cur.Left != nil && depth < probeDepth {
		cur = cur.Left
		depth++
	}

	sampleLimit := 1 << uint(min(probeDepth+1, 20))
	var prev *store.Row
	n := cur
	sampled := 0
	for n != nil && sampled < sampleLimit {
		if prev != nil {
			for j := 0; j < colCount; j++ {
				colIdx := d.ColumnIndexes[j]
				if compareTyped(prev.Values[colIdx], n.Row.Values[colIdx], d.ColumnTypes[j]) != 0 {
					counters[j]++
				}
			}
		}
		prev = n.Row
		sampled++
		n = successor(n)
	}

	treeDepth := approxDepth(root)
	if treeDepth > probeDepth {
		extra := treeDepth - probeDepth
		left := deepest(root, true)
		right := deepest(root, false)
		for j := 0; j < colCount; j++ {
			colIdx := d.ColumnIndexes[j]
			if compareTyped(left.Values[colIdx], right.Values[colIdx], d.ColumnTypes[j]) != 0 {
				for e := 0; e < extra; e++ {
					counters[j] *= 2
				}
			}
		}
	}

	total := st.ElementCount(d.Position)
	if total <= 0 {
		total = 1
	}
	results := make([]int64, colCount)
	for j := 0; j < colCount; j++ {
		est := total / counters[j]
		if est < 2 {
			est = 2
		}
		results[j] = est
	}
	return results
}

// approxDepth follows the taller child at each step, giving a fast
// (not necessarily exact) depth estimate without tracking heights.
func approxDepth(root *store.Node) int {
	depth := 0
	cur := root
	for cur != nil {
		if cur.Balance < 0 {
			cur = cur.Left
		} else if cur.Balance > 0 {
			cur = cur.Right
		} else if cur.Left != nil {
			cur = cur.Left
		} else {
			cur = cur.Right
		}
		if cur != nil {
			depth++
		}
	}
	return depth
}

func deepest(root *store.Node, left bool) *store.Row {
	cur := root
	for {
		child := cur.ChildAt(left)
		if child == nil {
			return cur.Row
		}
		cur = child
	}
}
