package index

import (
	"golang.org/x/sync/errgroup"

	"github.com/relindex/relindex/store"
)

// SearchCostAll computes SearchCost across several indexes of the same
// table concurrently, for use by a reorder pass choosing a join access
// path (spec.md 4.3). Results are returned in the same order as trees.
func SearchCostAll(st store.Store, session *store.Session, trees []*Tree, probeDepth int) [][]int64 {
	results := make([][]int64, len(trees))
	var eg errgroup.Group
	eg.SetLimit(4)
	for i, tr := range trees {
		i, tr := i, tr
		eg.Go(func() error {
			results[i] = tr.SearchCost(st, session, probeDepth)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
