package ranking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/store"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

// Aggregator recomputes the dense popularity rank of one (category,
// subcategory) partition from the current counters. It is the only writer of
// Product.Rank.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates a rank aggregator backed by the given store
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// RecomputePartition loads every product in the partition, orders them, and
// persists dense 1-based ranks. The full assignment set is returned so callers
// can read a product's fresh rank without another query.
//
// The whole partition is recomputed from current counters on every call rather
// than patched incrementally; the operation is idempotent and converges under
// concurrent recomputes of the same partition.
func (a *Aggregator) RecomputePartition(ctx context.Context, category, subcategory string) ([]store.RankAssignment, error) {
	products, err := a.store.GetProductsByPartition(ctx, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to load partition %s/%s: %w", category, subcategory, err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	sortPartition(products)

	assignments := make([]store.RankAssignment, 0, len(products))
	changed := make([]store.RankAssignment, 0, len(products))
	for i, p := range products {
		rank := i + 1
		assignments = append(assignments, store.RankAssignment{ProductID: p.ID, Rank: rank})
		if p.Rank != rank {
			changed = append(changed, store.RankAssignment{ProductID: p.ID, Rank: rank})
		}
	}

	if len(changed) > 0 {
		if err := a.store.UpdateProductRanks(ctx, changed); err != nil {
			return nil, fmt.Errorf("failed to persist ranks for %s/%s: %w", category, subcategory, err)
		}
	}

	logger.DebugCtx(ctx, "Partition ranks recomputed",
		zap.String("category", category),
		zap.String("subcategory", subcategory),
		zap.Int("products", len(products)),
		zap.Int("changed", len(changed)),
	)

	return assignments, nil
}

// sortPartition orders products best-first: vote count desc, review count
// desc, then created-at asc so older products win full ties. The final id
// tie-break makes the order total even for identical timestamps.
func sortPartition(products []*schema.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount > b.ReviewCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
