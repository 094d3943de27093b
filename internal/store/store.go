package store

import (
	"context"
	"time"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

// CastVoteParams carries one accepted vote into the store
type CastVoteParams struct {
	VoterID   string
	ProductID uint64
	Week      domain.VoteWeek
	CastAt    time.Time
}

// RankAssignment pairs a product with its newly computed partition rank
type RankAssignment struct {
	ProductID uint64
	Rank      int
}

// ExpiredVoteGroup summarizes the expired votes of one product, joined with
// the partition info needed to recompute ranks after the purge
type ExpiredVoteGroup struct {
	ProductID    uint64
	Category     string
	Subcategory  string
	ExpiredCount int64
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetProductByID retrieves a product by its internal ID, nil when absent
	GetProductByID(ctx context.Context, productID uint64) (*schema.Product, error)
	// GetProductsByPartition retrieves every product in a (category, subcategory) partition
	GetProductsByPartition(ctx context.Context, category, subcategory string) ([]*schema.Product, error)
	// HasVote checks whether a voter already has a vote for a product in a week
	HasVote(ctx context.Context, voterID string, productID uint64, week domain.VoteWeek) (bool, error)
	// CreateVote inserts a vote and increments the product's vote count in one
	// transaction, returning the updated product snapshot. A uniqueness
	// violation surfaces as domain.ErrDuplicateVote.
	CreateVote(ctx context.Context, params CastVoteParams) (*schema.Product, error)
	// UpdateProductRanks persists a set of rank assignments in one transaction
	UpdateProductRanks(ctx context.Context, assignments []RankAssignment) error
	// GetExpiredVoteGroups groups votes created before cutoff by product
	GetExpiredVoteGroups(ctx context.Context, cutoff time.Time) ([]ExpiredVoteGroup, error)
	// PurgeExpiredVotes deletes one product's votes created before cutoff and
	// decrements its vote count by the number of deleted rows, atomically.
	// Returns the number of deleted votes.
	PurgeExpiredVotes(ctx context.Context, productID uint64, cutoff time.Time) (int64, error)
}
