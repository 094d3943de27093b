package ledger

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/petalhub/ranking-engine/internal/adapter"
	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/messaging"
	"github.com/petalhub/ranking-engine/internal/ranking"
	"github.com/petalhub/ranking-engine/internal/store"
)

// VoteReceipt is the caller-visible result of an accepted vote
type VoteReceipt struct {
	ProductID uint64          `json:"product_id"`
	VoteCount int             `json:"vote_count"`
	Rank      int             `json:"rank"`
	Week      domain.VoteWeek `json:"-"`
}

// VoteLedger accepts weekly votes, enforcing the one-vote-per-voter-per-
// product-per-week invariant, and keeps the product's vote count and
// partition rank in sync.
type VoteLedger struct {
	store     store.Store
	ranker    *ranking.Aggregator
	publisher messaging.Publisher
	clock     adapter.Clock
}

// NewVoteLedger creates a vote ledger. The store is expected to be wrapped in
// resilient retry already; the ledger treats every error it sees as final.
func NewVoteLedger(st store.Store, ranker *ranking.Aggregator, publisher messaging.Publisher, clock adapter.Clock) *VoteLedger {
	return &VoteLedger{
		store:     st,
		ranker:    ranker,
		publisher: publisher,
		clock:     clock,
	}
}

// CastVote records one vote by voterID for productID in the current voting
// week.
//
// Returns domain.ErrDuplicateVote when the voter already voted for this
// product this week, and domain.ErrProductNotEligible when the product does
// not exist or has no subcategory. On success the product's partition is
// recomputed synchronously so the receipt carries a fresh rank.
func (l *VoteLedger) CastVote(ctx context.Context, voterID string, productID uint64) (*VoteReceipt, error) {
	now := l.clock.Now()
	week := domain.WeekOf(now)

	product, err := l.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotEligible
	}
	category, subcategory, ok := product.PartitionKey()
	if !ok {
		return nil, domain.ErrProductNotEligible
	}

	// Fast-path check; the store's uniqueness constraint remains the authority
	// under concurrent identical votes
	voted, err := l.store.HasVote(ctx, voterID, productID, week)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, domain.ErrDuplicateVote
	}

	updated, err := l.store.CreateVote(ctx, store.CastVoteParams{
		VoterID:   voterID,
		ProductID: productID,
		Week:      week,
		CastAt:    now,
	})
	if err != nil {
		return nil, err
	}

	receipt := &VoteReceipt{
		ProductID: updated.ID,
		VoteCount: updated.VoteCount,
		Rank:      updated.Rank,
		Week:      week,
	}

	// The vote is committed; a failed recompute must not fail the request.
	// Rank is derived state and the partition converges on the next recompute.
	assignments, err := l.ranker.RecomputePartition(ctx, category, subcategory)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to recompute partition after vote: %w", err),
			zap.Uint64("product_id", productID),
			zap.String("category", category),
			zap.String("subcategory", subcategory),
		)
	} else {
		for _, a := range assignments {
			if a.ProductID == updated.ID {
				receipt.Rank = a.Rank
				break
			}
		}
	}

	l.publishVoteAccepted(ctx, receipt, category, subcategory)

	logger.InfoCtx(ctx, "Vote accepted",
		zap.Uint64("product_id", productID),
		zap.String("week", week.String()),
		zap.Int("vote_count", receipt.VoteCount),
		zap.Int("rank", receipt.Rank),
	)

	return receipt, nil
}

// HasVotedThisWeek reports whether voterID already has a vote for productID in
// the current voting week. Read-only.
func (l *VoteLedger) HasVotedThisWeek(ctx context.Context, voterID string, productID uint64) (bool, error) {
	week := domain.WeekOf(l.clock.Now())
	return l.store.HasVote(ctx, voterID, productID, week)
}

// publishVoteAccepted emits a vote.accepted event, best-effort
func (l *VoteLedger) publishVoteAccepted(ctx context.Context, receipt *VoteReceipt, category, subcategory string) {
	if l.publisher == nil {
		return
	}

	event := &domain.RankingEvent{
		EventID:     ulid.MustNewDefault(l.clock.Now()).String(),
		EventType:   domain.EventTypeVoteAccepted,
		OccurredAt:  l.clock.Now(),
		Category:    category,
		Subcategory: subcategory,
		ProductID:   receipt.ProductID,
		VoteCount:   receipt.VoteCount,
		Rank:        receipt.Rank,
		Week:        receipt.Week.String(),
	}
	if err := l.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish vote event: %w", err),
			zap.Uint64("product_id", receipt.ProductID),
		)
	}
}
