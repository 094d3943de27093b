package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/ledger"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/mocks"
	"github.com/petalhub/ranking-engine/internal/ranking"
	"github.com/petalhub/ranking-engine/internal/store"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

// testNow is a Monday in week 11 of 2025
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testLedgerMocks struct {
	store     *mocks.MockStore
	publisher *mocks.MockPublisher
	clock     *mocks.MockClock
	ledger    *ledger.VoteLedger
}

func setupTestLedger(t *testing.T) *testLedgerMocks {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	tm := &testLedgerMocks{
		store:     mocks.NewMockStore(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		clock:     mocks.NewMockClock(ctrl),
	}
	tm.clock.EXPECT().Now().Return(testNow).AnyTimes()

	ranker := ranking.NewAggregator(tm.store)
	tm.ledger = ledger.NewVoteLedger(tm.store, ranker, tm.publisher, tm.clock)
	return tm
}

func eligibleProduct(id uint64, votes, rank int) *schema.Product {
	sub := "cleanser"
	return &schema.Product{
		ID:          id,
		Name:        "gentle foam cleanser",
		Category:    "skincare",
		Subcategory: &sub,
		VoteCount:   votes,
		Rank:        rank,
		CreatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCastVote_Success(t *testing.T) {
	tm := setupTestLedger(t)
	ctx := context.Background()
	week := domain.WeekOf(testNow)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(eligibleProduct(7, 4, 2), nil)
	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(false, nil)
	tm.store.EXPECT().CreateVote(gomock.Any(), store.CastVoteParams{
		VoterID:   "voter-1",
		ProductID: 7,
		Week:      week,
		CastAt:    testNow,
	}).Return(eligibleProduct(7, 5, 2), nil)

	// The partition recompute promotes the product to rank 1
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "cleanser").
		Return([]*schema.Product{
			eligibleProduct(7, 5, 2),
			eligibleProduct(8, 4, 1),
		}, nil)
	tm.store.EXPECT().UpdateProductRanks(gomock.Any(), []store.RankAssignment{
		{ProductID: 7, Rank: 1},
		{ProductID: 8, Rank: 2},
	}).Return(nil)

	var published *domain.RankingEvent
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.RankingEvent) error {
			published = event
			return nil
		})

	receipt, err := tm.ledger.CastVote(ctx, "voter-1", 7)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), receipt.ProductID)
	assert.Equal(t, 5, receipt.VoteCount)
	assert.Equal(t, 1, receipt.Rank)
	assert.Equal(t, week, receipt.Week)

	require.NotNil(t, published)
	assert.Equal(t, domain.EventTypeVoteAccepted, published.EventType)
	assert.Equal(t, uint64(7), published.ProductID)
	assert.Equal(t, week.String(), published.Week)
	assert.NotEmpty(t, published.EventID)
}

func TestCastVote_DuplicateSameWeek(t *testing.T) {
	tm := setupTestLedger(t)
	week := domain.WeekOf(testNow)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(eligibleProduct(7, 4, 2), nil)
	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(true, nil)

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
}

func TestCastVote_ConcurrentDuplicateLosesAtStore(t *testing.T) {
	tm := setupTestLedger(t)
	week := domain.WeekOf(testNow)

	// The fast-path check passes, but the store's uniqueness constraint
	// rejects the insert
	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(eligibleProduct(7, 4, 2), nil)
	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(false, nil)
	tm.store.EXPECT().CreateVote(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateVote)

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
}

func TestCastVote_ProductNotFound(t *testing.T) {
	tm := setupTestLedger(t)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(99)).
		Return(nil, nil)

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 99)
	assert.ErrorIs(t, err, domain.ErrProductNotEligible)
}

func TestCastVote_ProductWithoutSubcategory(t *testing.T) {
	tm := setupTestLedger(t)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(&schema.Product{ID: 7, Category: "skincare"}, nil)

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	assert.ErrorIs(t, err, domain.ErrProductNotEligible)
}

func TestCastVote_RecomputeFailureDoesNotFailVote(t *testing.T) {
	tm := setupTestLedger(t)
	week := domain.WeekOf(testNow)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(eligibleProduct(7, 4, 2), nil)
	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(false, nil)
	tm.store.EXPECT().CreateVote(gomock.Any(), gomock.Any()).
		Return(eligibleProduct(7, 5, 2), nil)

	// The vote committed; a failed recompute is logged but not surfaced
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "cleanser").
		Return(nil, errors.New("connection refused"))
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)

	receipt, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	require.NoError(t, err)

	// The receipt falls back to the rank persisted before the failure
	assert.Equal(t, 5, receipt.VoteCount)
	assert.Equal(t, 2, receipt.Rank)
}

func TestCastVote_PublishFailureDoesNotFailVote(t *testing.T) {
	tm := setupTestLedger(t)
	week := domain.WeekOf(testNow)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(eligibleProduct(7, 4, 1), nil)
	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(false, nil)
	tm.store.EXPECT().CreateVote(gomock.Any(), gomock.Any()).
		Return(eligibleProduct(7, 5, 1), nil)
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "cleanser").
		Return([]*schema.Product{eligibleProduct(7, 5, 1)}, nil)
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		Return(errors.New("nats: connection closed"))

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	require.NoError(t, err)
}

func TestCastVote_StoreErrorPropagates(t *testing.T) {
	tm := setupTestLedger(t)

	tm.store.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(nil, domain.ErrStoreUnavailable)

	_, err := tm.ledger.CastVote(context.Background(), "voter-1", 7)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestHasVotedThisWeek(t *testing.T) {
	tm := setupTestLedger(t)
	week := domain.WeekOf(testNow)

	tm.store.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), week).
		Return(true, nil)

	voted, err := tm.ledger.HasVotedThisWeek(context.Background(), "voter-1", 7)
	require.NoError(t, err)
	assert.True(t, voted)
}
