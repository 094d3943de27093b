package sweeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/mocks"
	"github.com/petalhub/ranking-engine/internal/ranking"
	"github.com/petalhub/ranking-engine/internal/store"
	"github.com/petalhub/ranking-engine/internal/store/schema"
	"github.com/petalhub/ranking-engine/internal/sweeper"
)

var testNow = time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)

// testSweeperMocks contains all the mocks needed for testing the sweeper
type testSweeperMocks struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	publisher *mocks.MockPublisher
	clock     *mocks.MockClock
	sweeper   *sweeper.VoteExpirySweeper
}

// setupTestSweeper creates all the mocks and sweeper for testing
func setupTestSweeper(t *testing.T) *testSweeperMocks {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	tm := &testSweeperMocks{
		ctrl:      ctrl,
		store:     mocks.NewMockStore(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		clock:     mocks.NewMockClock(ctrl),
	}
	tm.clock.EXPECT().Now().Return(testNow).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()

	config := &sweeper.VoteExpirySweeperConfig{
		RetentionWindow: 7 * 24 * time.Hour,
		SweepInterval:   time.Hour,
		WorkerPoolSize:  2,
	}

	tm.sweeper = sweeper.NewVoteExpirySweeper(config, tm.store, ranking.NewAggregator(tm.store), tm.publisher, tm.clock)
	return tm
}

func partitionProduct(id uint64, subcategory string, votes int) *schema.Product {
	return &schema.Product{
		ID:          id,
		Category:    "skincare",
		Subcategory: &subcategory,
		VoteCount:   votes,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSweep_PurgesAndRecomputesTouchedPartitions(t *testing.T) {
	tm := setupTestSweeper(t)
	ctx := context.Background()
	cutoff := testNow.Add(-7 * 24 * time.Hour)

	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), cutoff).
		Return([]store.ExpiredVoteGroup{
			{ProductID: 1, Category: "skincare", Subcategory: "cleanser", ExpiredCount: 2},
			{ProductID: 2, Category: "skincare", Subcategory: "cleanser", ExpiredCount: 1},
			{ProductID: 3, Category: "skincare", Subcategory: "serum", ExpiredCount: 4},
		}, nil)

	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(1), cutoff).Return(int64(2), nil)
	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(2), cutoff).Return(int64(1), nil)
	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(3), cutoff).Return(int64(4), nil)

	// One recompute per touched partition, not per product
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "cleanser").
		Return([]*schema.Product{
			partitionProduct(1, "cleanser", 5),
			partitionProduct(2, "cleanser", 8),
		}, nil)
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "serum").
		Return([]*schema.Product{partitionProduct(3, "serum", 2)}, nil)
	tm.store.EXPECT().UpdateProductRanks(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	var published *domain.RankingEvent
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.RankingEvent) error {
			published = event
			return nil
		})

	result, err := tm.sweeper.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ProductsAffected)
	assert.Equal(t, int64(7), result.VotesDeleted)

	require.NotNil(t, published)
	assert.Equal(t, domain.EventTypeVotesSwept, published.EventType)
	assert.Equal(t, 3, published.ProductsAffected)
	assert.Equal(t, int64(7), published.VotesDeleted)
}

func TestSweep_NothingExpired(t *testing.T) {
	tm := setupTestSweeper(t)

	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), gomock.Any()).
		Return(nil, nil)

	result, err := tm.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sweeper.SweepResult{}, result)
}

func TestSweep_ZeroDeletionsDoNotTouchPartition(t *testing.T) {
	tm := setupTestSweeper(t)

	// A concurrent sweep already purged this product; no recompute needed
	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), gomock.Any()).
		Return([]store.ExpiredVoteGroup{
			{ProductID: 1, Category: "skincare", Subcategory: "cleanser", ExpiredCount: 2},
		}, nil)
	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(1), gomock.Any()).
		Return(int64(0), nil)
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)

	result, err := tm.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProductsAffected)
	assert.Equal(t, int64(0), result.VotesDeleted)
}

func TestSweep_ScanErrorAborts(t *testing.T) {
	tm := setupTestSweeper(t)

	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := tm.sweeper.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweep_PurgeFailureSkipsProductButContinues(t *testing.T) {
	tm := setupTestSweeper(t)
	cutoff := testNow.Add(-7 * 24 * time.Hour)

	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), cutoff).
		Return([]store.ExpiredVoteGroup{
			{ProductID: 1, Category: "skincare", Subcategory: "cleanser", ExpiredCount: 2},
			{ProductID: 2, Category: "skincare", Subcategory: "serum", ExpiredCount: 1},
		}, nil)

	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(1), cutoff).
		Return(int64(0), errors.New("connection refused"))
	tm.store.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(2), cutoff).
		Return(int64(1), nil)

	// Only the partition that actually lost votes is recomputed
	tm.store.EXPECT().GetProductsByPartition(gomock.Any(), "skincare", "serum").
		Return([]*schema.Product{partitionProduct(2, "serum", 3)}, nil)
	tm.store.EXPECT().UpdateProductRanks(gomock.Any(), gomock.Any()).Return(nil)
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)

	result, err := tm.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProductsAffected)
	assert.Equal(t, int64(1), result.VotesDeleted)
}

func TestStartStop(t *testing.T) {
	tm := setupTestSweeper(t)
	ctx := context.Background()

	// First cycle finds nothing, then sleeps on a channel that never fires
	var never <-chan time.Time = make(chan time.Time)
	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()
	tm.clock.EXPECT().After(time.Hour).
		Return(never).
		AnyTimes()

	startErr := make(chan error, 1)
	go func() {
		startErr <- tm.sweeper.Start(ctx)
	}()

	// Give the loop a moment to enter its sleep
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, tm.sweeper.Stop(stopCtx))

	select {
	case err := <-startErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop in time")
	}

	assert.Equal(t, "vote-expiry-sweeper", tm.sweeper.Name())
}

func TestStart_AlreadyRunning(t *testing.T) {
	tm := setupTestSweeper(t)
	ctx := context.Background()

	var never <-chan time.Time = make(chan time.Time)
	tm.store.EXPECT().GetExpiredVoteGroups(gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()
	tm.clock.EXPECT().After(gomock.Any()).
		Return(never).
		AnyTimes()

	go func() {
		_ = tm.sweeper.Start(ctx)
	}()
	time.Sleep(50 * time.Millisecond)

	err := tm.sweeper.Start(ctx)
	assert.Error(t, err)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = tm.sweeper.Stop(stopCtx)
}
