package store_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/mocks"
	"github.com/petalhub/ranking-engine/internal/store"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

// testPolicy keeps retry delays negligible so tests run fast
var testPolicy = store.RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
}

func setupResilientStore(t *testing.T) (store.Store, *mocks.MockStore) {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	inner := mocks.NewMockStore(ctrl)
	return store.NewResilientStore(inner, nil, testPolicy), inner
}

func TestResilientStore_TransientErrorRetriedThenSucceeds(t *testing.T) {
	rs, inner := setupResilientStore(t)
	ctx := context.Background()
	want := &schema.Product{ID: 7, Name: "vitamin c serum"}

	inner.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(nil, errors.New("read tcp 10.0.0.1:5432: connection reset by peer")).
		Times(2)
	inner.EXPECT().GetProductByID(gomock.Any(), uint64(7)).
		Return(want, nil)

	got, err := rs.GetProductByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResilientStore_PermanentErrorNotRetried(t *testing.T) {
	rs, inner := setupResilientStore(t)

	// Exactly one attempt; domain errors must pass through untouched
	inner.EXPECT().CreateVote(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateVote).
		Times(1)

	_, err := rs.CreateVote(context.Background(), store.CastVoteParams{
		VoterID:   "voter-1",
		ProductID: 7,
		Week:      domain.VoteWeek{Number: 11, Year: 2025},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestResilientStore_ExhaustedBudgetReportsUnavailable(t *testing.T) {
	rs, inner := setupResilientStore(t)

	inner.EXPECT().HasVote(gomock.Any(), "voter-1", uint64(7), gomock.Any()).
		Return(false, driver.ErrBadConn).
		Times(testPolicy.MaxAttempts)

	_, err := rs.HasVote(context.Background(), "voter-1", 7, domain.VoteWeek{Number: 11, Year: 2025})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, driver.ErrBadConn)
}

func TestResilientStore_UpdateProductRanksRetried(t *testing.T) {
	rs, inner := setupResilientStore(t)
	assignments := []store.RankAssignment{{ProductID: 7, Rank: 1}}

	inner.EXPECT().UpdateProductRanks(gomock.Any(), assignments).
		Return(errors.New("pq: too many clients already"))
	inner.EXPECT().UpdateProductRanks(gomock.Any(), assignments).
		Return(nil)

	err := rs.UpdateProductRanks(context.Background(), assignments)
	require.NoError(t, err)
}

func TestResilientStore_ContextCancellationStopsRetries(t *testing.T) {
	rs, inner := setupResilientStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	inner.EXPECT().PurgeExpiredVotes(gomock.Any(), uint64(7), gomock.Any()).
		DoAndReturn(func(context.Context, uint64, time.Time) (int64, error) {
			cancel()
			return 0, driver.ErrBadConn
		})

	_, err := rs.PurgeExpiredVotes(ctx, 7, time.Now())
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate vote", domain.ErrDuplicateVote, false},
		{"product not eligible", domain.ErrProductNotEligible, false},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"bad conn", driver.ErrBadConn, true},
		{"conn done", sql.ErrConnDone, true},
		{"invalid db", gorm.ErrInvalidDB, true},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("timeout")}, true},
		{"connection refused", errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), true},
		{"pool exhausted", errors.New("pq: sorry, too many clients already"), true},
		{"postgres starting up", errors.New("pq: the database system is starting up"), true},
		{"constraint violation", errors.New(`pq: null value in column "voter_id"`), false},
		{"syntax error", errors.New("pq: syntax error at or near \"SELEC\""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.IsTransient(tt.err))
		})
	}
}
