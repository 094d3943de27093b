package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

// RetryPolicy controls how the resilient store retries transient failures
type RetryPolicy struct {
	// MaxAttempts is the total attempt count including the first call
	MaxAttempts int
	// BaseDelay is the backoff delay before the first retry; subsequent delays
	// double, with randomized jitter
	BaseDelay time.Duration
	// MaxDelay caps the per-retry delay
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the retry policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// resilientStore decorates a Store so that callers only ever observe a
// successful result, a permanent (already-diagnosed) error, or
// domain.ErrStoreUnavailable once the retry budget is exhausted. It carries no
// vote or rank semantics of its own.
type resilientStore struct {
	inner  Store
	db     *gorm.DB
	policy RetryPolicy
}

// NewResilientStore wraps inner with transient-error retry. db may be nil; it
// is used only to ping the connection pool between attempts so broken
// connections are discarded.
func NewResilientStore(inner Store, db *gorm.DB, policy RetryPolicy) Store {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	return &resilientStore{
		inner:  inner,
		db:     db,
		policy: policy,
	}
}

// transientMarkers are substrings of driver and pool errors that indicate an
// infrastructure failure expected to self-resolve
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"connection aborted",
	"broken pipe",
	"i/o timeout",
	"unexpected eof",
	"too many connections",
	"too many clients",
	"connection pool",
	"bad connection",
	"the database system is starting up",
	"the database system is shutting down",
}

// IsTransient classifies an error as a retryable infrastructure failure.
// Domain errors, context cancellation, and anything unrecognized are
// permanent; unclassified errors must not hide behind a retry loop.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrDuplicateVote) ||
		errors.Is(err, domain.ErrProductNotEligible) ||
		errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// execute runs op with exponential backoff on transient errors. Permanent
// errors propagate immediately; an exhausted retry budget surfaces the last
// transient error wrapped in domain.ErrStoreUnavailable.
func (r *resilientStore) execute(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.MaxInterval = r.policy.MaxDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)

	operation := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		// Let the pool drop broken connections before the next attempt
		r.refreshPool(ctx)
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Transient store error, retrying",
			zap.String("operation", name),
			zap.Error(err),
			zap.Duration("next_retry_in", next),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %s failed after %d attempts: %w",
			domain.ErrStoreUnavailable, name, r.policy.MaxAttempts, err)
	}
	return err
}

// refreshPool pings the underlying pool so that dead connections are replaced
// before the next retry
func (r *resilientStore) refreshPool(ctx context.Context) {
	if r.db == nil {
		return
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.WarnCtx(ctx, "Store ping failed while recovering connection", zap.Error(err))
	}
}

func (r *resilientStore) GetProductByID(ctx context.Context, productID uint64) (*schema.Product, error) {
	var product *schema.Product
	err := r.execute(ctx, "GetProductByID", func() error {
		var opErr error
		product, opErr = r.inner.GetProductByID(ctx, productID)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *resilientStore) GetProductsByPartition(ctx context.Context, category, subcategory string) ([]*schema.Product, error) {
	var products []*schema.Product
	err := r.execute(ctx, "GetProductsByPartition", func() error {
		var opErr error
		products, opErr = r.inner.GetProductsByPartition(ctx, category, subcategory)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *resilientStore) HasVote(ctx context.Context, voterID string, productID uint64, week domain.VoteWeek) (bool, error) {
	var voted bool
	err := r.execute(ctx, "HasVote", func() error {
		var opErr error
		voted, opErr = r.inner.HasVote(ctx, voterID, productID, week)
		return opErr
	})
	if err != nil {
		return false, err
	}
	return voted, nil
}

func (r *resilientStore) CreateVote(ctx context.Context, params CastVoteParams) (*schema.Product, error) {
	var product *schema.Product
	err := r.execute(ctx, "CreateVote", func() error {
		var opErr error
		product, opErr = r.inner.CreateVote(ctx, params)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *resilientStore) UpdateProductRanks(ctx context.Context, assignments []RankAssignment) error {
	return r.execute(ctx, "UpdateProductRanks", func() error {
		return r.inner.UpdateProductRanks(ctx, assignments)
	})
}

func (r *resilientStore) GetExpiredVoteGroups(ctx context.Context, cutoff time.Time) ([]ExpiredVoteGroup, error) {
	var groups []ExpiredVoteGroup
	err := r.execute(ctx, "GetExpiredVoteGroups", func() error {
		var opErr error
		groups, opErr = r.inner.GetExpiredVoteGroups(ctx, cutoff)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *resilientStore) PurgeExpiredVotes(ctx context.Context, productID uint64, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.execute(ctx, "PurgeExpiredVotes", func() error {
		var opErr error
		deleted, opErr = r.inner.PurgeExpiredVotes(ctx, productID, cutoff)
		return opErr
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
