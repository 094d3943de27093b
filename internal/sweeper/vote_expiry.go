package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/petalhub/ranking-engine/internal/adapter"
	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
	"github.com/petalhub/ranking-engine/internal/messaging"
	"github.com/petalhub/ranking-engine/internal/ranking"
	"github.com/petalhub/ranking-engine/internal/store"
)

// VoteExpirySweeperConfig holds configuration for the vote expiry sweeper
type VoteExpirySweeperConfig struct {
	RetentionWindow time.Duration // Votes older than this are expired
	SweepInterval   time.Duration // Time to sleep between sweep cycles
	WorkerPoolSize  int           // Concurrent per-product purges
}

// SweepResult summarizes one completed sweep
type SweepResult struct {
	ProductsAffected int   `json:"products_affected"`
	VotesDeleted     int64 `json:"votes_deleted"`
}

// partitionKey identifies one rank partition touched by a sweep
type partitionKey struct {
	category    string
	subcategory string
}

// VoteExpirySweeper enforces the rolling vote retention window: it deletes
// expired votes, reverses their contribution to product vote counts, and
// recomputes every touched partition.
type VoteExpirySweeper struct {
	config    *VoteExpirySweeperConfig
	store     store.Store
	ranker    *ranking.Aggregator
	publisher messaging.Publisher
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewVoteExpirySweeper creates a new vote expiry sweeper
func NewVoteExpirySweeper(
	config *VoteExpirySweeperConfig,
	st store.Store,
	ranker *ranking.Aggregator,
	publisher messaging.Publisher,
	clock adapter.Clock,
) *VoteExpirySweeper {
	return &VoteExpirySweeper{
		config:    config,
		store:     st,
		ranker:    ranker,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *VoteExpirySweeper) Name() string {
	return "vote-expiry-sweeper"
}

// Start begins the sweeper's main loop - runs a sweep, sleeps, repeats until
// the context is canceled or stop is requested
func (s *VoteExpirySweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting vote expiry sweeper",
		zap.Duration("retention_window", s.config.RetentionWindow),
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Vote expiry sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Vote expiry sweeper stop requested")
			return nil
		default:
			if _, err := s.Sweep(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !s.sleep(ctx, s.config.SweepInterval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *VoteExpirySweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping vote expiry sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Vote expiry sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Vote expiry sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// Sweep runs a single sweep cycle: expired votes are grouped by product, each
// product's rows are deleted and its counter decremented in one transaction,
// and every touched partition is recomputed afterwards.
//
// Idempotent: a rerun after a partial failure only affects rows that are
// still expired and not yet deleted.
func (s *VoteExpirySweeper) Sweep(ctx context.Context) (SweepResult, error) {
	startTime := s.clock.Now()
	cutoff := startTime.Add(-s.config.RetentionWindow)

	groups, err := s.store.GetExpiredVoteGroups(ctx, cutoff)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to find expired votes: %w", err)
	}
	if len(groups) == 0 {
		logger.InfoCtx(ctx, "No expired votes to sweep")
		return SweepResult{}, nil
	}

	logger.InfoCtx(ctx, "Sweeping expired votes",
		zap.Int("products", len(groups)),
		zap.Time("cutoff", cutoff),
	)

	var productsAffected atomic.Int64
	var votesDeleted atomic.Int64
	touchedPartitions := sync.Map{}

	poolSize := s.config.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	pool := pond.NewPool(poolSize, pond.WithContext(ctx))

	for _, group := range groups {
		pool.Submit(func() {
			deleted, err := s.store.PurgeExpiredVotes(ctx, group.ProductID, cutoff)
			if err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("failed to purge expired votes: %w", err),
					zap.Uint64("product_id", group.ProductID),
				)
				return
			}
			if deleted == 0 {
				return
			}
			productsAffected.Add(1)
			votesDeleted.Add(deleted)
			touchedPartitions.Store(partitionKey{group.Category, group.Subcategory}, struct{}{})
		})
	}
	pool.StopAndWait()

	// Recompute every partition that lost votes; a failed recompute here is
	// retried before the cycle gives up on it
	touchedPartitions.Range(func(key, _ any) bool {
		partition := key.(partitionKey)
		if err := s.recomputeWithRetry(ctx, partition); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("CRITICAL: failed to recompute partition after sweep: %w", err),
				zap.String("category", partition.category),
				zap.String("subcategory", partition.subcategory),
			)
		}
		return true
	})

	result := SweepResult{
		ProductsAffected: int(productsAffected.Load()),
		VotesDeleted:     votesDeleted.Load(),
	}

	s.publishSweepCompleted(ctx, result)

	logger.InfoCtx(ctx, "Sweep completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("products_affected", result.ProductsAffected),
		zap.Int64("votes_deleted", result.VotesDeleted),
	)

	return result, nil
}

// recomputeWithRetry recomputes one partition with exponential backoff
func (s *VoteExpirySweeper) recomputeWithRetry(ctx context.Context, partition partitionKey) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 5 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	operation := func() error {
		_, err := s.ranker.RecomputePartition(ctx, partition.category, partition.subcategory)
		return err
	}

	var attemptCount int
	notify := func(err error, next time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Partition recompute failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed after %d attempts: %w", attemptCount+1, err)
	}
	return nil
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns true if sleep completed normally.
func (s *VoteExpirySweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}

// publishSweepCompleted emits a votes.swept event, best-effort
func (s *VoteExpirySweeper) publishSweepCompleted(ctx context.Context, result SweepResult) {
	if s.publisher == nil {
		return
	}

	event := &domain.RankingEvent{
		EventID:          ulid.MustNewDefault(s.clock.Now()).String(),
		EventType:        domain.EventTypeVotesSwept,
		OccurredAt:       s.clock.Now(),
		ProductsAffected: result.ProductsAffected,
		VotesDeleted:     result.VotesDeleted,
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish sweep event: %w", err))
	}
}
