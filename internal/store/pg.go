package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	// database/sql treats MaxIdleConns > MaxOpenConns as a misconfiguration
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetProductByID retrieves a product by its internal ID
func (s *pgStore) GetProductByID(ctx context.Context, productID uint64) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetProductsByPartition retrieves every product sharing one (category, subcategory) pair
func (s *pgStore) GetProductsByPartition(ctx context.Context, category, subcategory string) ([]*schema.Product, error) {
	var products []*schema.Product
	err := s.db.WithContext(ctx).
		Where("category = ? AND subcategory = ?", category, subcategory).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get partition products: %w", err)
	}

	return products, nil
}

// HasVote checks for an existing vote by (voter, product, week, year)
func (s *pgStore) HasVote(ctx context.Context, voterID string, productID uint64, week domain.VoteWeek) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Vote{}).
		Where("voter_id = ? AND product_id = ? AND week_number = ? AND year = ?",
			voterID, productID, week.Number, week.Year).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}

	return count > 0, nil
}

// CreateVote inserts the vote row and increments the product's vote count in a
// single transaction. The unique index on (voter_id, product_id, week_number,
// year) resolves check-then-insert races; the loser gets ErrDuplicateVote and
// the counter is untouched.
func (s *pgStore) CreateVote(ctx context.Context, params CastVoteParams) (*schema.Product, error) {
	var product schema.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := schema.Vote{
			VoterID:    params.VoterID,
			ProductID:  params.ProductID,
			WeekNumber: params.Week.Number,
			Year:       params.Week.Year,
			CreatedAt:  params.CastAt,
		}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateVote
			}
			return fmt.Errorf("failed to create vote: %w", err)
		}

		// Counter increment happens store-side, never read-modify-write
		err := tx.Model(&schema.Product{}).
			Where("id = ?", params.ProductID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + 1")).Error
		if err != nil {
			return fmt.Errorf("failed to increment vote count: %w", err)
		}

		if err := tx.Where("id = ?", params.ProductID).First(&product).Error; err != nil {
			return fmt.Errorf("failed to reload product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// UpdateProductRanks persists the given rank assignments in one transaction
func (s *pgStore) UpdateProductRanks(ctx context.Context, assignments []RankAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range assignments {
			err := tx.Model(&schema.Product{}).
				Where("id = ?", a.ProductID).
				UpdateColumn("rank", a.Rank).Error
			if err != nil {
				return fmt.Errorf("failed to update rank for product %d: %w", a.ProductID, err)
			}
		}
		return nil
	})
}

// GetExpiredVoteGroups groups votes older than cutoff by product, joining the
// partition columns so the sweeper knows which partitions to recompute
func (s *pgStore) GetExpiredVoteGroups(ctx context.Context, cutoff time.Time) ([]ExpiredVoteGroup, error) {
	var groups []ExpiredVoteGroup
	err := s.db.WithContext(ctx).
		Model(&schema.Vote{}).
		Select("votes.product_id AS product_id, products.category AS category, COALESCE(products.subcategory, '') AS subcategory, COUNT(*) AS expired_count").
		Joins("JOIN products ON products.id = votes.product_id").
		Where("votes.created_at < ?", cutoff).
		Group("votes.product_id, products.category, products.subcategory").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group expired votes: %w", err)
	}

	return groups, nil
}

// PurgeExpiredVotes deletes one product's expired votes and decrements its
// vote count by the number of rows actually deleted, all-or-nothing. Rerunning
// after a partial failure only touches rows still expired and present, so the
// sweep is idempotent.
func (s *pgStore) PurgeExpiredVotes(ctx context.Context, productID uint64, cutoff time.Time) (int64, error) {
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("product_id = ? AND created_at < ?", productID, cutoff).
			Delete(&schema.Vote{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete expired votes: %w", res.Error)
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}

		// Floored at zero so a decrement can never corrupt the counter even if
		// it drifted (e.g. a vote row deleted out-of-band)
		err := tx.Model(&schema.Product{}).
			Where("id = ?", productID).
			UpdateColumn("vote_count", gorm.Expr("GREATEST(vote_count - ?, 0)", deleted)).Error
		if err != nil {
			return fmt.Errorf("failed to decrement vote count: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}
