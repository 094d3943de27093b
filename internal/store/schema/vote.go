package schema

import (
	"time"
)

// Vote represents the votes table - the append-only ledger of individual
// weekly votes. Rows are never updated; the expiry sweeper is the only writer
// that deletes them.
type Vote struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// VoterID is the opaque identity key supplied by the auth layer
	VoterID string `gorm:"column:voter_id;not null;type:text;uniqueIndex:idx_votes_voter_product_week,priority:1"`
	// ProductID references the voted product
	ProductID uint64 `gorm:"column:product_id;not null;uniqueIndex:idx_votes_voter_product_week,priority:2;index:idx_votes_product"`
	// WeekNumber is the calendar voting week (1-53)
	WeekNumber int `gorm:"column:week_number;not null;uniqueIndex:idx_votes_voter_product_week,priority:3"`
	// Year is the calendar year of the voting week
	Year int `gorm:"column:year;not null;uniqueIndex:idx_votes_voter_product_week,priority:4"`
	// CreatedAt drives the rolling retention window; indexed for the sweep scan
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz;index:idx_votes_created_at"`

	// Associations
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Vote model
func (Vote) TableName() string {
	return "votes"
}
