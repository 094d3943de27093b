package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Product represents the products table. The catalog service owns the
// descriptive fields; this service mutates only VoteCount (ledger) and Rank
// (aggregator).
type Product struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the display name from the catalog
	Name string `gorm:"column:name;not null;type:text"`
	// Category is the top-level catalog category (e.g. "skincare")
	Category string `gorm:"column:category;not null;type:text;index:idx_products_partition,priority:1"`
	// Subcategory narrows the category (e.g. "cleanser"). Products without a
	// subcategory are not part of any rank partition and cannot receive votes.
	Subcategory *string `gorm:"column:subcategory;type:text;index:idx_products_partition,priority:2"`
	// VoteCount is the denormalized count of active votes referencing this product
	VoteCount int `gorm:"column:vote_count;not null;default:0"`
	// ReviewCount is the denormalized review count, maintained by the catalog
	ReviewCount int `gorm:"column:review_count;not null;default:0"`
	// Rank is the 1-based dense popularity rank within the product's
	// (category, subcategory) partition; 0 means unranked
	Rank int `gorm:"column:rank;not null;default:0"`
	// Attributes holds free-form catalog metadata (brand, shade, volume)
	Attributes datatypes.JSONMap `gorm:"column:attributes"`
	// CreatedAt is when the catalog created the product; it is the final
	// tie-break when ranking, older products first
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Votes []Vote `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// PartitionKey returns the product's (category, subcategory) pair. The second
// return is false when the product has no subcategory and thus no partition.
func (p *Product) PartitionKey() (category string, subcategory string, ok bool) {
	if p.Subcategory == nil || *p.Subcategory == "" {
		return p.Category, "", false
	}
	return p.Category, *p.Subcategory, true
}
