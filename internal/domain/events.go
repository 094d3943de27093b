package domain

import "time"

// Event types published to the message broker when the ledger or sweeper
// mutates ranking state. Consumers (feeds, notification service) treat these
// as advisory; counters in the store remain the only authority.
const (
	EventTypeVoteAccepted  = "vote.accepted"
	EventTypeVotesSwept    = "votes.swept"
	EventTypeRankRecompute = "rank.recomputed"
)

// RankingEvent is the envelope for all events emitted by this service
type RankingEvent struct {
	// EventID is a ULID, unique and time-sortable
	EventID string `json:"event_id"`
	// EventType is one of the EventType* constants
	EventType string `json:"event_type"`
	// OccurredAt is when the underlying mutation committed
	OccurredAt time.Time `json:"occurred_at"`

	// Category and Subcategory identify the affected partition
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`

	// ProductID is set for vote.accepted events
	ProductID uint64 `json:"product_id,omitempty"`
	// VoteCount is the product's vote count after the mutation
	VoteCount int `json:"vote_count,omitempty"`
	// Rank is the product's rank after the partition recompute
	Rank int `json:"rank,omitempty"`
	// Week is the voting week of a vote.accepted event, e.g. "2025-W10"
	Week string `json:"week,omitempty"`

	// ProductsAffected and VotesDeleted summarize a votes.swept event
	ProductsAffected int   `json:"products_affected,omitempty"`
	VotesDeleted     int64 `json:"votes_deleted,omitempty"`
}
