package domain

import "errors"

var (
	// ErrDuplicateVote is returned when a voter has already voted for a product in the current week
	ErrDuplicateVote = errors.New("duplicate vote for this week")

	// ErrProductNotEligible is returned when a product does not exist or is not part of a rankable partition
	ErrProductNotEligible = errors.New("product not eligible for voting")

	// ErrStoreUnavailable is returned when the store is unreachable after all retry attempts
	ErrStoreUnavailable = errors.New("store unavailable")
)
