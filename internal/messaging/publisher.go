package messaging

import (
	"context"

	"github.com/petalhub/ranking-engine/internal/domain"
)

// Publisher defines the interface for publishing ranking events to the
// message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a ranking event
	PublishEvent(ctx context.Context, event *domain.RankingEvent) error
	// Close closes the connection to the broker
	Close()
}

// noopPublisher discards every event; used when no broker is configured
type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops all events
func NewNoopPublisher() Publisher {
	return &noopPublisher{}
}

func (noopPublisher) PublishEvent(ctx context.Context, event *domain.RankingEvent) error {
	return nil
}

func (noopPublisher) Close() {}
