package port

import (
	"context"

	"marketpulse/internal/domain"
)

// MarketPublisher persists the aggregate state after every tick update.
type MarketPublisher interface {
	PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error
}

// SentimentPublisher persists the fused sentiment summary after every cycle.
type SentimentPublisher interface {
	PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error
}

type Publisher interface {
	MarketPublisher
	SentimentPublisher
}

// for publishers needing Close()
type PublisherCloser interface {
	Publisher
	Close() error
}
