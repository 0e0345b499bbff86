package monitor

import (
	"context"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

type noopPublisher struct{}

func NewNoopPublisher() port.Publisher { return &noopPublisher{} }

func (n *noopPublisher) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	return nil
}

func (n *noopPublisher) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	return nil
}
