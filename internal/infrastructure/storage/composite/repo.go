package composite

import (
	"context"
	"errors"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

// Repo fans every publish out to all targets. A failing target does not
// stop the others; the first error is returned.
type Repo struct {
	repos []port.Publisher
}

func New(repos ...port.Publisher) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Publisher, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	var errs []error
	for _, repo := range r.repos {
		if err := repo.PublishMarket(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repo) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	var errs []error
	for _, repo := range r.repos {
		if err := repo.PublishSentiment(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.Publisher = (*Repo)(nil)
