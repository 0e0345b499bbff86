package sentiment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

const DefaultWindow = 20

type FuserOption func(*Fuser)

func WithClock(now func() time.Time) FuserOption {
	return func(f *Fuser) { f.now = now }
}

func WithMetrics(m port.Metrics) FuserOption {
	return func(f *Fuser) { f.metrics = m }
}

// Fuser 持有最近一次的情绪汇总；写只发生在 driver goroutine，读可并发
type Fuser struct {
	mu        sync.RWMutex
	summary   domain.SentimentSummary
	window    int
	publisher port.SentimentPublisher
	metrics   port.Metrics
	now       func() time.Time
}

func NewFuser(publisher port.SentimentPublisher, window int, opts ...FuserOption) *Fuser {
	if window <= 0 {
		window = DefaultWindow
	}
	f := &Fuser{
		summary:   domain.NewSentimentSummary(),
		window:    window,
		publisher: publisher,
		metrics:   port.NopMetrics{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fuse replaces the summary with this cycle's samples and publishes it.
// An empty cycle leaves the previous summary untouched.
func (f *Fuser) Fuse(ctx context.Context, samples []domain.ScoredSample) domain.SentimentSummary {
	if len(samples) == 0 {
		log.Info().Msg("no sentiment samples this cycle, keeping previous summary")
		return f.Summary()
	}

	var sum float64
	bySource := map[string][]domain.ScoredSample{
		domain.CategorySocial: {},
		domain.CategoryNews:   {},
	}
	for _, s := range samples {
		sum += s.Sentiment
		bySource[s.Category] = append(bySource[s.Category], s)
	}
	for k, v := range bySource {
		bySource[k] = lastN(v, f.window)
	}
	now := f.now()

	next := domain.SentimentSummary{
		RecentBySource:   bySource,
		OverallSentiment: sum / float64(len(samples)),
		UpdatedAt:        &now,
	}

	f.mu.Lock()
	f.summary = next
	out := next.Clone()
	f.mu.Unlock()

	if f.publisher != nil {
		if err := f.publisher.PublishSentiment(ctx, out.Clone()); err != nil {
			log.Error().Err(err).Msg("publish sentiment snapshot failed")
			f.metrics.PersistFailed("sentiment")
		}
	}
	f.metrics.SentimentFused(len(samples), out.OverallSentiment)

	log.Info().
		Int("samples", len(samples)).
		Int("social", len(bySource[domain.CategorySocial])).
		Int("news", len(bySource[domain.CategoryNews])).
		Float64("overall", out.OverallSentiment).
		Msg("sentiment fused")
	return out
}

func (f *Fuser) Summary() domain.SentimentSummary {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.summary.Clone()
}

func lastN(in []domain.ScoredSample, n int) []domain.ScoredSample {
	if len(in) <= n {
		return in
	}
	out := make([]domain.ScoredSample, n)
	copy(out, in[len(in)-n:])
	return out
}
