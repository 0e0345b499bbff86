package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"

	"github.com/rs/zerolog/log"
)

type PriceFeed = port.PriceFeed

// SentimentRunner is the periodic sentiment pipeline as seen by the service.
type SentimentRunner interface {
	Run(ctx context.Context) error
	Summary() domain.SentimentSummary
}

type ServiceDeps struct {
	Feeds           []PriceFeed
	Store           *State
	Sentiment       SentimentRunner // nil = 关闭情绪分析
	DisplayInterval time.Duration
	Sink            port.Sink
	Formatter       *Formatter
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	if deps.Store == nil {
		deps.Store = NewState(nil)
	}
	if deps.Formatter == nil {
		deps.Formatter = NewFormatter(false)
	}
	if deps.DisplayInterval <= 0 {
		deps.DisplayInterval = 5 * time.Second
	}
	return &Service{deps: deps}
}

func (s *Service) Store() *State { return s.deps.Store }

// Run starts one goroutine per feed plus the sentiment driver and renders
// the display until ctx is done. A feed that stops does not stop the others.
func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Feeds) == 0 {
		return errors.New("no feeds")
	}

	var wg sync.WaitGroup

	// start feeds
	for _, feed := range s.deps.Feeds {
		wg.Add(1)
		go func(feed PriceFeed) {
			defer wg.Done()
			log.Info().Str("feed", feed.Name()).Msg("feed started")
			err := feed.Run(ctx, s.deps.Store)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("feed", feed.Name()).Msg("feed stopped")
				return
			}
			log.Info().Str("feed", feed.Name()).Msg("feed stopped")
		}(feed)
	}

	if s.deps.Sentiment != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.deps.Sentiment.Run(ctx)
		}()
	}

	ticker := time.NewTicker(s.deps.DisplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.deps.Sink != nil {
				_ = s.deps.Sink.NewLine()
			}
			wg.Wait()
			return ctx.Err()

		case now := <-ticker.C:
			s.display(now)
		}
	}
}

func (s *Service) display(now time.Time) {
	if s.deps.Sink == nil {
		return
	}
	var summary *domain.SentimentSummary
	if s.deps.Sentiment != nil {
		sum := s.deps.Sentiment.Summary()
		summary = &sum
	}
	block := s.deps.Formatter.Render(s.deps.Store.Snapshot(), summary, now)
	if err := s.deps.Sink.WriteBlock(now, block); err != nil {
		log.Debug().Err(err).Msg("display write failed")
	}
}
