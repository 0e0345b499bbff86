package sentiment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

type CollectorDeps struct {
	Social  []port.SampleSource // 按配置顺序抓取
	News    []port.SampleSource
	Scorer  port.Scorer
	Delay   time.Duration // social 请求之间的固定间隔
	Metrics port.Metrics
	Now     func() time.Time
}

// Collector 抓取并打分，不持有任何共享状态
type Collector struct {
	deps CollectorDeps
}

func NewCollector(deps CollectorDeps) *Collector {
	if deps.Metrics == nil {
		deps.Metrics = port.NopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Collector{deps: deps}
}

// Collect returns the scored samples of one cycle: social sources first,
// then news. A failing source contributes nothing.
func (c *Collector) Collect(ctx context.Context) []domain.ScoredSample {
	var out []domain.ScoredSample

	for i, src := range c.deps.Social {
		if i > 0 && c.deps.Delay > 0 {
			if !sleepCtx(ctx, c.deps.Delay) {
				return out
			}
		}
		out = append(out, c.fetch(ctx, src, domain.CategorySocial)...)
	}
	for _, src := range c.deps.News {
		if ctx.Err() != nil {
			return out
		}
		out = append(out, c.fetch(ctx, src, domain.CategoryNews)...)
	}
	return out
}

func (c *Collector) fetch(ctx context.Context, src port.SampleSource, category string) []domain.ScoredSample {
	log.Debug().Str("source", src.Name()).Msg("fetching sentiment source")

	items, err := src.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("source", src.Name()).Msg("sentiment fetch failed")
			c.deps.Metrics.FetchFailed(src.Name())
		}
		return nil
	}

	out := make([]domain.ScoredSample, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ScoredSample{
			Source:     it.Source,
			Category:   category,
			Text:       it.Text,
			Sentiment:  c.score(it.Text),
			Weight:     it.Weight,
			URL:        it.URL,
			ObservedAt: c.deps.Now(),
		})
	}
	log.Debug().Str("source", src.Name()).Int("items", len(out)).Msg("sentiment source fetched")
	return out
}

// 打分失败按中性 0 处理
func (c *Collector) score(text string) float64 {
	if c.deps.Scorer == nil {
		return 0
	}
	v, err := c.deps.Scorer.Score(text)
	if err != nil {
		log.Debug().Err(err).Msg("scoring failed")
		c.deps.Metrics.ScoringFailed()
		return 0
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
