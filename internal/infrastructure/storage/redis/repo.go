package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Repo mirrors snapshots into Redis for consumers that prefer it over files.
type Repo struct {
	rdb          redis.UniversalClient
	prefix       string
	ttl          time.Duration
	keyLatest    string // prefix + ":latest"
	keySentiment string // prefix + ":sentiment"
	tickChan     string
	sentChan     string
}

func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Repo {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "marketpulse"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyLatest:    prefix + ":latest",
		keySentiment: prefix + ":sentiment",
		tickChan:     prefix + ":ticks",
		sentChan:     prefix + ":sentiment:pub",
	}
}

func (r *Repo) KeyLatest() string    { return r.keyLatest }
func (r *Repo) KeySentiment() string { return r.keySentiment }

// PublishMarket 只写入本次变化的 tick：Hash field = "coinbase:BTC-USD" -> json
func (r *Repo) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	t := snap.Changed
	if t.Exchange == "" {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	field := fmt.Sprintf("%s:%s", t.Exchange, t.Product)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	pipe.Publish(ctx, r.tickChan, string(b))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repo) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, r.keySentiment, string(b), r.ttl)
	pipe.Publish(ctx, r.sentChan, string(b))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis: %v", domain.ErrPersistence, err)
	}
	return nil
}

// LatestTicks reads the mirrored table back.
func (r *Repo) LatestTicks(ctx context.Context) (domain.AggregateState, error) {
	fields, err := r.rdb.HGetAll(ctx, r.keyLatest).Result()
	if err != nil {
		return nil, err
	}
	out := make(domain.AggregateState)
	for _, v := range fields {
		var t domain.CanonicalTick
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, err
		}
		if out[t.Exchange] == nil {
			out[t.Exchange] = make(map[string]domain.CanonicalTick)
		}
		out[t.Exchange][t.Product] = t
	}
	return out, nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.PublisherCloser = (*Repo)(nil)
