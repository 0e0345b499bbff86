package monitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"

	"github.com/rs/zerolog/log"
)

// State is the aggregate store: latest tick per (exchange, product).
// Update and the snapshot publish it triggers run under one mutex, so a
// publisher or Snapshot caller never sees a half-applied update.
type State struct {
	mu sync.Mutex

	data      domain.AggregateState
	publisher port.MarketPublisher
	metrics   port.Metrics
	now       func() time.Time
}

type StateOption func(*State)

// WithClock overrides time.Now for ObservedAt stamps.
func WithClock(now func() time.Time) StateOption {
	return func(s *State) { s.now = now }
}

func WithMetrics(m port.Metrics) StateOption {
	return func(s *State) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewState(publisher port.MarketPublisher, opts ...StateOption) *State {
	if publisher == nil {
		publisher = NewNoopPublisher()
	}
	s := &State{
		data:      make(domain.AggregateState),
		publisher: publisher,
		metrics:   port.NopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update 用最新报价覆盖 (exchange, product) 条目并同步发布完整快照
// 发布失败只记录日志，内存状态仍然是权威数据
func (s *State) Update(ctx context.Context, exchange, product string, bid, ask, volume float64) domain.CanonicalTick {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := domain.NewCanonicalTick(exchange, product, bid, ask, volume, s.now())

	products := s.data[t.Exchange]
	if products == nil {
		products = make(map[string]domain.CanonicalTick)
		s.data[t.Exchange] = products
	}
	products[t.Product] = t

	snap := domain.MarketSnapshot{
		State:       s.data.Clone(),
		Changed:     t,
		PublishedAt: t.ObservedAt,
	}
	if err := s.publisher.PublishMarket(ctx, snap); err != nil {
		s.metrics.PersistFailed("market")
		log.Error().Err(err).
			Str("exchange", t.Exchange).
			Str("product", t.Product).
			Msg("market snapshot publish failed")
	}
	s.metrics.TickApplied(t.Exchange, len(products))
	return t
}

// Snapshot returns a deep copy of the whole table at one point in time.
func (s *State) Snapshot() domain.AggregateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Exchanges returns the exchange ids seen so far, sorted.
func (s *State) Exchanges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.data))
	for ex := range s.data {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

// Products returns the product ids tracked for one exchange, sorted.
func (s *State) Products(exchange string) []string {
	ex := strings.ToLower(strings.TrimSpace(exchange))

	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.data[ex]
	out := make([]string, 0, len(products))
	for p := range products {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked (exchange, product) pairs.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Count()
}

var _ port.TickSink = (*State)(nil)
