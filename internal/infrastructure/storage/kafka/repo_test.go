package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"marketpulse/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishMarketKeyedByProduct(t *testing.T) {
	w := &fakeWriter{}
	r := newRepo(w, "", "")

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tk := domain.NewCanonicalTick("kraken", "XBT/USD", 100, 102, 7, ts)
	if err := r.PublishMarket(context.Background(), domain.MarketSnapshot{Changed: tk}); err != nil {
		t.Fatal(err)
	}
	if err := r.PublishMarket(context.Background(), domain.MarketSnapshot{}); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "marketpulse.ticks" || string(m.Key) != "kraken:XBT/USD" || !m.Time.Equal(ts) {
		t.Errorf("message = topic %q key %q time %v", m.Topic, m.Key, m.Time)
	}
	var got map[string]any
	if err := json.Unmarshal(m.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got["spread"] != 2.0 {
		t.Errorf("payload = %v", got)
	}
}

func TestPublishSentiment(t *testing.T) {
	w := &fakeWriter{}
	r := newRepo(w, "t", "s")
	if err := r.PublishSentiment(context.Background(), domain.NewSentimentSummary()); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || w.msgs[0].Topic != "s" {
		t.Fatalf("messages = %+v", w.msgs)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	r := newRepo(&fakeWriter{err: errors.New("broker down")}, "", "")
	tk := domain.NewCanonicalTick("coinbase", "BTC-USD", 1, 2, 3, time.Now())
	err := r.PublishMarket(context.Background(), domain.MarketSnapshot{Changed: tk})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestNewRequiresBrokers(t *testing.T) {
	if _, err := New(nil, "", ""); err == nil {
		t.Fatal("expected error without brokers")
	}
}
