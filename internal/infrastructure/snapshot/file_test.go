package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/domain"
)

func TestMarketRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(filepath.Join(dir, "out", "market.json"), filepath.Join(dir, "sentiment.json"))

	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	state := domain.AggregateState{
		"coinbase": {"BTC-USD": domain.NewCanonicalTick("coinbase", "BTC-USD", 100, 101, 5, ts)},
		"kraken":   {"XBT/USD": domain.NewCanonicalTick("kraken", "XBT/USD", 99, 102, 7, ts)},
	}
	if err := p.PublishMarket(context.Background(), domain.MarketSnapshot{State: state, PublishedAt: ts}); err != nil {
		t.Fatalf("PublishMarket: %v", err)
	}

	f, ok, err := ReadMarket(p.MarketPath())
	if err != nil || !ok {
		t.Fatalf("ReadMarket ok=%v err=%v", ok, err)
	}
	if f.Version != FormatVersion || !f.PublishedAt.Equal(ts) {
		t.Fatalf("envelope = %+v", f)
	}
	got := f.Exchanges["kraken"]["XBT/USD"]
	if got.Bid != 99 || got.Ask != 102 || got.Volume != 7 || got.Spread() != 3 {
		t.Fatalf("tick = %+v", got)
	}
	if f.Exchanges.Count() != 2 {
		t.Fatalf("count = %d", f.Exchanges.Count())
	}

	// overwrite, not append
	state2 := domain.AggregateState{"coinbase": {"ETH-USD": domain.NewCanonicalTick("coinbase", "ETH-USD", 1, 2, 3, ts)}}
	if err := p.PublishMarket(context.Background(), domain.MarketSnapshot{State: state2, PublishedAt: ts}); err != nil {
		t.Fatal(err)
	}
	f, _, _ = ReadMarket(p.MarketPath())
	if f.Exchanges.Count() != 1 {
		t.Fatalf("previous snapshot not replaced: %+v", f.Exchanges)
	}

	entries, _ := os.ReadDir(filepath.Dir(p.MarketPath()))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestSentimentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(filepath.Join(dir, "market.json"), filepath.Join(dir, "sentiment.json"))

	score := 42.0
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := domain.NewSentimentSummary()
	s.OverallSentiment = 0.25
	s.UpdatedAt = &now
	s.RecentBySource[domain.CategorySocial] = []domain.ScoredSample{
		{Source: "r/bitcoin", Category: domain.CategorySocial, Text: "moon", Sentiment: 0.5, Weight: &score, ObservedAt: now},
	}
	if err := p.PublishSentiment(context.Background(), s); err != nil {
		t.Fatalf("PublishSentiment: %v", err)
	}

	f, ok, err := ReadSentiment(p.SentimentPath())
	if err != nil || !ok {
		t.Fatalf("ReadSentiment ok=%v err=%v", ok, err)
	}
	got := f.Sentiment
	if got.OverallSentiment != 0.25 || got.UpdatedAt == nil || !got.UpdatedAt.Equal(now) {
		t.Fatalf("summary = %+v", got)
	}
	social := got.RecentBySource[domain.CategorySocial]
	if len(social) != 1 || social[0].Weight == nil || *social[0].Weight != 42 {
		t.Fatalf("social = %+v", social)
	}
	if news := got.RecentBySource[domain.CategoryNews]; news == nil || len(news) != 0 {
		t.Fatalf("news list should be empty, got %+v", news)
	}
}

func TestDefaultSummarySerializesNullUpdatedAt(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(filepath.Join(dir, "m.json"), filepath.Join(dir, "s.json"))
	if err := p.PublishSentiment(context.Background(), domain.NewSentimentSummary()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p.SentimentPath())
	if err != nil {
		t.Fatal(err)
	}
	if want := `"updated_at":null`; !strings.Contains(string(b), want) {
		t.Fatalf("expected %s in %s", want, b)
	}
}

func TestReadMissingFileIsNoData(t *testing.T) {
	_, ok, err := ReadMarket(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	_, ok, err = ReadSentiment(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"exchanges":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadMarket(path); err == nil {
		t.Fatal("expected version error")
	}
}

func TestPublishFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// parent "directory" is a regular file
	p := NewFilePublisher(filepath.Join(blocker, "market.json"), filepath.Join(blocker, "s.json"))
	err := p.PublishMarket(context.Background(), domain.MarketSnapshot{State: domain.AggregateState{}})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
