package monitor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"marketpulse/internal/domain"
)

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []domain.MarketSnapshot
	err   error
}

func (r *recordingPublisher) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestStateUpdateComputesDerivedFields(t *testing.T) {
	st := NewState(nil, WithClock(fixedClock()))
	ctx := context.Background()

	tk := st.Update(ctx, "coinbase", "BTC-USD", 50000, 50010, 123.5)
	if tk.Spread() != 10 {
		t.Errorf("spread = %v", tk.Spread())
	}
	if tk.SpreadPercent() != 10.0/50000*100 {
		t.Errorf("spreadPercent = %v", tk.SpreadPercent())
	}

	tk = st.Update(ctx, "coinbase", "ETH-USD", 0, 5, 1)
	if tk.SpreadPercent() != 0 {
		t.Errorf("spreadPercent with zero bid = %v", tk.SpreadPercent())
	}
}

func TestStateKeepsOnlyLatestTick(t *testing.T) {
	st := NewState(nil)
	ctx := context.Background()

	st.Update(ctx, "kraken", "XBT/USD", 1, 2, 3)
	st.Update(ctx, "kraken", "XBT/USD", 4, 5, 6)

	snap := st.Snapshot()
	if n := snap.Count(); n != 1 {
		t.Fatalf("expected 1 tick, got %d", n)
	}
	got := snap["kraken"]["XBT/USD"]
	if got.Bid != 4 || got.Ask != 5 || got.Volume != 6 {
		t.Fatalf("unexpected tick %+v", got)
	}
}

func TestStateSnapshotIdempotent(t *testing.T) {
	st := NewState(nil)
	ctx := context.Background()
	st.Update(ctx, "coinbase", "BTC-USD", 1, 2, 3)
	st.Update(ctx, "kraken", "ETH/USD", 4, 5, 6)

	a := st.Snapshot()
	b := st.Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ:\n%v\n%v", a, b)
	}

	a["coinbase"]["BTC-USD"] = domain.CanonicalTick{}
	if st.Snapshot()["coinbase"]["BTC-USD"].Bid != 1 {
		t.Fatal("snapshot exposes internal table")
	}
}

func TestStateConcurrentUpdatesAreNotLost(t *testing.T) {
	pub := &recordingPublisher{}
	st := NewState(pub)
	ctx := context.Background()

	const perExchange = 100
	exchanges := []string{"coinbase", "kraken"}

	var wg sync.WaitGroup
	for _, ex := range exchanges {
		for i := 0; i < perExchange; i++ {
			wg.Add(1)
			go func(ex string, i int) {
				defer wg.Done()
				st.Update(ctx, ex, fmt.Sprintf("P-%03d", i), float64(i), float64(i)+1, 1)
			}(ex, i)
		}
	}
	wg.Wait()

	snap := st.Snapshot()
	for _, ex := range exchanges {
		if n := len(snap[ex]); n != perExchange {
			t.Errorf("%s: expected %d products, got %d", ex, perExchange, n)
		}
		for i := 0; i < perExchange; i++ {
			p := fmt.Sprintf("P-%03d", i)
			if snap[ex][p].Bid != float64(i) {
				t.Errorf("%s %s: bid = %v", ex, p, snap[ex][p].Bid)
			}
		}
	}
	if pub.count() != perExchange*len(exchanges) {
		t.Errorf("expected one publish per update, got %d", pub.count())
	}
}

func TestStatePublishesConsistentSnapshots(t *testing.T) {
	pub := &recordingPublisher{}
	st := NewState(pub)
	ctx := context.Background()

	st.Update(ctx, "coinbase", "BTC-USD", 1, 2, 3)
	st.Update(ctx, "kraken", "XBT/USD", 4, 5, 6)

	if len(pub.snaps) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.snaps))
	}
	first, second := pub.snaps[0], pub.snaps[1]
	if first.State.Count() != 1 || second.State.Count() != 2 {
		t.Fatalf("publish sizes %d/%d", first.State.Count(), second.State.Count())
	}
	if second.Changed.Exchange != "kraken" || second.Changed.Product != "XBT/USD" {
		t.Fatalf("changed tick = %+v", second.Changed)
	}
	if _, ok := first.State["kraken"]; ok {
		t.Fatal("earlier published snapshot was mutated by a later update")
	}
}

func TestStatePublishFailureKeepsState(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("disk full")}
	st := NewState(pub)

	st.Update(context.Background(), "coinbase", "BTC-USD", 10, 11, 1)

	if st.Len() != 1 {
		t.Fatalf("state lost after publish failure")
	}
}

func TestStateExchangesAndProductsSorted(t *testing.T) {
	st := NewState(nil)
	ctx := context.Background()
	st.Update(ctx, "Kraken", "XBT/USD", 1, 2, 3)
	st.Update(ctx, "coinbase", "ETH-USD", 1, 2, 3)
	st.Update(ctx, "coinbase", "BTC-USD", 1, 2, 3)

	if got := st.Exchanges(); !reflect.DeepEqual(got, []string{"coinbase", "kraken"}) {
		t.Fatalf("exchanges = %v", got)
	}
	if got := st.Products("COINBASE"); !reflect.DeepEqual(got, []string{"BTC-USD", "ETH-USD"}) {
		t.Fatalf("products = %v", got)
	}
}
