package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// CanonicalTick is the latest market state of one exchange/product pair.
// Spread values are derived from Bid and Ask on every read.
type CanonicalTick struct {
	Exchange   string    `json:"exchange"`
	Product    string    `json:"product"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Volume     float64   `json:"volume"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewCanonicalTick normalizes the exchange id to lower case.
func NewCanonicalTick(exchange, product string, bid, ask, volume float64, observedAt time.Time) CanonicalTick {
	return CanonicalTick{
		Exchange:   strings.ToLower(strings.TrimSpace(exchange)),
		Product:    product,
		Bid:        bid,
		Ask:        ask,
		Volume:     volume,
		ObservedAt: observedAt,
	}
}

// Spread = ask - bid
func (t CanonicalTick) Spread() float64 {
	return t.Ask - t.Bid
}

// SpreadPercent is the spread relative to the bid, 0 when the bid is not positive.
func (t CanonicalTick) SpreadPercent() float64 {
	if t.Bid > 0 {
		return t.Spread() / t.Bid * 100
	}
	return 0
}

type tickAlias CanonicalTick

type tickJSON struct {
	tickAlias
	Spread        float64 `json:"spread"`
	SpreadPercent float64 `json:"spread_percent"`
}

// MarshalJSON emits the derived spread fields next to the stored ones.
func (t CanonicalTick) MarshalJSON() ([]byte, error) {
	return json.Marshal(tickJSON{
		tickAlias:     tickAlias(t),
		Spread:        t.Spread(),
		SpreadPercent: t.SpreadPercent(),
	})
}

// UnmarshalJSON ignores the derived fields; they are recomputed from bid/ask.
func (t *CanonicalTick) UnmarshalJSON(b []byte) error {
	var a tickAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*t = CanonicalTick(a)
	return nil
}

// AggregateState maps exchange -> product -> latest tick.
type AggregateState map[string]map[string]CanonicalTick

// Clone returns a deep copy. CanonicalTick holds no references, so copying
// the inner maps is enough.
func (s AggregateState) Clone() AggregateState {
	out := make(AggregateState, len(s))
	for ex, products := range s {
		cp := make(map[string]CanonicalTick, len(products))
		for p, t := range products {
			cp[p] = t
		}
		out[ex] = cp
	}
	return out
}

// Count returns the number of ticks across all exchanges.
func (s AggregateState) Count() int {
	n := 0
	for _, products := range s {
		n += len(products)
	}
	return n
}

// MarketSnapshot is what the store hands to publishers after each update.
type MarketSnapshot struct {
	State       AggregateState
	Changed     CanonicalTick
	PublishedAt time.Time
}
