package port

import (
	"context"

	"marketpulse/internal/domain"
)

type Tick struct {
	Exchange string  // "coinbase" "kraken"
	Product  string  // as reported by the exchange, e.g. "BTC-USD", "XBT/USD"
	Bid      float64 // best bid
	Ask      float64 // best ask
	Volume   float64 // 24h rolling volume
}

// TickSink receives decoded ticks. Implementations must be safe for
// concurrent use by several feeds.
type TickSink interface {
	Update(ctx context.Context, exchange, product string, bid, ask, volume float64) domain.CanonicalTick
}

// PriceFeed owns one streaming connection and pushes every decoded tick into
// the sink until the connection fails or ctx is done.
type PriceFeed interface {
	Name() string
	Run(ctx context.Context, sink TickSink) error
}
