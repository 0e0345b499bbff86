package kraken

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketpulse/internal/application"
	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
	"marketpulse/internal/infrastructure/exchange"
)

const DefaultWsURL = "wss://ws.kraken.com"

// Decoder handles Kraken's v1 public ticker channel.
//
// Ticker frames are arrays: [channelID, {"a":[...],"b":[...],"v":[...],...}, "ticker", "XBT/USD"].
// Object frames (heartbeat, systemStatus, subscriptionStatus) carry no ticks.
type Decoder struct{}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Name() string { return application.ExchangeKraken }

type subscribeReq struct {
	Event        string          `json:"event"`
	Pair         []string        `json:"pair"`
	Subscription subscriptionArg `json:"subscription"`
}

type subscriptionArg struct {
	Name string `json:"name"`
}

type tickerData struct {
	A []exchange.Float `json:"a"` // ask [price, whole lot volume, lot volume]
	B []exchange.Float `json:"b"` // bid [price, whole lot volume, lot volume]
	V []exchange.Float `json:"v"` // volume [today, last 24 hours]
}

func (d *Decoder) SubscribeMessage(products []string, channel string) ([]byte, error) {
	if strings.TrimSpace(channel) == "" {
		channel = "ticker"
	}
	return json.Marshal(subscribeReq{
		Event:        "subscribe",
		Pair:         products,
		Subscription: subscriptionArg{Name: channel},
	})
}

func (d *Decoder) Decode(b []byte) ([]port.Tick, error) {
	b = exchange.BytesTrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil, nil
	}

	var frame []json.RawMessage
	if err := json.Unmarshal(b, &frame); err != nil {
		return nil, fmt.Errorf("%w: kraken frame: %v", domain.ErrDecode, err)
	}
	if len(frame) < 4 {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame[1], &fields); err != nil {
		// element 1 is not an object: not a ticker frame (e.g. book or trade arrays)
		return nil, nil
	}
	if _, ok := fields["a"]; !ok {
		return nil, nil
	}
	if _, ok := fields["b"]; !ok {
		return nil, nil
	}

	var data tickerData
	if err := json.Unmarshal(frame[1], &data); err != nil {
		return nil, fmt.Errorf("%w: kraken ticker: %v", domain.ErrDecode, err)
	}
	if len(data.A) < 1 || len(data.B) < 1 {
		return nil, fmt.Errorf("%w: kraken ticker with empty a/b", domain.ErrDecode)
	}
	if len(data.V) < 2 {
		return nil, fmt.Errorf("%w: kraken ticker volume needs 2 entries, got %d", domain.ErrDecode, len(data.V))
	}

	var pair string
	if err := json.Unmarshal(frame[3], &pair); err != nil || strings.TrimSpace(pair) == "" {
		return nil, fmt.Errorf("%w: kraken ticker pair missing", domain.ErrDecode)
	}

	t := port.Tick{
		Exchange: d.Name(),
		Product:  pair,
		Bid:      data.B[0].Float64(),
		Ask:      data.A[0].Float64(),
		Volume:   data.V[1].Float64(),
	}
	if err := exchange.CheckQuote(t.Bid, t.Ask, t.Volume); err != nil {
		return nil, fmt.Errorf("%w: kraken ticker %s: %v", domain.ErrDecode, pair, err)
	}
	return []port.Tick{t}, nil
}

var _ exchange.Decoder = (*Decoder)(nil)
