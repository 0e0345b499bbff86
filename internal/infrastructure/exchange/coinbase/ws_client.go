package coinbase

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketpulse/internal/application"
	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
	"marketpulse/internal/infrastructure/exchange"
)

const DefaultWsURL = "wss://ws-feed.exchange.coinbase.com"

// Decoder handles the Coinbase Exchange ticker channel.
type Decoder struct{}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Name() string { return application.ExchangeCoinbase }

type subscribeReq struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type tickerMsg struct {
	Type      string         `json:"type"`
	ProductID string         `json:"product_id"`
	BestBid   exchange.Float `json:"best_bid"`
	BestAsk   exchange.Float `json:"best_ask"`
	Volume24h exchange.Float `json:"volume_24h"`
}

func (d *Decoder) SubscribeMessage(products []string, channel string) ([]byte, error) {
	if strings.TrimSpace(channel) == "" {
		channel = "ticker"
	}
	return json.Marshal(subscribeReq{
		Type:       "subscribe",
		ProductIDs: products,
		Channels:   []string{channel},
	})
}

// Decode 只处理 type == "ticker" 的对象，缺失的数值字段按 0 处理
func (d *Decoder) Decode(b []byte) ([]port.Tick, error) {
	b = exchange.BytesTrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("%w: coinbase frame is not an object", domain.ErrDecode)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if head.Type != "ticker" {
		return nil, nil
	}

	var msg tickerMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("%w: coinbase ticker: %v", domain.ErrDecode, err)
	}
	if strings.TrimSpace(msg.ProductID) == "" {
		return nil, fmt.Errorf("%w: coinbase ticker without product_id", domain.ErrDecode)
	}

	t := port.Tick{
		Exchange: d.Name(),
		Product:  msg.ProductID,
		Bid:      msg.BestBid.Float64(),
		Ask:      msg.BestAsk.Float64(),
		Volume:   msg.Volume24h.Float64(),
	}
	if err := exchange.CheckQuote(t.Bid, t.Ask, t.Volume); err != nil {
		return nil, fmt.Errorf("%w: coinbase ticker %s: %v", domain.ErrDecode, t.Product, err)
	}
	return []port.Tick{t}, nil
}

var _ exchange.Decoder = (*Decoder)(nil)
