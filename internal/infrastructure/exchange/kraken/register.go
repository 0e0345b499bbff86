package kraken

import (
	"marketpulse/internal/application"
	"marketpulse/internal/application/port"
	"marketpulse/internal/infrastructure/exchange"
	"marketpulse/internal/infrastructure/pricefeed"
)

// init() 自动注册 Kraken ticker feed
func init() {
	pricefeed.Register(application.ExchangeKraken, func(spec pricefeed.Spec) port.PriceFeed {
		return exchange.NewFeed(spec.WsURL, spec.Products, spec.Channel, NewDecoder(), spec.Options)
	})
}
