package pricefeed

import (
	"sort"

	"marketpulse/internal/application/port"
	"marketpulse/internal/infrastructure/exchange"

	"github.com/rs/zerolog/log"
)

// Spec carries everything a factory needs to build one feed.
type Spec struct {
	WsURL    string
	Products []string
	Channel  string
	Options  exchange.Options
}

// factory函数类型
type Factory func(spec Spec) port.PriceFeed

// registry maps exchange names to their respective price feed factories
var registry = make(map[string]Factory)

// Register 注册一个 price feed factory
// 这是由各个交易所包的init()函数调用来自注册的
func Register(exchangeName string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", exchangeName).Msg("invalid price feed factory")
		return
	}
	if _, exists := registry[exchangeName]; exists {
		log.Warn().Str("exchange", exchangeName).Msg("price feed factory already registered, overwriting")
	}
	registry[exchangeName] = factory
	log.Debug().Str("exchange", exchangeName).Msg("price feed factory registered")
}

// Get 获取已注册的price feed factory for给定的exchange名称
func Get(exchangeName string) (Factory, bool) {
	factory, ok := registry[exchangeName]
	return factory, ok
}

// Names returns all registered exchange names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
