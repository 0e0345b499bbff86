package websocket

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"marketpulse/internal/application/port"
	"marketpulse/internal/infrastructure/config"
	"marketpulse/internal/infrastructure/exchange"
	"marketpulse/internal/infrastructure/pricefeed"
)

// WebSocketManager 统一管理所有已启用交易所的行情连接
type WebSocketManager struct {
	feeds   map[string]port.PriceFeed
	order   []string
	metrics port.Metrics
}

func NewWebSocketManager(metrics port.Metrics) *WebSocketManager {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &WebSocketManager{
		feeds:   make(map[string]port.PriceFeed),
		metrics: metrics,
	}
}

// Initialize 为每个启用的交易所创建一个 feed
// 单个交易所没有注册 factory 时跳过，全部失败才返回错误
func (m *WebSocketManager) Initialize(cfg *config.Config) error {
	enabled := cfg.GetEnabledExchanges()
	var failed []string

	opts := exchange.Options{
		Reconnect:   cfg.Feed.Reconnect,
		ReadTimeout: cfg.ReadTimeout(),
		Metrics:     m.metrics,
	}

	for _, name := range enabled {
		if err := m.register(name, cfg.Exchanges[name], opts); err != nil {
			log.Error().Err(err).Str("exchange", name).Msg("failed to initialize feed")
			failed = append(failed, name)
		}
	}

	if len(enabled) > 0 && len(failed) == len(enabled) {
		return fmt.Errorf("failed to initialize feeds for all exchanges: %v", failed)
	}
	if len(failed) > 0 {
		log.Warn().Strs("failed_exchanges", failed).Msg("some exchanges failed to initialize, others continue")
	}
	return nil
}

func (m *WebSocketManager) register(name string, exCfg config.ExchangeConfig, opts exchange.Options) error {
	factory, ok := pricefeed.Get(name)
	if !ok {
		return fmt.Errorf("price feed factory not registered for exchange: %s (registered: %v)", name, pricefeed.Names())
	}
	m.feeds[name] = factory(pricefeed.Spec{
		WsURL:    exCfg.WsURL,
		Products: exCfg.Products,
		Channel:  exCfg.Channel,
		Options:  opts,
	})
	m.order = append(m.order, name)
	log.Info().Str("exchange", name).Strs("products", exCfg.Products).Msg("✓ " + name + " feed initialized")
	return nil
}

// GetFeed 获取指定交易所的 feed
func (m *WebSocketManager) GetFeed(name string) port.PriceFeed {
	return m.feeds[name]
}

// Feeds returns the initialized feeds in config order.
func (m *WebSocketManager) Feeds() []port.PriceFeed {
	out := make([]port.PriceFeed, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.feeds[name])
	}
	return out
}
