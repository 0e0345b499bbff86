package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ExchangeConfig struct {
	Enabled  bool     `toml:"enabled"`
	WsURL    string   `toml:"ws_url"`
	Products []string `toml:"products"`
	Channel  string   `toml:"channel"`
}

type Config struct {
	App struct {
		DisplayEverySec      int `toml:"display_every_sec"`
		SentimentEveryCycles int `toml:"sentiment_every_cycles"`
	} `toml:"app"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Snapshot struct {
		MarketPath    string `toml:"market_path"`
		SentimentPath string `toml:"sentiment_path"`
	} `toml:"snapshot"`

	Feed struct {
		Reconnect      bool `toml:"reconnect"`
		ReadTimeoutSec int  `toml:"read_timeout_sec"`
	} `toml:"feed"`

	Exchanges map[string]ExchangeConfig `toml:"exchanges"`

	Sentiment struct {
		Enabled        bool   `toml:"enabled"`
		HTTPTimeoutSec int    `toml:"http_timeout_sec"`
		UserAgent      string `toml:"user_agent"`
		Window         int    `toml:"window"`

		Social struct {
			BaseURL  string   `toml:"base_url"`
			Channels []string `toml:"channels"`
			Limit    int      `toml:"limit"`
			DelaySec int      `toml:"delay_sec"`
		} `toml:"social"`

		News struct {
			URL   string `toml:"url"`
			Limit int    `toml:"limit"`
		} `toml:"news"`
	} `toml:"sentiment"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
	} `toml:"redis"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Kafka struct {
		Enabled        bool     `toml:"enabled"`
		Brokers        []string `toml:"brokers"`
		TickTopic      string   `toml:"tick_topic"`
		SentimentTopic string   `toml:"sentiment_topic"`
	} `toml:"kafka"`

	// 只读 HTTP 接口：健康检查、当前快照、metrics
	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"metrics"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes config from a TOML string, used by tests and embedded defaults.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.DisplayEverySec <= 0 {
		cfg.App.DisplayEverySec = 5
	}
	if cfg.App.SentimentEveryCycles <= 0 {
		cfg.App.SentimentEveryCycles = 60
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Snapshot.MarketPath == "" {
		cfg.Snapshot.MarketPath = "market_data.json"
	}
	if cfg.Snapshot.SentimentPath == "" {
		cfg.Snapshot.SentimentPath = "sentiment_data.json"
	}

	if cfg.Exchanges == nil {
		cfg.Exchanges = make(map[string]ExchangeConfig)
	}
	normalized := make(map[string]ExchangeConfig, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		if strings.TrimSpace(ex.Channel) == "" {
			ex.Channel = "ticker"
		}
		ex.WsURL = strings.TrimSpace(ex.WsURL)
		ex.Products = normalizeProducts(ex.Products)
		normalized[strings.ToLower(strings.TrimSpace(name))] = ex
	}
	cfg.Exchanges = normalized

	s := &cfg.Sentiment
	if s.HTTPTimeoutSec <= 0 {
		s.HTTPTimeoutSec = 10
	}
	if s.UserAgent == "" {
		s.UserAgent = "CryptoSentimentBot/1.0"
	}
	if s.Window <= 0 {
		s.Window = 20
	}
	if s.Social.BaseURL == "" {
		s.Social.BaseURL = "https://www.reddit.com"
	}
	if s.Social.Limit <= 0 {
		s.Social.Limit = 10
	}
	// 0 = 默认 2s，负数关闭间隔
	if s.Social.DelaySec == 0 {
		s.Social.DelaySec = 2
	} else if s.Social.DelaySec < 0 {
		s.Social.DelaySec = 0
	}
	if s.News.Limit <= 0 {
		s.News.Limit = 10
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "marketpulse"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/marketpulse.db"
	}
	if cfg.Kafka.TickTopic == "" {
		cfg.Kafka.TickTopic = "marketpulse.ticks"
	}
	if cfg.Kafka.SentimentTopic == "" {
		cfg.Kafka.SentimentTopic = "marketpulse.sentiment"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	for name, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}
		if ex.WsURL == "" {
			return fmt.Errorf("exchanges.%s.ws_url empty but enabled", name)
		}
		if _, err := url.Parse(ex.WsURL); err != nil {
			return fmt.Errorf("exchanges.%s.ws_url: %w", name, err)
		}
		if len(ex.Products) == 0 {
			return fmt.Errorf("exchanges.%s.products is empty", name)
		}
	}
	if cfg.Feed.ReadTimeoutSec < 0 {
		return errors.New("feed.read_timeout_sec must not be negative")
	}
	if cfg.Sentiment.Enabled && len(cfg.Sentiment.Social.Channels) == 0 && strings.TrimSpace(cfg.Sentiment.News.URL) == "" {
		return errors.New("sentiment enabled but no social channels and no news url")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers empty but enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

// GetEnabledExchanges returns the enabled exchange names, sorted.
func (c *Config) GetEnabledExchanges() []string {
	out := make([]string, 0, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		if ex.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.App.DisplayEverySec) * time.Second
}

// SentimentInterval is the fusion cadence: a whole number of display cycles.
func (c *Config) SentimentInterval() time.Duration {
	return c.DisplayInterval() * time.Duration(c.App.SentimentEveryCycles)
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Sentiment.HTTPTimeoutSec) * time.Second
}

func (c *Config) SocialDelay() time.Duration {
	return time.Duration(c.Sentiment.Social.DelaySec) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Feed.ReadTimeoutSec) * time.Second
}

// product ids keep their case: formats differ per exchange
func normalizeProducts(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		p := strings.TrimSpace(s)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
