package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Decoder knows one exchange's wire format.
type Decoder interface {
	Name() string
	// SubscribeMessage builds the payload sent right after the handshake.
	SubscribeMessage(products []string, channel string) ([]byte, error)
	// Decode returns the ticks carried by one frame. A frame that is not a
	// ticker event yields no ticks and no error; a ticker frame with a broken
	// shape yields an error wrapping domain.ErrDecode.
	Decode(b []byte) ([]port.Tick, error)
}

// Options 连接参数；零值即原始行为：不重连、无读超时
type Options struct {
	Reconnect    bool
	ReadTimeout  time.Duration // 0 = no read deadline, no pings
	DialTimeout  time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Metrics      port.Metrics
	Dialer       *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.Metrics == nil {
		o.Metrics = port.NopMetrics{}
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// Feed is a generic streaming adapter: one connection, one decoder.
type Feed struct {
	wsURL    string
	products []string
	channel  string
	decoder  Decoder
	opts     Options
}

func NewFeed(wsURL string, products []string, channel string, decoder Decoder, opts Options) *Feed {
	return &Feed{
		wsURL:    strings.TrimSpace(wsURL),
		products: products,
		channel:  channel,
		decoder:  decoder,
		opts:     opts.withDefaults(),
	}
}

func (f *Feed) Name() string { return f.decoder.Name() }

// Run connects, subscribes and forwards ticks to sink in receipt order.
// Without Options.Reconnect the first connection error ends Run with an error
// wrapping domain.ErrConnection.
func (f *Feed) Run(ctx context.Context, sink port.TickSink) error {
	if f.wsURL == "" {
		return fmt.Errorf("%w: %s ws url empty", domain.ErrConnection, f.Name())
	}
	if len(f.products) == 0 {
		return fmt.Errorf("%w: %s products empty", domain.ErrConnection, f.Name())
	}
	sub, err := f.decoder.SubscribeMessage(f.products, f.channel)
	if err != nil {
		return fmt.Errorf("%s subscribe payload: %w", f.Name(), err)
	}

	backoff := f.opts.InitialDelay

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := f.session(ctx, sub, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.opts.Metrics.FeedDisconnected(f.Name())
		if !f.opts.Reconnect {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws connection lost, feed stopped")
			return fmt.Errorf("%w: %s: %v", domain.ErrConnection, f.Name(), err)
		}

		log.Warn().Str("feed", f.Name()).Err(err).Dur("backoff", backoff).Msg("ws disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = MinDuration(backoff*2, f.opts.MaxDelay)
	}
}

// session covers one connection lifetime: dial, subscribe, read until error.
func (f *Feed) session(ctx context.Context, sub []byte, sink port.TickSink) error {
	log.Info().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")

	cctx, cancel := context.WithTimeout(ctx, f.opts.DialTimeout)
	conn, _, err := f.opts.Dialer.DialContext(cctx, f.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Info().Str("feed", f.Name()).Msg("ws connected")

	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Info().Str("feed", f.Name()).Strs("products", f.products).Str("channel", f.channel).Msg("subscribed")

	return readLoop(ctx, conn, f.opts.ReadTimeout, func(b []byte) {
		ticks, err := f.decoder.Decode(b)
		if err != nil {
			f.opts.Metrics.FrameDropped(f.Name())
			log.Debug().Str("feed", f.Name()).Err(err).Msg("frame dropped")
			return
		}
		for _, t := range ticks {
			sink.Update(ctx, t.Exchange, t.Product, t.Bid, t.Ask, t.Volume)
		}
	})
}

// readLoop delivers frames to onMsg from a single goroutine. With a positive
// readTimeout it also arms a read deadline and pings at 40% of it.
func readLoop(ctx context.Context, conn *websocket.Conn, readTimeout time.Duration, onMsg func([]byte)) error {
	var pingC <-chan time.Time
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})
		pingTicker := time.NewTicker(readTimeout * 2 / 5)
		defer pingTicker.Stop()
		pingC = pingTicker.C
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if readTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// unblock the reader
			_ = conn.Close()
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			if err == nil {
				err = errors.New("reader stopped")
			}
			return err
		case <-pingC:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

// MinDuration returns the minimum of two durations
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// BytesTrimSpace trims whitespace from byte slice
func BytesTrimSpace(b []byte) []byte {
	i := 0
	j := len(b) - 1
	for i <= j && (b[i] == ' ' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	for j >= i && (b[j] == ' ' || b[j] == '\n' || b[j] == '\r' || b[j] == '\t') {
		j--
	}
	if i > j {
		return []byte{}
	}
	return b[i : j+1]
}
