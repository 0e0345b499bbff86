package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"marketpulse/internal/domain"
)

type MarketReader interface {
	Snapshot() domain.AggregateState
}

type SentimentReader interface {
	Summary() domain.SentimentSummary
}

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ServerDeps struct {
	Addr        string
	Market      MarketReader
	Sentiment   SentimentReader // nil = 情绪分析未开启
	MetricsPath string
	Metrics     http.Handler // nil = 不暴露 metrics
}

// Server wraps Echo and serves read-only views of the live state.
type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(recoverMiddleware(), requestLogging())

	h := &handler{market: deps.Market, sentiment: deps.Sentiment}
	e.GET("/healthz", h.health)
	e.GET("/api/v1/market", h.marketSnapshot)
	e.GET("/api/v1/market/:exchange", h.exchange)
	e.GET("/api/v1/sentiment", h.sentimentSummary)

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(deps.Metrics))
	}
	return &Server{echo: e, addr: deps.Addr}
}

func (s *Server) Handler() http.Handler { return s.echo }

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	log.Info().Msg("http server stopped")
	return nil
}

type handler struct {
	market    MarketReader
	sentiment SentimentReader
}

func (h *handler) health(c echo.Context) error {
	return ok(c, map[string]any{"time": time.Now().UTC()})
}

func (h *handler) marketSnapshot(c echo.Context) error {
	return ok(c, h.market.Snapshot())
}

func (h *handler) exchange(c echo.Context) error {
	name := strings.ToLower(c.Param("exchange"))
	products, found := h.market.Snapshot()[name]
	if !found {
		return reply(c, http.StatusNotFound, nil)
	}
	return ok(c, products)
}

func (h *handler) sentimentSummary(c echo.Context) error {
	if h.sentiment == nil {
		return reply(c, http.StatusServiceUnavailable, nil)
	}
	return ok(c, h.sentiment.Summary())
}

func ok(c echo.Context, data any) error { return reply(c, http.StatusOK, data) }

func reply(c echo.Context, status int, data any) error {
	return c.JSON(status, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debug().
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("http request")
			return err
		}
	}
}

func recoverMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("uri", c.Request().RequestURI).Msg("http handler panic")
					err = reply(c, http.StatusInternalServerError, nil)
				}
			}()
			return next(c)
		}
	}
}
