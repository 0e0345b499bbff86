package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"marketpulse/internal/application/usecase/monitor"
	"marketpulse/internal/infrastructure/config"
	"marketpulse/internal/infrastructure/logger"
	"marketpulse/internal/infrastructure/svc"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	logger.Setup("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	sc.StartHTTP()

	service := monitor.NewService(sc.BuildMonitorServiceDeps())

	log.Info().
		Str("config", *configPath).
		Strs("exchanges", cfg.GetEnabledExchanges()).
		Dur("display_every", cfg.DisplayInterval()).
		Dur("sentiment_every", cfg.SentimentInterval()).
		Str("market_path", cfg.Snapshot.MarketPath).
		Msg("marketpulse started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("monitor service exited")
	}
	log.Info().Msg("shutting down")
}
