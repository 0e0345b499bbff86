package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS ticks (
  exchange TEXT NOT NULL,
  product TEXT NOT NULL,
  bid DOUBLE PRECISION NOT NULL,
  ask DOUBLE PRECISION NOT NULL,
  spread DOUBLE PRECISION NOT NULL,
  spread_percent DOUBLE PRECISION NOT NULL,
  volume DOUBLE PRECISION NOT NULL,
  observed_ms BIGINT NOT NULL,
  PRIMARY KEY (exchange, product)
);

CREATE TABLE IF NOT EXISTS sentiment_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  overall DOUBLE PRECISION NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sentiment_ts ON sentiment_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	t := snap.Changed
	if t.Exchange == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ticks(exchange, product, bid, ask, spread, spread_percent, volume, observed_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(exchange, product) DO UPDATE SET
		bid=EXCLUDED.bid, ask=EXCLUDED.ask, spread=EXCLUDED.spread,
		spread_percent=EXCLUDED.spread_percent, volume=EXCLUDED.volume, observed_ms=EXCLUDED.observed_ms
	`, t.Exchange, t.Product, t.Bid, t.Ask, t.Spread(), t.SpreadPercent(), t.Volume, t.ObservedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: postgres: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repo) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	ts := time.Now().UnixMilli()
	if summary.UpdatedAt != nil {
		ts = summary.UpdatedAt.UnixMilli()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sentiment_snapshots(ts_ms, overall, payload) VALUES($1, $2, $3)`,
		ts, summary.OverallSentiment, string(payload))
	if err != nil {
		return fmt.Errorf("%w: postgres: %v", domain.ErrPersistence, err)
	}
	return nil
}

var _ port.PublisherCloser = (*Repo)(nil)
