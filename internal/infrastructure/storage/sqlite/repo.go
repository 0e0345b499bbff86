package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exchange TEXT NOT NULL,
  product TEXT NOT NULL,
  bid REAL NOT NULL,
  ask REAL NOT NULL,
  spread REAL NOT NULL,
  spread_percent REAL NOT NULL,
  volume REAL NOT NULL,
  observed_ms INTEGER NOT NULL,
  UNIQUE(exchange, product)
);
CREATE INDEX IF NOT EXISTS idx_ticks_observed ON ticks(observed_ms);

CREATE TABLE IF NOT EXISTS sentiment_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  overall REAL NOT NULL,
  samples INTEGER NOT NULL,
  payload TEXT NOT NULL
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
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exchange, product) DO UPDATE SET
		bid=excluded.bid, ask=excluded.ask, spread=excluded.spread,
		spread_percent=excluded.spread_percent, volume=excluded.volume, observed_ms=excluded.observed_ms
	`, t.Exchange, t.Product, t.Bid, t.Ask, t.Spread(), t.SpreadPercent(), t.Volume, t.ObservedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: sqlite: %v", domain.ErrPersistence, err)
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
	samples := 0
	for _, v := range summary.RecentBySource {
		samples += len(v)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sentiment_snapshots(ts_ms, overall, samples, payload) VALUES(?, ?, ?, ?)`,
		ts, summary.OverallSentiment, samples, string(payload))
	if err != nil {
		return fmt.Errorf("%w: sqlite: %v", domain.ErrPersistence, err)
	}
	return nil
}

// LatestTicks returns the mirrored tick table.
func (r *Repo) LatestTicks(ctx context.Context) (domain.AggregateState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT exchange, product, bid, ask, volume, observed_ms FROM ticks ORDER BY exchange, product`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(domain.AggregateState)
	for rows.Next() {
		var ex, product string
		var bid, ask, volume float64
		var ms int64
		if err := rows.Scan(&ex, &product, &bid, &ask, &volume, &ms); err != nil {
			return nil, err
		}
		if out[ex] == nil {
			out[ex] = make(map[string]domain.CanonicalTick)
		}
		out[ex][product] = domain.NewCanonicalTick(ex, product, bid, ask, volume, time.UnixMilli(ms))
	}
	return out, rows.Err()
}

// LatestSentiment returns the most recent summary, ok=false when none stored.
func (r *Repo) LatestSentiment(ctx context.Context) (summary domain.SentimentSummary, ok bool, err error) {
	var payload string
	err = r.db.QueryRowContext(ctx, `SELECT payload FROM sentiment_snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SentimentSummary{}, false, nil
	}
	if err != nil {
		return domain.SentimentSummary{}, false, err
	}
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return domain.SentimentSummary{}, false, err
	}
	return summary, true, nil
}

var _ port.PublisherCloser = (*Repo)(nil)
