package sentiment

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"marketpulse/internal/domain"
)

// Driver runs collect+fuse once immediately and then on a fixed interval.
type Driver struct {
	collector *Collector
	fuser     *Fuser
	interval  time.Duration
}

func NewDriver(collector *Collector, fuser *Fuser, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Driver{collector: collector, fuser: fuser, interval: interval}
}

func (d *Driver) Fuser() *Fuser { return d.fuser }

func (d *Driver) Summary() domain.SentimentSummary { return d.fuser.Summary() }

func (d *Driver) RunCycle(ctx context.Context) domain.SentimentSummary {
	samples := d.collector.Collect(ctx)
	if ctx.Err() != nil {
		return d.fuser.Summary()
	}
	return d.fuser.Fuse(ctx, samples)
}

func (d *Driver) Run(ctx context.Context) error {
	log.Info().Dur("interval", d.interval).Msg("sentiment driver started")

	d.RunCycle(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.RunCycle(ctx)
		}
	}
}
