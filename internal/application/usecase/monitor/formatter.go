package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"marketpulse/internal/domain"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

const frameWidth = 80

// 情绪分超过该阈值才标记为 bullish / bearish
const sentimentNeutralBand = 0.1

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

func (f *Formatter) colorize(s, c string) string {
	if !f.Color {
		return s
	}
	return c + s + ansiReset
}

// Render builds one display frame: every exchange and product in the
// snapshot, then the last sentiment summary when one is given.
func (f *Formatter) Render(snap domain.AggregateState, summary *domain.SentimentSummary, now time.Time) string {
	var sb strings.Builder
	rule := strings.Repeat("=", frameWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString(f.colorize(center("MARKET DATA AGGREGATOR", frameWidth), ansiBold) + "\n")
	sb.WriteString(center("Updated: "+now.Format("2006-01-02 15:04:05"), frameWidth) + "\n")
	sb.WriteString(rule + "\n")

	exchanges := make([]string, 0, len(snap))
	for ex := range snap {
		exchanges = append(exchanges, ex)
	}
	sort.Strings(exchanges)

	if len(exchanges) == 0 {
		sb.WriteString("\n" + f.colorize("  Waiting for market data...", ansiDim) + "\n")
	}
	for _, ex := range exchanges {
		products := snap[ex]
		names := make([]string, 0, len(products))
		for p := range products {
			names = append(names, p)
		}
		sort.Strings(names)

		sb.WriteString("\n" + f.colorize(strings.ToUpper(ex), ansiYellow) + "\n")
		sb.WriteString(strings.Repeat("-", frameWidth) + "\n")
		for _, p := range names {
			t := products[p]
			fmt.Fprintf(&sb, "  %-12s bid $%s  ask $%s  spread $%s (%.3f%%)  vol %s  %s\n",
				p,
				money(t.Bid),
				money(t.Ask),
				money(t.Spread()),
				t.SpreadPercent(),
				money(t.Volume),
				f.colorize(t.ObservedAt.Format("15:04:05"), ansiDim),
			)
		}
	}

	if summary != nil {
		sb.WriteString("\n")
		sb.WriteString(f.renderSentiment(*summary))
	}
	sb.WriteString("\n" + rule + "\n")
	return sb.String()
}

func (f *Formatter) renderSentiment(s domain.SentimentSummary) string {
	if s.UpdatedAt == nil {
		return "SENTIMENT " + f.colorize("no data yet", ansiDim) + "\n"
	}
	label, col := "neutral", ansiYellow
	switch {
	case s.OverallSentiment > sentimentNeutralBand:
		label, col = "bullish", ansiGreen
	case s.OverallSentiment < -sentimentNeutralBand:
		label, col = "bearish", ansiRed
	}
	return fmt.Sprintf("SENTIMENT overall %s  social %d  news %d  updated %s\n",
		f.colorize(fmt.Sprintf("%+.3f (%s)", s.OverallSentiment, label), col),
		len(s.RecentBySource[domain.CategorySocial]),
		len(s.RecentBySource[domain.CategoryNews]),
		s.UpdatedAt.Format("15:04:05"),
	)
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
