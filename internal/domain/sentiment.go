package domain

import "time"

const (
	CategorySocial = "social"
	CategoryNews   = "news"
)

// ScoredSample is one scored text unit. Weight is only set for sources that
// report a provenance metric (post score).
type ScoredSample struct {
	Source     string    `json:"source"`
	Category   string    `json:"category"`
	Text       string    `json:"text"`
	Sentiment  float64   `json:"sentiment"`
	Weight     *float64  `json:"weight,omitempty"`
	URL        string    `json:"url,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// SentimentSummary is the fused view of one collection cycle.
type SentimentSummary struct {
	RecentBySource   map[string][]ScoredSample `json:"recent_by_source"`
	OverallSentiment float64                   `json:"overall_sentiment"`
	UpdatedAt        *time.Time                `json:"updated_at"`
}

// NewSentimentSummary returns the default summary that stands until the
// first non-empty cycle.
func NewSentimentSummary() SentimentSummary {
	return SentimentSummary{
		RecentBySource: map[string][]ScoredSample{
			CategorySocial: {},
			CategoryNews:   {},
		},
	}
}

func (s SentimentSummary) Clone() SentimentSummary {
	out := SentimentSummary{
		RecentBySource:   make(map[string][]ScoredSample, len(s.RecentBySource)),
		OverallSentiment: s.OverallSentiment,
	}
	for k, v := range s.RecentBySource {
		out.RecentBySource[k] = append([]ScoredSample(nil), v...)
		if out.RecentBySource[k] == nil {
			out.RecentBySource[k] = []ScoredSample{}
		}
	}
	if s.UpdatedAt != nil {
		ts := *s.UpdatedAt
		out.UpdatedAt = &ts
	}
	return out
}
