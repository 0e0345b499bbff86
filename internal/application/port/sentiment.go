package port

import "context"

// Scorer maps text to a polarity in [-1, 1].
type Scorer interface {
	Score(text string) (float64, error)
}

// RawItem is one unscored entry returned by a sentiment source.
type RawItem struct {
	Source string   // label, e.g. "r/bitcoin" or the publisher name
	Text   string   // title
	Weight *float64 // upvote score when the source has one
	URL    string
}

// SampleSource fetches the most recent items of one named source.
type SampleSource interface {
	Name() string
	Fetch(ctx context.Context) ([]RawItem, error)
}
