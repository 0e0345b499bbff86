package port

// Metrics receives observability events from feeds, the store and the
// sentiment pipeline.
type Metrics interface {
	TickApplied(exchange string, tracked int)
	FrameDropped(exchange string)
	FeedDisconnected(exchange string)
	FetchFailed(source string)
	ScoringFailed()
	PersistFailed(target string)
	SentimentFused(samples int, overall float64)
}

type NopMetrics struct{}

func (NopMetrics) TickApplied(string, int)     {}
func (NopMetrics) FrameDropped(string)         {}
func (NopMetrics) FeedDisconnected(string)     {}
func (NopMetrics) FetchFailed(string)          {}
func (NopMetrics) ScoringFailed()              {}
func (NopMetrics) PersistFailed(string)        {}
func (NopMetrics) SentimentFused(int, float64) {}

var _ Metrics = NopMetrics{}
