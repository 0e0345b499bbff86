package sentiment

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/jonreiter/govader"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

// VaderScorer 使用 VADER 词典打分，取 compound 值，范围 [-1, 1]
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer 加载内置词典，构造一次后可复用
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *VaderScorer) Score(text string) (float64, error) {
	if !utf8.ValidString(text) {
		return 0, fmt.Errorf("%w: invalid utf-8", domain.ErrScoring)
	}
	c := s.analyzer.PolarityScores(text).Compound
	if math.IsNaN(c) {
		return 0, fmt.Errorf("%w: compound is NaN", domain.ErrScoring)
	}
	return math.Max(-1, math.Min(1, c)), nil
}

var _ port.Scorer = (*VaderScorer)(nil)
