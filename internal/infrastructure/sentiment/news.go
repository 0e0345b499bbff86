package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"marketpulse/internal/application/port"
)

const DefaultNewsURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN"

// NewsSource reads the CryptoCompare news feed; each article is labelled
// with its publisher.
type NewsSource struct {
	client    *http.Client
	endpoint  string
	limit     int
	userAgent string
}

func NewNewsSource(client *http.Client, endpoint string, limit int, userAgent string) *NewsSource {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultNewsURL
	}
	if limit <= 0 {
		limit = 10
	}
	return &NewsSource{client: client, endpoint: endpoint, limit: limit, userAgent: userAgent}
}

func (s *NewsSource) Name() string { return "cryptocompare" }

type newsResponse struct {
	Data []struct {
		Title  string `json:"title"`
		Source string `json:"source"`
		URL    string `json:"url"`
	} `json:"Data"`
}

func (s *NewsSource) Fetch(ctx context.Context) ([]port.RawItem, error) {
	var resp newsResponse
	if err := getJSON(ctx, s.client, s.endpoint, s.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	articles := resp.Data
	if len(articles) > s.limit {
		articles = articles[:s.limit]
	}
	out := make([]port.RawItem, 0, len(articles))
	for _, a := range articles {
		src := a.Source
		if src == "" {
			src = "Unknown"
		}
		out = append(out, port.RawItem{Source: src, Text: a.Title, URL: a.URL})
	}
	return out, nil
}

var _ port.SampleSource = (*NewsSource)(nil)
