package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"marketpulse/internal/application/port"
)

const DefaultRedditURL = "https://www.reddit.com"

// RedditSource reads the hot listing of one subreddit.
type RedditSource struct {
	client    *http.Client
	baseURL   string
	channel   string
	limit     int
	userAgent string
}

func NewRedditSource(client *http.Client, baseURL, channel string, limit int, userAgent string) *RedditSource {
	if baseURL == "" {
		baseURL = DefaultRedditURL
	}
	if limit <= 0 {
		limit = 10
	}
	return &RedditSource{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		channel:   strings.TrimPrefix(strings.TrimSpace(channel), "r/"),
		limit:     limit,
		userAgent: userAgent,
	}
}

func (s *RedditSource) Name() string { return "r/" + s.channel }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string  `json:"title"`
				Score     float64 `json:"score"`
				Permalink string  `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *RedditSource) Fetch(ctx context.Context) ([]port.RawItem, error) {
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", s.baseURL, url.PathEscape(s.channel), s.limit)

	var listing redditListing
	if err := getJSON(ctx, s.client, endpoint, s.userAgent, &listing); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	children := listing.Data.Children
	if len(children) > s.limit {
		children = children[:s.limit]
	}
	out := make([]port.RawItem, 0, len(children))
	for _, c := range children {
		score := c.Data.Score
		item := port.RawItem{
			Source: s.Name(),
			Text:   c.Data.Title,
			Weight: &score,
		}
		if c.Data.Permalink != "" {
			item.URL = s.baseURL + c.Data.Permalink
		}
		out = append(out, item)
	}
	return out, nil
}

var _ port.SampleSource = (*RedditSource)(nil)
