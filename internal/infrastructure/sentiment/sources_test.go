package sentiment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketpulse/internal/domain"
)

func TestRedditSourceFetch(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotUA = r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"BTC to the moon","score":120,"permalink":"/r/bitcoin/comments/1"}},
			{"data":{"title":"second","score":3}},
			{"data":{"title":"third","score":1}}
		]}}`))
	}))
	defer srv.Close()

	src := NewRedditSource(srv.Client(), srv.URL+"/", "bitcoin", 2, "CryptoSentimentBot/1.0")
	if src.Name() != "r/bitcoin" {
		t.Errorf("name = %q", src.Name())
	}
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/r/bitcoin/hot.json" || gotQuery != "limit=2" {
		t.Errorf("request = %s?%s", gotPath, gotQuery)
	}
	if gotUA != "CryptoSentimentBot/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
	if len(items) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(items))
	}
	if items[0].Source != "r/bitcoin" || items[0].Text != "BTC to the moon" {
		t.Errorf("item = %+v", items[0])
	}
	if items[0].Weight == nil || *items[0].Weight != 120 {
		t.Errorf("weight = %v", items[0].Weight)
	}
	if items[0].URL != srv.URL+"/r/bitcoin/comments/1" {
		t.Errorf("url = %q", items[0].URL)
	}
}

func TestNewsSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Data":[
			{"title":"ETF approved","source":"CoinDesk","url":"https://example.com/a"},
			{"title":"No publisher"},
			{"title":"dropped"}
		]}`))
	}))
	defer srv.Close()

	items, err := NewNewsSource(srv.Client(), srv.URL, 2, "").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Source != "CoinDesk" || items[0].URL != "https://example.com/a" || items[0].Weight != nil {
		t.Errorf("item = %+v", items[0])
	}
	if items[1].Source != "Unknown" {
		t.Errorf("default source = %q", items[1].Source)
	}
}

func TestSourceFetchErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}},
		{"malformed", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"Data":`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			if _, err := NewNewsSource(srv.Client(), srv.URL, 10, "").Fetch(context.Background()); !errors.Is(err, domain.ErrFetch) {
				t.Errorf("news: expected ErrFetch, got %v", err)
			}
			if _, err := NewRedditSource(srv.Client(), srv.URL, "ethereum", 10, "").Fetch(context.Background()); !errors.Is(err, domain.ErrFetch) {
				t.Errorf("reddit: expected ErrFetch, got %v", err)
			}
		})
	}
}

func TestSourceFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	client := NewHTTPClient(50 * time.Millisecond)
	_, err := NewNewsSource(client, srv.URL, 10, "").Fetch(context.Background())
	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch on timeout, got %v", err)
	}
}
