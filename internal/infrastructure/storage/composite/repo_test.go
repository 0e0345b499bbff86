package composite

import (
	"context"
	"errors"
	"testing"

	"marketpulse/internal/domain"
)

type fakeRepo struct {
	market    int
	sentiment int
	err       error
}

func (f *fakeRepo) PublishMarket(context.Context, domain.MarketSnapshot) error {
	f.market++
	return f.err
}

func (f *fakeRepo) PublishSentiment(context.Context, domain.SentimentSummary) error {
	f.sentiment++
	return f.err
}

func TestCompositeFansOut(t *testing.T) {
	a, b := &fakeRepo{}, &fakeRepo{}
	r := New(a, nil, b)
	if r.Len() != 2 {
		t.Fatalf("nil repo should be filtered, len=%d", r.Len())
	}

	ctx := context.Background()
	if err := r.PublishMarket(ctx, domain.MarketSnapshot{}); err != nil {
		t.Fatal(err)
	}
	if err := r.PublishSentiment(ctx, domain.NewSentimentSummary()); err != nil {
		t.Fatal(err)
	}
	if a.market != 1 || b.market != 1 || a.sentiment != 1 || b.sentiment != 1 {
		t.Errorf("unexpected calls a=%+v b=%+v", a, b)
	}
}

func TestCompositeContinuesAfterFailure(t *testing.T) {
	failing := &fakeRepo{err: domain.ErrPersistence}
	ok := &fakeRepo{}
	r := New(failing, ok)

	err := r.PublishMarket(context.Background(), domain.MarketSnapshot{})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if ok.market != 1 {
		t.Errorf("second repo should still be called")
	}
}
