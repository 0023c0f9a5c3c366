package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/service"
)

func TestPlaceSearch_NewerQuerySupersedesOlder(t *testing.T) {
	t.Parallel()

	finder := &MockPlaceFinder{Delays: map[string]time.Duration{
		"jal":   200 * time.Millisecond,
		"jalan": 10 * time.Millisecond,
	}}
	searcher := service.NewPlaceSearcher(finder)
	ctx := context.Background()

	oldErr := make(chan error, 1)
	go func() {
		_, err := searcher.Search(ctx, "jal", nil)
		oldErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	places, err := searcher.Search(ctx, "jalan", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 || places[0].MainText != "jalan" {
		t.Errorf("unexpected places %+v", places)
	}

	if err := <-oldErr; !errors.Is(err, service.ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for the old query, got %v", err)
	}
	if cancelled := finder.Cancelled(); len(cancelled) != 1 || cancelled[0] != "jal" {
		t.Errorf("expected the old query to be cancelled, got %v", cancelled)
	}

	query, latest := searcher.Latest()
	if query != "jalan" || len(latest) != 1 {
		t.Errorf("expected latest to be jalan, got %q %v", query, latest)
	}
}

func TestPlaceSearch_EmptyQueryClears(t *testing.T) {
	t.Parallel()

	searcher := service.NewPlaceSearcher(&MockPlaceFinder{})
	ctx := context.Background()

	if _, err := searcher.Search(ctx, "monas", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	places, err := searcher.Search(ctx, "   ", nil)
	if err != nil || places != nil {
		t.Fatalf("expected nil result, got %v %v", places, err)
	}
	if query, latest := searcher.Latest(); query != "" || len(latest) != 0 {
		t.Errorf("expected cleared state, got %q %v", query, latest)
	}
}

func TestPlaceSearch_Degraded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, err := service.NewPlaceSearcher(nil).Search(ctx, "monas", nil); !errors.Is(err, domain.ErrDegraded) {
		t.Errorf("expected ErrDegraded without a finder, got %v", err)
	}
	failing := service.NewPlaceSearcher(&MockPlaceFinder{Error: ErrMockUnreachable})
	if _, err := failing.Search(ctx, "monas", nil); !errors.Is(err, domain.ErrDegraded) {
		t.Errorf("expected ErrDegraded on finder error, got %v", err)
	}
}

func TestSearchService_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	searches := service.NewSearchService(&MockPlaceFinder{}, time.Minute)

	a := searches.Session("a")
	if searches.Session("a") != a {
		t.Error("expected the same searcher for the same session")
	}
	b := searches.Session("b")
	if a == b {
		t.Fatal("expected distinct searchers per session")
	}

	ctx := context.Background()
	_, _ = a.Search(ctx, "monas", nil)
	_, _ = b.Search(ctx, "kemang", nil)

	if q, _ := a.Latest(); q != "monas" {
		t.Errorf("session a: expected monas, got %q", q)
	}
	if q, _ := b.Latest(); q != "kemang" {
		t.Errorf("session b: expected kemang, got %q", q)
	}
}
