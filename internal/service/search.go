package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/maps"
)

// PlaceFinder looks up place suggestions for free text.
type PlaceFinder interface {
	Autocomplete(ctx context.Context, query string, near *domain.GeoPoint) ([]maps.Place, error)
}

// PlaceSearcher runs search-as-you-type for one session. Each Search cancels
// the previous one, and only the newest query's results are kept.
type PlaceSearcher struct {
	finder PlaceFinder

	mu          sync.Mutex
	seq         uint64
	cancel      context.CancelFunc
	latestQuery string
	latest      []maps.Place
	lastUsed    time.Time
}

// NewPlaceSearcher creates a PlaceSearcher backed by finder.
func NewPlaceSearcher(finder PlaceFinder) *PlaceSearcher {
	return &PlaceSearcher{finder: finder}
}

// Search returns suggestions for query. A search replaced by a newer one
// before it finishes returns ErrSuperseded.
func (s *PlaceSearcher) Search(ctx context.Context, query string, near *domain.GeoPoint) ([]maps.Place, error) {
	if s.finder == nil {
		return nil, fmt.Errorf("%w: place search is not configured", domain.ErrDegraded)
	}
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.lastUsed = time.Now()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if query == "" {
		s.latestQuery, s.latest = "", nil
		s.mu.Unlock()
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	places, err := s.finder.Autocomplete(ctx, query, near)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, ErrSuperseded
	}
	cancel()
	s.cancel = nil
	if err != nil {
		return nil, fmt.Errorf("%w: place search: %v", domain.ErrDegraded, err)
	}
	s.latestQuery = query
	s.latest = places
	return places, nil
}

// Latest returns the newest applied query and its results.
func (s *PlaceSearcher) Latest() (string, []maps.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestQuery, append([]maps.Place(nil), s.latest...)
}

func (s *PlaceSearcher) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SearchService hands out one PlaceSearcher per client session.
type SearchService struct {
	finder  PlaceFinder
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*PlaceSearcher
}

// NewSearchService creates a SearchService. Sessions unused for idleTTL are dropped.
func NewSearchService(finder PlaceFinder, idleTTL time.Duration) *SearchService {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &SearchService{
		finder:   finder,
		idleTTL:  idleTTL,
		sessions: make(map[string]*PlaceSearcher),
	}
}

// Session returns the searcher of sessionID, creating it if needed.
func (s *SearchService) Session(sessionID string) *PlaceSearcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	if searcher, ok := s.sessions[sessionID]; ok {
		return searcher
	}

	cutoff := time.Now().Add(-s.idleTTL)
	for id, searcher := range s.sessions {
		if searcher.idleSince().Before(cutoff) {
			delete(s.sessions, id)
		}
	}

	searcher := NewPlaceSearcher(s.finder)
	searcher.lastUsed = time.Now()
	s.sessions[sessionID] = searcher
	return searcher
}
