package tokenlist

import (
	"context"
	"strings"
	"sync"

	"xrplboard/internal/domain"
)

const (
	ItemsPerPage        = 50
	MaxSearchableTokens = 1000
)

// Filter produces the display list for term from the volume-ordered tokens.
// Only the first MaxSearchableTokens are searched. An empty term yields the
// first page; a non-empty term yields every match without a cap.
func Filter(tokens []domain.Token, term string) []domain.Token {
	window := tokens
	if len(window) > MaxSearchableTokens {
		window = window[:MaxSearchableTokens]
	}
	if strings.TrimSpace(term) == "" {
		return domain.Head(window, ItemsPerPage)
	}
	out := make([]domain.Token, 0)
	for _, t := range window {
		if t.Matches(term) {
			out = append(out, t)
		}
	}
	return out
}

type searchRequest struct {
	seq    uint64
	tokens []domain.Token
	term   string
}

// SearchResult is delivered for the most recent request only.
type SearchResult struct {
	Seq    uint64
	Term   string
	Tokens []domain.Token
}

// Searcher filters off the caller's goroutine. Submitting a new request
// supersedes any pending or running one: stale results are dropped.
type Searcher struct {
	deliver func(SearchResult)

	mu      sync.Mutex
	latest  uint64
	pending *searchRequest
	wake    chan struct{}
}

func NewSearcher(deliver func(SearchResult)) *Searcher {
	return &Searcher{
		deliver: deliver,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues a search and returns its sequence number.
func (s *Searcher) Submit(tokens []domain.Token, term string) uint64 {
	s.mu.Lock()
	s.latest++
	seq := s.latest
	s.pending = &searchRequest{seq: seq, tokens: tokens, term: term}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return seq
}

// Latest returns the sequence number of the most recent request.
func (s *Searcher) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Cancel drops pending work and any result still being computed.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	s.latest++
	s.pending = nil
	s.mu.Unlock()
}

// Run processes requests until ctx is done.
func (s *Searcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		req := s.pending
		s.pending = nil
		s.mu.Unlock()
		if req == nil {
			continue
		}

		res := Filter(req.tokens, req.term)

		s.mu.Lock()
		current := req.seq == s.latest
		s.mu.Unlock()
		if current && ctx.Err() == nil {
			s.deliver(SearchResult{Seq: req.seq, Term: req.term, Tokens: res})
		}
	}
}
