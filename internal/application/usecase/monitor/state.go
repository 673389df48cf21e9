package monitor

import (
	"sync"
	"time"

	"xrplboard/internal/domain"
)

// State keeps what the board shows: the latest ranked tokens and XRP price.
type State struct {
	mu sync.Mutex

	tokens    []domain.Token
	xrpPrice  float64
	hasPrice  bool
	updatedAt time.Time
}

func NewState() *State {
	return &State{}
}

// ApplyTokens replaces the token set. It returns whether anything visible
// changed: membership, order or a price move.
func (s *State) ApplyTokens(tokens []domain.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := len(tokens) != len(s.tokens)
	if !changed {
		for i := range tokens {
			prev, cur := s.tokens[i], tokens[i]
			if prev.ID() != cur.ID() || prev.PriceUSD != cur.PriceUSD ||
				cur.PriceIncreased || cur.PriceDecreased {
				changed = true
				break
			}
		}
	}
	s.tokens = tokens
	s.updatedAt = time.Now()
	return changed
}

// ApplyPrice records the XRP/USD price and reports whether it changed.
func (s *State) ApplyPrice(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPrice && s.xrpPrice == p {
		return false
	}
	s.xrpPrice = p
	s.hasPrice = true
	return true
}

type Snapshot struct {
	Tokens    []domain.Token
	XRPPrice  float64
	HasPrice  bool
	UpdatedAt time.Time
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := make([]domain.Token, len(s.tokens))
	copy(tokens, s.tokens)
	return Snapshot{
		Tokens:    tokens,
		XRPPrice:  s.xrpPrice,
		HasPrice:  s.hasPrice,
		UpdatedAt: s.updatedAt,
	}
}
