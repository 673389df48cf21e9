package domain

import "sync"

// Direction represents the price movement direction
type Direction int

const (
	DirectionSame Direction = 0
	DirectionUp   Direction = +1
	DirectionDown Direction = -1
)

// PriceTracker remembers the last observed price per token ID and reports
// the direction of each new observation.
type PriceTracker struct {
	mu   sync.Mutex
	last map[string]float64
}

func NewPriceTracker() *PriceTracker {
	return &PriceTracker{last: make(map[string]float64)}
}

// Observe records price for id. The first observation of an id, and any
// observation following a zero price, is DirectionSame.
func (pt *PriceTracker) Observe(id string, price float64) Direction {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	prev, ok := pt.last[id]
	pt.last[id] = price
	if !ok || prev == 0 {
		return DirectionSame
	}
	switch {
	case price > prev:
		return DirectionUp
	case price < prev:
		return DirectionDown
	default:
		return DirectionSame
	}
}

// Annotate sets PriceIncreased/PriceDecreased on every token from its USD
// price, updating the tracker as it goes.
func (pt *PriceTracker) Annotate(tokens []Token) {
	for i := range tokens {
		dir := pt.Observe(tokens[i].ID(), tokens[i].PriceUSD)
		tokens[i].PriceIncreased = dir == DirectionUp
		tokens[i].PriceDecreased = dir == DirectionDown
	}
}
