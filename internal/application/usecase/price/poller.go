package price

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/port"
)

const DefaultInterval = 30 * time.Second

const defaultErrorMessage = "Failed to fetch XRP price"

// State is the poller's latest observation. Price is nil until the first
// successful fetch.
type State struct {
	Price     *float64  `json:"price"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Poller keeps the XRP/USD price up to date. It shares nothing with the
// token pipeline.
type Poller struct {
	src      port.PriceSource
	interval time.Duration

	mu       sync.Mutex
	state    State
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func(State)
}

func NewPoller(src port.PriceSource, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		src:      src,
		interval: interval,
		state:    State{Loading: true},
	}
}

// OnChange registers fn to receive every new state. Must be set before Start.
func (p *Poller) OnChange(fn func(State)) { p.onChange = fn }

// Start fetches immediately and then every interval until Stop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.update(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.update(runCtx)
			}
		}
	}()
}

// Stop halts polling; a fetch still in flight is discarded. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) update(ctx context.Context) {
	v, err := p.src.FetchXRPPrice(ctx)

	p.mu.Lock()
	if !p.running || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = defaultErrorMessage
		}
		p.state.Error = msg
		log.Warn().Err(err).Msg("xrp price fetch failed")
	} else {
		price := v
		p.state.Price = &price
		p.state.Error = ""
		p.state.UpdatedAt = time.Now()
	}
	p.state.Loading = false
	st := p.state
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}
