package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"xrplboard/internal/application/port"
	"xrplboard/internal/domain"
)

const (
	DefaultThrottle = 10 * time.Second
	DefaultLimit    = 100
)

type Options struct {
	Throttle time.Duration
	Limit    int
	Retry    RetryPolicy
}

// TokenPoller periodically fetches the top tokens together with the XRP
// price, flags price moves and hands the volume-ranked list to OnUpdate.
type TokenPoller struct {
	api      port.MarketAPI
	onUpdate func([]domain.Token)
	opts     Options
	tracker  *domain.PriceTracker

	mu          sync.Mutex
	initialized bool
	lastUpdate  time.Time
	lastErr     error
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(api port.MarketAPI, onUpdate func([]domain.Token), opts Options) *TokenPoller {
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy
	}
	if onUpdate == nil {
		onUpdate = func([]domain.Token) {}
	}
	return &TokenPoller{
		api:      api,
		onUpdate: onUpdate,
		opts:     opts,
		tracker:  domain.NewPriceTracker(),
	}
}

// Start runs the initial fetch right away and then polls every throttle
// interval. A failed initialization is retried as a whole according to the
// retry policy. Calling Start on a running poller is a no-op.
func (p *TokenPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.initialized {
		p.mu.Unlock()
		return
	}
	p.initialized = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(runCtx, done)
}

// Disconnect stops polling and resets the initialization state. It is safe
// to call more than once.
func (p *TokenPoller) Disconnect() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.initialized = false
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a poll loop is active.
func (p *TokenPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Err returns the error of the most recent cycle, nil after a success.
func (p *TokenPoller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *TokenPoller) LastUpdate() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUpdate
}

func (p *TokenPoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if !p.initialize(ctx) {
		return
	}
	p.poll(ctx)
}

func (p *TokenPoller) initialize(ctx context.Context) bool {
	for attempt := 0; ; attempt++ {
		err := p.fetchLatest(ctx)
		if err == nil {
			log.Info().Int("limit", p.opts.Limit).Dur("throttle", p.opts.Throttle).Msg("token poller initialized")
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		delay, ok := p.opts.Retry.Next(attempt)
		if !ok {
			p.setErr(fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err))
			log.Error().Err(err).Int("attempts", attempt+1).Msg("token poller gave up initializing")
			return false
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("token poller init failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (p *TokenPoller) poll(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Throttle)
	defer ticker.Stop()

	// ticker jitter may deliver a tick marginally before a full throttle has passed
	slack := p.opts.Throttle / 20

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(p.LastUpdate()) < p.opts.Throttle-slack {
				continue
			}
			if err := p.fetchLatest(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("token poll failed")
			}
		}
	}
}

func (p *TokenPoller) fetchLatest(ctx context.Context) error {
	started := time.Now()

	var (
		tokens   []domain.Token
		xrpPrice float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tokens, err = p.api.FetchTokens(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		xrpPrice, err = p.api.FetchXRPPrice(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		p.setErr(err)
		return err
	}
	if tokens == nil {
		err := fmt.Errorf("invalid tokens data received: %w", port.ErrMalformedPayload)
		p.setErr(err)
		return err
	}

	updated := make([]domain.Token, len(tokens))
	copy(updated, tokens)
	for i := range updated {
		if updated[i].PriceUSD == 0 && updated[i].PriceXRP > 0 {
			updated[i].PriceUSD = updated[i].PriceXRP * xrpPrice
		}
	}
	p.tracker.Annotate(updated)
	domain.SortByVolume(updated)
	if len(updated) > p.opts.Limit {
		updated = updated[:p.opts.Limit]
	}

	p.onUpdate(updated)

	p.mu.Lock()
	p.lastUpdate = started
	p.lastErr = nil
	p.mu.Unlock()
	return nil
}

func (p *TokenPoller) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}
