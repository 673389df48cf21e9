package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"xrplboard/internal/application/port"
	"xrplboard/internal/domain"
)

type mockAPI struct {
	mu        sync.Mutex
	tokens    []domain.Token
	price     float64
	failFirst int32
	nilTokens bool
	calls     atomic.Int32
}

func (m *mockAPI) FetchAllTokens(ctx context.Context) ([]domain.Token, error) {
	return m.FetchTokens(ctx)
}

func (m *mockAPI) FetchTokens(ctx context.Context) ([]domain.Token, error) {
	n := m.calls.Add(1)
	if n <= atomic.LoadInt32(&m.failFirst) {
		return nil, fmt.Errorf("dial: %w", port.ErrTransport)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nilTokens {
		return nil, nil
	}
	out := make([]domain.Token, len(m.tokens))
	copy(out, m.tokens)
	return out, nil
}

func (m *mockAPI) FetchXRPPrice(ctx context.Context) (float64, error) {
	return m.price, nil
}

func (m *mockAPI) setPrice(id int, priceXRP float64) {
	m.mu.Lock()
	m.tokens[id].PriceXRP = priceXRP
	m.mu.Unlock()
}

type updates struct {
	mu   sync.Mutex
	seen [][]domain.Token
	ch   chan struct{}
}

func newUpdates() *updates { return &updates{ch: make(chan struct{}, 64)} }

func (u *updates) record(tokens []domain.Token) {
	u.mu.Lock()
	u.seen = append(u.seen, tokens)
	u.mu.Unlock()
	select {
	case u.ch <- struct{}{}:
	default:
	}
}

func (u *updates) wait(t *testing.T, n int) [][]domain.Token {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		u.mu.Lock()
		got := len(u.seen)
		u.mu.Unlock()
		if got >= n {
			u.mu.Lock()
			defer u.mu.Unlock()
			return append([][]domain.Token(nil), u.seen...)
		}
		select {
		case <-u.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %d updates, got %d", n, got)
		}
	}
}

func manyTokens(n int) []domain.Token {
	out := make([]domain.Token, n)
	for i := range out {
		out[i] = domain.Token{
			Currency:  fmt.Sprintf("T%03d", i),
			Issuer:    "rIssuer",
			PriceXRP:  1,
			Volume24h: float64(i % 37),
		}
	}
	// one token without volume
	out[0].Volume24h = 0
	return out
}

func TestTokenPollerTruncatesAndSorts(t *testing.T) {
	api := &mockAPI{tokens: manyTokens(250), price: 0.5}
	u := newUpdates()
	p := New(api, u.record, Options{Throttle: time.Hour})
	p.Start(context.Background())
	defer p.Disconnect()

	got := u.wait(t, 1)[0]
	if len(got) != DefaultLimit {
		t.Fatalf("expected %d tokens, got %d", DefaultLimit, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Volume24h < got[i].Volume24h {
			t.Fatalf("not sorted by volume at %d: %v < %v", i, got[i-1].Volume24h, got[i].Volume24h)
		}
	}
	if got[0].PriceUSD != 0.5 {
		t.Errorf("expected usd price derived from xrp price, got %v", got[0].PriceUSD)
	}
	if got[0].PriceIncreased || got[0].PriceDecreased {
		t.Error("first observation must not be flagged")
	}
}

func TestTokenPollerFlagsPriceMoves(t *testing.T) {
	api := &mockAPI{
		tokens: []domain.Token{
			{Currency: "UP", Issuer: "r1", PriceXRP: 1, Volume24h: 2},
			{Currency: "DOWN", Issuer: "r2", PriceXRP: 1, Volume24h: 1},
		},
		price: 1,
	}
	u := newUpdates()
	p := New(api, u.record, Options{Throttle: 30 * time.Millisecond})
	p.Start(context.Background())
	defer p.Disconnect()

	u.wait(t, 1)
	api.setPrice(0, 2)
	api.setPrice(1, 0.5)

	second := u.wait(t, 2)[1]
	if !second[0].PriceIncreased || second[0].PriceDecreased {
		t.Errorf("UP: expected increase, got %+v", second[0])
	}
	if second[1].PriceIncreased || !second[1].PriceDecreased {
		t.Errorf("DOWN: expected decrease, got %+v", second[1])
	}
}

func TestTokenPollerRetriesInitialization(t *testing.T) {
	api := &mockAPI{tokens: manyTokens(3), price: 1, failFirst: 2}
	u := newUpdates()
	p := New(api, u.record, Options{
		Throttle: time.Hour,
		Retry:    RetryPolicy{Delay: 5 * time.Millisecond, Multiplier: 1, MaxAttempts: 5},
	})
	p.Start(context.Background())
	defer p.Disconnect()

	u.wait(t, 1)
	if c := api.calls.Load(); c != 3 {
		t.Errorf("expected 3 fetch attempts, got %d", c)
	}
	if err := p.Err(); err != nil {
		t.Errorf("expected no error after success, got %v", err)
	}
}

func TestTokenPollerRetriesExhausted(t *testing.T) {
	api := &mockAPI{failFirst: 1000}
	p := New(api, nil, Options{
		Throttle: time.Hour,
		Retry:    RetryPolicy{Delay: time.Millisecond, Multiplier: 1, MaxAttempts: 2},
	})
	p.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !errors.Is(p.Err(), ErrRetriesExhausted) {
		if time.Now().After(deadline) {
			t.Fatalf("expected ErrRetriesExhausted, got %v", p.Err())
		}
		time.Sleep(time.Millisecond)
	}
	if !errors.Is(p.Err(), port.ErrTransport) {
		t.Errorf("expected wrapped transport error, got %v", p.Err())
	}
	if c := api.calls.Load(); c != 3 {
		t.Errorf("expected 1 try + 2 retries, got %d calls", c)
	}
	p.Disconnect()
}

func TestTokenPollerMalformedPayload(t *testing.T) {
	api := &mockAPI{nilTokens: true}
	p := New(api, nil, Options{
		Throttle: time.Hour,
		Retry:    RetryPolicy{Delay: time.Millisecond, MaxAttempts: 1},
	})
	p.Start(context.Background())
	defer p.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for !errors.Is(p.Err(), port.ErrMalformedPayload) {
		if time.Now().After(deadline) {
			t.Fatalf("expected ErrMalformedPayload, got %v", p.Err())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTokenPollerDisconnectIdempotent(t *testing.T) {
	api := &mockAPI{tokens: manyTokens(3), price: 1}
	u := newUpdates()
	p := New(api, u.record, Options{Throttle: 10 * time.Millisecond})

	p.Disconnect() // before Start
	p.Start(context.Background())
	u.wait(t, 1)

	p.Disconnect()
	p.Disconnect()
	if p.Running() {
		t.Fatal("poller still running after Disconnect")
	}

	calls := api.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if c := api.calls.Load(); c != calls {
		t.Errorf("fetches continued after Disconnect: %d -> %d", calls, c)
	}

	// restart after teardown
	p.Start(context.Background())
	defer p.Disconnect()
	if !p.Running() {
		t.Error("expected poller to restart")
	}
}
