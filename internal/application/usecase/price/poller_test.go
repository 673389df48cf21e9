package price

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockPrice struct {
	mu    sync.Mutex
	price float64
	err   error
	calls atomic.Int32
}

func (m *mockPrice) FetchXRPPrice(ctx context.Context) (float64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price, m.err
}

func (m *mockPrice) set(price float64, err error) {
	m.mu.Lock()
	m.price, m.err = price, err
	m.mu.Unlock()
}

func waitState(t *testing.T, p *Poller, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := p.State()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out, last state %+v", st)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPollerFetchesOnStartAndOnInterval(t *testing.T) {
	src := &mockPrice{price: 0.52}
	p := NewPoller(src, 10*time.Millisecond)

	if st := p.State(); !st.Loading || st.Price != nil {
		t.Fatalf("unexpected initial state %+v", st)
	}

	p.Start(context.Background())
	defer p.Stop()

	st := waitState(t, p, func(s State) bool { return s.Price != nil })
	if *st.Price != 0.52 || st.Loading {
		t.Errorf("unexpected state %+v", st)
	}

	src.set(0.61, nil)
	waitState(t, p, func(s State) bool { return s.Price != nil && *s.Price == 0.61 })
	if src.calls.Load() < 2 {
		t.Error("expected periodic fetches")
	}
}

func TestPollerKeepsLastPriceOnError(t *testing.T) {
	src := &mockPrice{price: 0.5}
	p := NewPoller(src, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()
	waitState(t, p, func(s State) bool { return s.Price != nil })

	src.set(0, errors.New("price api down"))
	st := waitState(t, p, func(s State) bool { return s.Error != "" })
	if st.Error != "price api down" || st.Price == nil || *st.Price != 0.5 {
		t.Errorf("unexpected state %+v", st)
	}

	src.set(0.7, nil)
	waitState(t, p, func(s State) bool { return s.Error == "" && *s.Price == 0.7 })
}

func TestPollerStop(t *testing.T) {
	src := &mockPrice{price: 1}
	p := NewPoller(src, 5*time.Millisecond)
	p.Start(context.Background())
	waitState(t, p, func(s State) bool { return s.Price != nil })

	p.Stop()
	p.Stop()

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if c := src.calls.Load(); c != calls {
		t.Errorf("fetches continued after Stop: %d -> %d", calls, c)
	}
}
