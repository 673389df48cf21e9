package svc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"xrplboard/internal/domain"
	"xrplboard/internal/infrastructure/config"
)

type fakeAPI struct{}

func (fakeAPI) FetchAllTokens(ctx context.Context) ([]domain.Token, error) {
	out := make([]domain.Token, 80)
	for i := range out {
		out[i] = domain.Token{Currency: fmt.Sprintf("T%02d", i), Issuer: "r", PriceXRP: 1, Volume24h: float64(100 - i)}
	}
	return out, nil
}

func (f fakeAPI) FetchTokens(ctx context.Context) ([]domain.Token, error) {
	return f.FetchAllTokens(ctx)
}

func (fakeAPI) FetchXRPPrice(ctx context.Context) (float64, error) { return 0.5, nil }

type nopSink struct {
	mu    sync.Mutex
	lines int
}

func (s *nopSink) WriteLive(string) error {
	s.mu.Lock()
	s.lines++
	s.mu.Unlock()
	return nil
}
func (s *nopSink) WriteSnapshot(time.Time, string) error { return nil }
func (s *nopSink) NewLine() error                        { return nil }

func TestServiceContextRunsUntilCancelled(t *testing.T) {
	sc, err := New(context.Background(), config.Default(), WithMarketAPI(fakeAPI{}), WithSink(&nopSink{}))
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		v := sc.List().View()
		st := sc.Price().State()
		if !v.Loading && len(v.Tokens) == 50 && st.Price != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("components never loaded: tokens=%d loading=%v price=%v", len(v.Tokens), v.Loading, st.Price)
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if sc.Monitor().Poller().Running() {
		t.Error("token poller still running")
	}
}
