package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"xrplboard/internal/application/usecase/poller"
	"xrplboard/internal/application/usecase/price"
	"xrplboard/internal/domain"
)

type mockAPI struct {
	tokens []domain.Token
}

func (m *mockAPI) FetchAllTokens(ctx context.Context) ([]domain.Token, error) { return m.tokens, nil }
func (m *mockAPI) FetchTokens(ctx context.Context) ([]domain.Token, error)    { return m.tokens, nil }
func (m *mockAPI) FetchXRPPrice(ctx context.Context) (float64, error)         { return 2, nil }

type recordingSink struct {
	mu    sync.Mutex
	live  []string
	snaps []string
}

func (r *recordingSink) WriteLive(line string) error {
	r.mu.Lock()
	r.live = append(r.live, line)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) WriteSnapshot(ts time.Time, line string) error {
	r.mu.Lock()
	r.snaps = append(r.snaps, line)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) NewLine() error { return nil }

func (r *recordingSink) lastLive() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.live) == 0 {
		return ""
	}
	return r.live[len(r.live)-1]
}

func TestServiceRendersTokensAndPrice(t *testing.T) {
	api := &mockAPI{tokens: []domain.Token{
		{Currency: "534F4C4F00000000000000000000000000000000", Issuer: "r1", PriceXRP: 0.25, Volume24h: 100},
		{Currency: "CSC", Issuer: "r2", PriceXRP: 0.001, Volume24h: 50},
	}}
	sink := &recordingSink{}
	svc := NewService(ServiceDeps{
		API:           api,
		PollerOptions: poller.Options{Throttle: time.Hour},
		Top:           5,
		Sink:          sink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	p := 0.75
	svc.PriceChanged(price.State{Price: &p})

	deadline := time.Now().Add(2 * time.Second)
	for {
		line := sink.lastLive()
		if strings.Contains(line, "SOLO") && strings.Contains(line, "XRP "+ansiYellow+"$0.7500") {
			if !strings.Contains(line, "CSC") {
				t.Errorf("expected CSC in line %q", line)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("board never rendered tokens and price, last line %q", line)
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	<-done
	if svc.Poller().Running() {
		t.Error("poller must be disconnected when Run returns")
	}
}

func TestStateApplyTokens(t *testing.T) {
	st := NewState()
	tokens := []domain.Token{{Currency: "A", Issuer: "r", PriceUSD: 1}}
	if !st.ApplyTokens(tokens) {
		t.Error("first apply must report a change")
	}
	if st.ApplyTokens([]domain.Token{{Currency: "A", Issuer: "r", PriceUSD: 1}}) {
		t.Error("identical set must not report a change")
	}
	if !st.ApplyTokens([]domain.Token{{Currency: "A", Issuer: "r", PriceUSD: 2, PriceIncreased: true}}) {
		t.Error("price move must report a change")
	}
}

func TestFormatterPayload(t *testing.T) {
	f := NewFormatter(3)
	payload, err := f.Payload(Snapshot{
		XRPPrice: 0.5,
		Tokens:   []domain.Token{{Currency: "SOLO", Issuer: "r1", PriceUSD: 0.1, Volume24h: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"xrp_price":0.5,"tokens":[{"id":"SOLO-r1","price_usd":0.1,"volume_24h":10}]}`
	if payload != want {
		t.Errorf("payload = %s, want %s", payload, want)
	}
}

func TestFormatterColors(t *testing.T) {
	f := NewFormatter(2)
	line := f.Render(Snapshot{Tokens: []domain.Token{
		{Currency: "UP", PriceUSD: 1.5, PriceIncreased: true},
		{Currency: "DN", PriceUSD: 0.5, PriceDecreased: true},
		{Currency: "HIDDEN", PriceUSD: 1},
	}}, RenderSnapshot)

	if !strings.Contains(line, ansiGreen+"$1.50▲") {
		t.Errorf("rising token should be green: %q", line)
	}
	if !strings.Contains(line, ansiRed+"$0.5000▼") {
		t.Errorf("falling token should be red: %q", line)
	}
	if strings.Contains(line, "HIDDEN") {
		t.Errorf("only the top tokens should render: %q", line)
	}
	if strings.HasPrefix(line, "\r") {
		t.Error("snapshot lines must not start with a carriage return")
	}
}
