package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/port"
	"xrplboard/internal/application/usecase/poller"
	"xrplboard/internal/application/usecase/price"
	"xrplboard/internal/domain"
)

type ServiceDeps struct {
	API           port.MarketAPI
	PollerOptions poller.Options
	Top           int
	PrintEveryMin int
	Sink          port.Sink
	Repo          port.SnapshotRepository
}

// Service drives the console board: it owns a TokenPoller, listens for XRP
// price changes and renders a live line plus periodic snapshots.
type Service struct {
	deps   ServiceDeps
	st     *State
	fmt    *Formatter
	poller *poller.TokenPoller

	tokens chan []domain.Token
	prices chan float64
}

func NewService(deps ServiceDeps) *Service {
	if deps.PrintEveryMin <= 0 {
		deps.PrintEveryMin = 5
	}
	s := &Service{
		deps:   deps,
		st:     NewState(),
		fmt:    NewFormatter(deps.Top),
		tokens: make(chan []domain.Token, 1),
		prices: make(chan float64, 1),
	}
	s.poller = poller.New(deps.API, s.pushTokens, deps.PollerOptions)
	return s
}

// Poller exposes the token poller, mainly for status reporting.
func (s *Service) Poller() *poller.TokenPoller { return s.poller }

// PriceChanged is meant to be registered as a price.Poller callback.
func (s *Service) PriceChanged(st price.State) {
	if st.Price == nil {
		return
	}
	replaceLatest(s.prices, *st.Price)
}

func (s *Service) pushTokens(tokens []domain.Token) {
	replaceLatest(s.tokens, tokens)
}

// replaceLatest keeps only the newest value in a 1-slot channel.
func replaceLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Service) Run(ctx context.Context) error {
	if s.deps.API == nil {
		return errors.New("no market api")
	}
	if s.deps.Sink == nil {
		return errors.New("no sink")
	}

	s.poller.Start(ctx)
	defer s.poller.Disconnect()
	log.Info().Int("top", s.fmt.Top).Msg("board monitor started")

	snapTicker := time.NewTicker(time.Duration(s.deps.PrintEveryMin) * time.Minute)
	defer snapTicker.Stop()

	// initial live line
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st.Snapshot(), RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			s.snapshot(ctx, now)

		case tokens := <-s.tokens:
			if s.st.ApplyTokens(tokens) {
				_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st.Snapshot(), RenderLive))
			}

		case p := <-s.prices:
			if s.st.ApplyPrice(p) {
				_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st.Snapshot(), RenderLive))
			}
		}
	}
}

func (s *Service) snapshot(ctx context.Context, now time.Time) {
	snap := s.st.Snapshot()
	_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(snap, RenderSnapshot))

	if s.deps.Repo == nil || len(snap.Tokens) == 0 {
		return
	}
	payload, err := s.fmt.Payload(snap)
	if err != nil {
		log.Error().Err(err).Msg("encode snapshot failed")
		return
	}
	if err := s.deps.Repo.InsertSnapshot(ctx, now.UnixMilli(), payload); err != nil {
		log.Warn().Err(err).Msg("persist snapshot failed")
	}
}
