package svc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"xrplboard/internal/application/port"
	"xrplboard/internal/application/usecase/monitor"
	"xrplboard/internal/application/usecase/poller"
	"xrplboard/internal/application/usecase/price"
	"xrplboard/internal/application/usecase/tokenlist"
	"xrplboard/internal/infrastructure/config"
	"xrplboard/internal/infrastructure/container"
	"xrplboard/internal/infrastructure/xrplmeta"
	"xrplboard/internal/interfaces/console"
	"xrplboard/internal/interfaces/httpapi"
)

const shutdownTimeout = 5 * time.Second

// ServiceContext builds every component from configuration and runs them
// together until the context ends.
type ServiceContext struct {
	Config *config.Config

	container   *container.Container
	api         port.MarketAPI
	cache       *tokenlist.Cache
	favorites   *tokenlist.Favorites
	list        *tokenlist.List
	price       *price.Poller
	monitor     *monitor.Service
	broadcaster *httpapi.Broadcaster
	server      *httpapi.Server

	Sink port.Sink
}

type Option func(*ServiceContext)

// WithMarketAPI replaces the XRPL Meta client.
func WithMarketAPI(api port.MarketAPI) Option {
	return func(sc *ServiceContext) { sc.api = api }
}

// WithSink replaces the stdout console sink.
func WithSink(sink port.Sink) Option {
	return func(sc *ServiceContext) { sc.Sink = sink }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*ServiceContext, error) {
	sc := &ServiceContext{Config: cfg}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.api == nil {
		sc.api = xrplmeta.NewClient(xrplmeta.Options{
			BaseURL:   cfg.API.BaseURL,
			PriceURL:  cfg.API.PriceURL,
			Timeout:   cfg.APITimeout(),
			PageSize:  cfg.API.PageSize,
			TopLimit:  cfg.Tokens.Limit,
			MaxTokens: cfg.API.MaxTokens,
		})
	}
	if sc.Sink == nil {
		sc.Sink = console.NewSink()
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}
	sc.container = c

	if err := sc.initializeComponents(ctx); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents(ctx context.Context) error {
	repo := sc.container.Repository()

	favs, err := tokenlist.LoadFavorites(ctx, repo, sc.Config.Tokens.FavoritesKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFavoritesLoadFailed, err)
	}
	sc.favorites = favs
	sc.cache = tokenlist.NewCache(sc.Config.CacheDuration())
	sc.list = tokenlist.New(sc.api, sc.cache, favs, tokenlist.Options{})
	sc.price = price.NewPoller(sc.api, sc.Config.PriceInterval())

	rc := sc.Config.Retry
	sc.monitor = monitor.NewService(monitor.ServiceDeps{
		API: sc.api,
		PollerOptions: poller.Options{
			Throttle: sc.Config.Throttle(),
			Limit:    sc.Config.Tokens.Limit,
			Retry: poller.RetryPolicy{
				Delay:       time.Duration(rc.DelaySec) * time.Second,
				MaxDelay:    time.Duration(rc.MaxDelaySec) * time.Second,
				Multiplier:  rc.Multiplier,
				MaxAttempts: rc.MaxAttempts,
			},
		},
		Top:           sc.Config.App.Top,
		PrintEveryMin: sc.Config.App.PrintEveryMin,
		Sink:          sc.Sink,
		Repo:          repo,
	})

	sc.broadcaster = httpapi.NewBroadcaster(func() []httpapi.Message {
		return []httpapi.Message{
			{Type: "tokens", Data: sc.list.View()},
			{Type: "price", Data: sc.price.State()},
		}
	})
	// each websocket client searches on its own; the shared list keeps no term
	sc.broadcaster.OnSearch(func(term string) httpapi.Message {
		return httpapi.Message{Type: "tokens", Data: sc.list.Search(term)}
	})
	sc.list.Subscribe(func(v tokenlist.View) {
		sc.broadcaster.BroadcastEach(func(term string) httpapi.Message {
			if term == "" {
				return httpapi.Message{Type: "tokens", Data: v}
			}
			return httpapi.Message{Type: "tokens", Data: sc.list.Search(term)}
		})
	})
	sc.price.OnChange(func(st price.State) {
		sc.monitor.PriceChanged(st)
		sc.broadcaster.Broadcast(httpapi.Message{Type: "price", Data: st})
	})

	if sc.Config.HTTP.Enabled {
		sc.server = httpapi.NewServer(sc.Config.HTTP.Addr, sc.list, sc.price, sc.broadcaster)
	}

	log.Info().
		Int("favorites", len(favs.IDs())).
		Dur("cache_duration", sc.cache.TTL()).
		Bool("http", sc.server != nil).
		Msg("all components initialized")
	return nil
}

func (sc *ServiceContext) List() *tokenlist.List { return sc.list }

func (sc *ServiceContext) Price() *price.Poller { return sc.price }

func (sc *ServiceContext) Monitor() *monitor.Service { return sc.monitor }

// Run starts the pollers, the board and the HTTP API, and blocks until ctx
// is cancelled or one of them fails.
func (sc *ServiceContext) Run(ctx context.Context) error {
	sc.list.Start(ctx)
	defer sc.list.Stop()
	sc.price.Start(ctx)
	defer sc.price.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sc.monitor.Run(gctx)
	})
	if sc.server != nil {
		g.Go(sc.server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return sc.server.Shutdown(shutCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases storage. Run must have returned.
func (sc *ServiceContext) Close() error {
	if sc.container == nil {
		return nil
	}
	return sc.container.Close()
}
