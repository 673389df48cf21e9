package tokenlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/port"
	"xrplboard/internal/domain"
)

var ErrStopped = errors.New("token list is not running")

const defaultErrorMessage = "An error occurred while fetching tokens"

// View is what a consumer renders.
type View struct {
	Tokens           []domain.Token `json:"tokens"`
	Loading          bool           `json:"loading"`
	Refreshing       bool           `json:"refreshing"`
	Searching        bool           `json:"searching"`
	Error            string         `json:"error,omitempty"`
	SearchTerm       string         `json:"searchTerm"`
	TotalTokens      int            `json:"totalTokens"`
	SearchableTokens int            `json:"searchableTokens"`
}

type Options struct {
	// PollInterval defaults to the cache TTL.
	PollInterval time.Duration
}

// List owns the token state of one consumer: the full cached list, the
// page or search result on display, status flags and favorites.
type List struct {
	api       port.TokenSource
	cache     *Cache
	favorites *Favorites
	searcher  *Searcher
	pollEvery time.Duration

	mu         sync.Mutex
	all        []domain.Token
	allGen     uint64
	displayed  []domain.Token
	loading    bool
	refreshing bool
	searching  bool
	errMsg     string
	term       string
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	unwatch    func()
	subs       map[string]func(View)
}

func New(api port.TokenSource, cache *Cache, favorites *Favorites, opts Options) *List {
	if opts.PollInterval <= 0 {
		opts.PollInterval = cache.TTL()
	}
	l := &List{
		api:       api,
		cache:     cache,
		favorites: favorites,
		pollEvery: opts.PollInterval,
		loading:   true,
		subs:      make(map[string]func(View)),
	}
	l.searcher = NewSearcher(l.onSearchResult)
	return l
}

// Start loads the list (from the cache when fresh) and keeps polling every
// PollInterval until Stop.
func (l *List) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.unwatch = l.cache.Watch(l.accept)
	l.mu.Unlock()

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		l.searcher.Run(runCtx)
	}()
	go func() {
		defer l.wg.Done()
		l.pollLoop(runCtx)
	}()
}

// Stop cancels polling and searching. Results of fetches still in flight
// are discarded. Safe to call more than once.
func (l *List) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, unwatch := l.cancel, l.unwatch
	l.cancel, l.unwatch = nil, nil
	l.searcher.Cancel()
	l.searching = false
	l.mu.Unlock()

	unwatch()
	cancel()
	l.wg.Wait()
}

func (l *List) pollLoop(ctx context.Context) {
	if err := l.fetch(ctx, false); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("initial token list fetch failed")
	}

	ticker := time.NewTicker(l.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.fetch(ctx, true); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("token list poll failed")
			}
		}
	}
}

// Refresh forces a network fetch regardless of cache age and raises the
// Refreshing flag while it runs.
func (l *List) Refresh(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrStopped
	}
	l.refreshing = true
	l.mu.Unlock()
	l.notify()

	l.cache.Invalidate()
	return l.fetch(ctx, true)
}

func (l *List) fetch(ctx context.Context, force bool) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrStopped
	}
	if !force {
		l.loading = true
	}
	l.errMsg = ""
	l.mu.Unlock()
	l.notify()

	if !force {
		if cached, gen, ok := l.cache.Fresh(); ok {
			l.accept(gen, cached)
			return nil
		}
	}

	gen := l.cache.Begin()
	tokens, err := l.api.FetchAllTokens(ctx)
	if err != nil {
		l.fail(err)
		return err
	}

	sorted := make([]domain.Token, len(tokens))
	copy(sorted, tokens)
	domain.SortByVolume(sorted)

	// a successful commit reaches this list through the cache watcher
	if !l.cache.Commit(gen, sorted) {
		log.Debug().Uint64("generation", gen).Msg("token fetch superseded by a newer one")
		// take whatever newer list the cache holds
		if current, cgen := l.cache.Latest(); current != nil {
			l.accept(cgen, current)
		} else {
			l.clearFlags()
		}
	}
	return nil
}

func (l *List) accept(gen uint64, tokens []domain.Token) {
	l.mu.Lock()
	if !l.running || gen < l.allGen {
		l.mu.Unlock()
		return
	}
	l.all = tokens
	l.allGen = gen
	if l.term == "" {
		l.displayed = domain.Head(tokens, ItemsPerPage)
	}
	l.loading = false
	l.refreshing = false
	if len(tokens) > 0 {
		l.searcher.Submit(tokens, l.term)
		l.searching = true
	}
	l.mu.Unlock()
	l.notify()
}

func (l *List) fail(err error) {
	msg := err.Error()
	if msg == "" {
		msg = defaultErrorMessage
	}
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.errMsg = msg
	l.loading = false
	l.refreshing = false
	l.mu.Unlock()
	l.notify()
}

func (l *List) clearFlags() {
	l.mu.Lock()
	l.loading = false
	l.refreshing = false
	l.mu.Unlock()
	l.notify()
}

func (l *List) onSearchResult(res SearchResult) {
	l.mu.Lock()
	// Submit only happens under l.mu, so this check cannot race a newer request.
	if !l.running || res.Seq != l.searcher.Latest() {
		l.mu.Unlock()
		return
	}
	l.displayed = res.Tokens
	l.searching = false
	l.mu.Unlock()
	l.notify()
}

// SetSearchTerm changes the filter. The displayed tokens follow once the
// searcher has produced the result for this term.
func (l *List) SetSearchTerm(term string) {
	l.mu.Lock()
	if term == l.term {
		l.mu.Unlock()
		return
	}
	l.term = term
	if l.running && len(l.all) > 0 {
		l.searcher.Submit(l.all, term)
		l.searching = true
	}
	l.mu.Unlock()
	l.notify()
}

// Search returns the view filtered by term without touching the list's own
// search term, for callers that keep their search state elsewhere.
func (l *List) Search(term string) View {
	l.mu.Lock()
	v := l.viewLocked()
	all := l.all
	l.mu.Unlock()

	v.Tokens = Filter(all, term)
	v.SearchTerm = term
	v.Searching = false
	return v
}

func (l *List) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

func (l *List) viewLocked() View {
	tokens := make([]domain.Token, len(l.displayed))
	copy(tokens, l.displayed)
	return View{
		Tokens:           tokens,
		Loading:          l.loading,
		Refreshing:       l.refreshing,
		Searching:        l.searching,
		Error:            l.errMsg,
		SearchTerm:       l.term,
		TotalTokens:      len(l.all),
		SearchableTokens: MaxSearchableTokens,
	}
}

// ToggleFavorite flips id in the favorites set and persists it.
func (l *List) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	on, err := l.favorites.Toggle(ctx, id)
	if err != nil {
		return on, err
	}
	l.notify()
	return on, nil
}

func (l *List) IsFavorite(id string) bool { return l.favorites.Has(id) }

func (l *List) Favorites() []string { return l.favorites.IDs() }

// Subscribe calls fn with the current view after every state change until
// the returned cancel func is called.
func (l *List) Subscribe(fn func(View)) (id string, cancel func()) {
	id = uuid.NewString()
	l.mu.Lock()
	l.subs[id] = fn
	l.mu.Unlock()
	return id, func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *List) notify() {
	l.mu.Lock()
	if len(l.subs) == 0 {
		l.mu.Unlock()
		return
	}
	v := l.viewLocked()
	subs := make([]func(View), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
