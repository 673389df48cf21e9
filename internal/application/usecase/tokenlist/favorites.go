package tokenlist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/port"
)

const DefaultFavoritesKey = "tokenFavorites"

// Favorites is the set of favorite token IDs, persisted as a JSON array
// under a single key.
type Favorites struct {
	store port.KeyValueStore
	key   string

	mu  sync.RWMutex
	set map[string]struct{}
}

// LoadFavorites reads the persisted set once. A missing key yields an empty set.
func LoadFavorites(ctx context.Context, store port.KeyValueStore, key string) (*Favorites, error) {
	if key == "" {
		key = DefaultFavoritesKey
	}
	f := &Favorites{store: store, key: key, set: make(map[string]struct{})}

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	if !ok || raw == "" {
		return f, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode favorites %q: %w", key, err)
	}
	for _, id := range ids {
		f.set[id] = struct{}{}
	}
	return f, nil
}

// Toggle flips membership of id and writes the whole set back before
// returning. It reports whether id is a favorite afterwards. On a storage
// error the in-memory set is left unchanged and the previous set is written
// back, so stores that accepted the new value are rolled back.
func (f *Favorites) Toggle(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]struct{}, len(f.set)+1)
	for k := range f.set {
		next[k] = struct{}{}
	}
	_, had := next[id]
	if had {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}

	payload, err := json.Marshal(sortedIDs(next))
	if err != nil {
		return had, err
	}
	if err := f.store.Set(ctx, f.key, string(payload)); err != nil {
		// backends that took the write are put back to the current set
		if prev, perr := json.Marshal(sortedIDs(f.set)); perr == nil {
			if rerr := f.store.Set(ctx, f.key, string(prev)); rerr != nil {
				log.Warn().Err(rerr).Str("key", f.key).Msg("favorites rollback failed")
			}
		}
		return had, fmt.Errorf("persist favorites: %w", err)
	}
	f.set = next
	return !had, nil
}

func (f *Favorites) Has(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.set[id]
	return ok
}

// IDs returns the favorites in sorted order.
func (f *Favorites) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedIDs(f.set)
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
