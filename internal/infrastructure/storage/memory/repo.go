package memory

import (
	"context"
	"sync"

	"xrplboard/internal/application/port"
)

type Snapshot struct {
	Ts      int64
	Payload string
}

// Repo keeps everything in process memory. Used when durable storage is
// disabled and in tests.
type Repo struct {
	mu        sync.RWMutex
	kv        map[string]string
	snapshots []Snapshot
}

func New() *Repo {
	return &Repo{kv: make(map[string]string)}
}

func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.kv[key]
	return v, ok, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.kv[key] = value
	r.mu.Unlock()
	return nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, Snapshot{Ts: ts, Payload: payload})
	r.mu.Unlock()
	return nil
}

// Snapshots returns a copy of every stored snapshot, oldest first.
func (r *Repo) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
