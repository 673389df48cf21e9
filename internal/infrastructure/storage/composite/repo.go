package composite

import (
	"context"

	"xrplboard/internal/application/port"
)

// Repo fans writes out to every backend and reads from the first one.
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are skipped
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	if len(r.repos) == 0 {
		return "", false, nil
	}
	return r.repos[0].Get(ctx, key)
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Set(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSnapshot(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every backend and returns the first error.
func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
