package port

import "context"

// KeyValueStore is durable string storage keyed by name.
type KeyValueStore interface {
	// Get returns ok=false when key was never written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type SnapshotRepository interface {
	InsertSnapshot(ctx context.Context, ts int64, payload string) error
}

type Repository interface {
	KeyValueStore
	SnapshotRepository

	// Connection management
	Close() error
}
