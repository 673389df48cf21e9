package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"xrplboard/internal/application/port"
)

type Repo struct {
	rdb            *redis.Client
	prefix         string
	ttl            time.Duration
	snapshotStream string
	snapshotChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, snapshotStream, snapshotChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "xrplboard"
	}
	if strings.TrimSpace(snapshotStream) == "" {
		snapshotStream = prefix + ":snapshots"
	}
	if strings.TrimSpace(snapshotChan) == "" {
		snapshotChan = prefix + ":snapshots:pub"
	}
	return &Repo{
		rdb:            rdb,
		prefix:         prefix,
		ttl:            ttl,
		snapshotStream: snapshotStream,
		snapshotChan:   snapshotChan,
	}
}

func (r *Repo) key(k string) string { return r.prefix + ":kv:" + k }

func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set writes key with the configured TTL; zero TTL keeps it forever.
func (r *Repo) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	// 1) Stream: XADD <stream> * ts_ms payload
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.snapshotStream,
		Values: map[string]any{
			"ts_ms":   ts,
			"payload": payload,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	msg := fmt.Sprintf(`{"ts_ms":%d,"payload":%s}`, ts, payload)
	return r.rdb.Publish(ctx, r.snapshotChan, msg).Err()
}

// Close is a no-op: the client is owned and closed by the container.
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
