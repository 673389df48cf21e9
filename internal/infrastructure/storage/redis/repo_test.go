package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisRepoKeys(t *testing.T) {
	r := New(nil, "", 0, "", "")
	if got := r.key("tokenFavorites"); got != "xrplboard:kv:tokenFavorites" {
		t.Errorf("unexpected key %q", got)
	}
	if r.snapshotStream != "xrplboard:snapshots" || r.snapshotChan != "xrplboard:snapshots:pub" {
		t.Errorf("unexpected defaults %q %q", r.snapshotStream, r.snapshotChan)
	}
}

func TestRedisRepoRoundTrip(t *testing.T) {
	addr := os.Getenv("XRPLBOARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("XRPLBOARD_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	r := New(rdb, "xrplboard-test", 0, "", "")
	defer rdb.Del(ctx, r.key("fav"), r.snapshotStream)

	if _, ok, err := r.Get(ctx, "fav"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := r.Set(ctx, "fav", `["A-r1"]`); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := r.Get(ctx, "fav"); err != nil || !ok || v != `["A-r1"]` {
		t.Fatalf("Get = %q,%v,%v", v, ok, err)
	}
	if err := r.InsertSnapshot(ctx, 1, `{"xrp_price":1}`); err != nil {
		t.Fatal(err)
	}
}
