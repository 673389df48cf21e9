package tokenlist

import (
	"testing"
	"time"

	"xrplboard/internal/domain"
)

func TestCacheFreshness(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	if _, _, ok := c.Fresh(); ok {
		t.Fatal("empty cache must not be fresh")
	}

	gen := c.Begin()
	if !c.Commit(gen, []domain.Token{{Currency: "A"}}) {
		t.Fatal("commit of latest generation must succeed")
	}
	if _, g, ok := c.Fresh(); !ok || g != gen {
		t.Fatalf("expected fresh cache at gen %d, got %d,%v", gen, g, ok)
	}

	now = now.Add(5 * time.Minute)
	if _, _, ok := c.Fresh(); ok {
		t.Error("cache must expire after its duration")
	}
	if tokens, g := c.Latest(); len(tokens) != 1 || g != gen {
		t.Error("expired data stays available through Latest")
	}
}

func TestCacheDropsSupersededGeneration(t *testing.T) {
	c := NewCache(time.Minute)

	var seen []uint64
	cancel := c.Watch(func(gen uint64, _ []domain.Token) { seen = append(seen, gen) })
	defer cancel()

	slow := c.Begin()
	fast := c.Begin()

	if !c.Commit(fast, []domain.Token{{Currency: "NEW"}}) {
		t.Fatal("newest generation must commit")
	}
	if c.Commit(slow, []domain.Token{{Currency: "OLD"}}) {
		t.Fatal("older generation must be rejected once a newer one committed")
	}

	tokens, _ := c.Latest()
	if tokens[0].Currency != "NEW" {
		t.Errorf("stale response overwrote newer data: %s", tokens[0].Currency)
	}
	if len(seen) != 1 || seen[0] != fast {
		t.Errorf("watchers should only see the accepted commit, saw %v", seen)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Hour)
	c.Commit(c.Begin(), []domain.Token{{Currency: "A"}})
	c.Invalidate()
	if _, _, ok := c.Fresh(); ok {
		t.Error("invalidated cache must not be fresh")
	}
}

func TestCacheAcceptsOlderSuccessWhenNewerFailed(t *testing.T) {
	c := NewCache(time.Minute)

	slow := c.Begin()
	_ = c.Begin() // this fetch fails and never commits

	if !c.Commit(slow, []domain.Token{{Currency: "OLD"}}) {
		t.Fatal("older success must land when no newer generation committed")
	}
	tokens, gen := c.Latest()
	if gen != slow || len(tokens) != 1 || tokens[0].Currency != "OLD" {
		t.Errorf("unexpected cache content %v at gen %d", tokens, gen)
	}
	if _, _, ok := c.Fresh(); !ok {
		t.Error("committed data must be fresh")
	}
}
