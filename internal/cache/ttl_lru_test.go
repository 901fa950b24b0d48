package cache

import (
	"sync"
	"testing"
	"time"
)

func TestGetReturnsFreshValue(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("get after set: want=(v,true) got=(%q,%v)", got, ok)
	}
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", "v")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned as hit")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted; len=%d", c.Len())
	}
}

func TestLRUEvictionOrder(t *testing.T) {
	c := New[string](time.Minute, 2, nil)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	if _, ok := c.Get("a"); ok {
		t.Fatal("least recently used entry survived eviction")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("entry %q evicted unexpectedly", k)
		}
	}
}

func TestGetRefreshesLRUPosition(t *testing.T) {
	c := New[string](time.Minute, 2, nil)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("warm-up get missed")
	}
	c.Set("c", "3")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("stale entry survived eviction")
	}
}

func TestSetRefreshesTTL(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", "v1")

	c.now = func() time.Time { return base.Add(50 * time.Second) }
	c.Set("k", "v2")

	c.now = func() time.Time { return base.Add(90 * time.Second) }
	got, ok := c.Get("k")
	if !ok || got != "v2" {
		t.Fatalf("refreshed entry: want=(v2,true) got=(%q,%v)", got, ok)
	}
}

func TestCloneIsolatesCallers(t *testing.T) {
	c := New(time.Minute, 10, func(v []string) []string {
		return append([]string(nil), v...)
	})
	c.Set("k", []string{"original"})
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("get missed")
	}
	got[0] = "mutated"
	again, _ := c.Get("k")
	if again[0] != "original" {
		t.Fatalf("cached value mutated through returned copy: %v", again)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, 64, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			keys := []string{"a", "b", "c", "d"}
			for j := 0; j < 200; j++ {
				k := keys[(n+j)%len(keys)]
				c.Set(k, j)
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
}
