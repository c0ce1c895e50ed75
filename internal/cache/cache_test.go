package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	tu "github.com/desertthunder/setlistx/internal/testing"
)

func TestCache(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		t.Run("returns value set for key", func(t *testing.T) {
			c := New[string](10)
			c.Set("a", "alpha", time.Minute)

			got, ok := c.Get("a")
			if !ok {
				t.Fatal("expected hit")
			}
			if got != "alpha" {
				t.Errorf("expected alpha, got %s", got)
			}
		})

		t.Run("missing key", func(t *testing.T) {
			c := New[int](10)
			if _, ok := c.Get("nope"); ok {
				t.Error("expected miss")
			}
		})

		t.Run("expired entry is absent and removed", func(t *testing.T) {
			clock := tu.NewFakeClock()
			c := New[string](10, WithClock(clock.Now))
			c.Set("a", "alpha", time.Hour)

			clock.Advance(time.Hour)
			if _, ok := c.Get("a"); !ok {
				t.Error("expected entry to survive until its expiry instant")
			}

			clock.Advance(time.Millisecond)
			if _, ok := c.Get("a"); ok {
				t.Error("expected entry to be absent after ttl")
			}
			if c.Len() != 0 {
				t.Errorf("expected lazy removal, got len %d", c.Len())
			}

			if _, ok := c.Get("a"); ok {
				t.Error("expected entry not to reappear")
			}
		})
	})

	t.Run("Set", func(t *testing.T) {
		t.Run("overwrites and refreshes ttl", func(t *testing.T) {
			clock := tu.NewFakeClock()
			c := New[string](10, WithClock(clock.Now))
			c.Set("a", "one", time.Minute)
			clock.Advance(50 * time.Second)
			c.Set("a", "two", time.Minute)
			clock.Advance(50 * time.Second)

			got, ok := c.Get("a")
			if !ok || got != "two" {
				t.Errorf("expected two, got %q (hit=%v)", got, ok)
			}
		})

		t.Run("sweeps expired entries only when over capacity", func(t *testing.T) {
			clock := tu.NewFakeClock()
			c := New[int](2, WithClock(clock.Now))
			c.Set("a", 1, time.Second)
			c.Set("b", 2, time.Second)
			clock.Advance(2 * time.Second)

			if c.Len() != 2 {
				t.Fatalf("expected no sweep at capacity, got len %d", c.Len())
			}

			c.Set("c", 3, time.Minute)
			if c.Len() != 1 {
				t.Errorf("expected expired entries swept, got len %d", c.Len())
			}
		})

		t.Run("never evicts live entries", func(t *testing.T) {
			c := New[int](2)
			for i := range 5 {
				c.Set(fmt.Sprintf("k%d", i), i, time.Hour)
			}
			if c.Len() != 5 {
				t.Errorf("expected cache to grow past capacity, got len %d", c.Len())
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		c := New[int](10)
		c.Set("a", 1, time.Hour)
		c.Delete("a")
		if _, ok := c.Get("a"); ok {
			t.Error("expected deleted key to be absent")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		c := New[int](16)
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := range 100 {
					key := fmt.Sprintf("k%d", j%20)
					c.Set(key, n, time.Minute)
					c.Get(key)
				}
			}(i)
		}
		wg.Wait()

		if c.Len() != 20 {
			t.Errorf("expected 20 keys, got %d", c.Len())
		}
	})
}
