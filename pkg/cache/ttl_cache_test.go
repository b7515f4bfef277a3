package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss for unknown key")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := New[string, string](10*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("a", "x")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after ttl expiry")
	}
}

func TestDelete(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestDeleteFunc(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("u1", 1)
	c.Set("u2", 2)
	c.Set("other", 3)

	c.DeleteFunc(func(key string) bool {
		return key == "u1" || key == "u2"
	})

	if _, ok := c.Get("u1"); ok {
		t.Fatal("expected u1 deleted")
	}
	if _, ok := c.Get("u2"); ok {
		t.Fatal("expected u2 deleted")
	}
	if _, ok := c.Get("other"); !ok {
		t.Fatal("expected other to survive")
	}
}

func TestClearAndLen(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected len 0 after clear, got %d", c.Len())
	}
}

func TestCleanupEvictsExpired(t *testing.T) {
	c := New[string, int](10*time.Millisecond, 20*time.Millisecond)
	defer c.Close()

	c.Set("a", 1)

	// Cleanup tick'inin süresi dolmuş entry'yi fiziksel silmesini bekle.
	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected expired entry evicted, len=%d", c.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
