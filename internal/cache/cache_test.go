package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/technoKC/fraud-shield/internal/domain"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "report:1", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "report:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "payload" {
		t.Errorf("got %q, want payload", val)
	}

	val, err = c.Get(ctx, "missing")
	if err != nil || val != nil {
		t.Errorf("missing key should return nil, nil; got %v, %v", val, err)
	}
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expired entry should read as missing")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	if val, _ := c.Get(ctx, "k0"); val != nil {
		t.Error("oldest entry should be evicted")
	}
	if val, _ := c.Get(ctx, "k3"); val == nil {
		t.Error("newest entry should survive")
	}
	if size, capacity := c.Stats(); size != 3 || capacity != 3 {
		t.Errorf("stats = %d/%d, want 3/3", size, capacity)
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if val, _ := c.Get(ctx, "k"); val != nil {
		t.Error("deleted entry should be gone")
	}
}

func TestLRUCounter(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "rate:client", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("counter = %d, want %d", got, want)
		}
	}
}

func TestLRUCounterWindowReset(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.IncrementCounter(ctx, "rate:client", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got, err := c.IncrementCounter(ctx, "rate:client", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if got != 1 {
		t.Errorf("counter after window = %d, want 1", got)
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("unknown cache type should fail")
	}
}
