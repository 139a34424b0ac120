package cache

import (
	"context"
	"testing"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	val, err = c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expected nil after delete")
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expected expired entry to be evicted")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("v1"), time.Minute)
	c.Set(ctx, "key2", []byte("v2"), time.Minute)

	// Touch key1 so key2 becomes the eviction candidate.
	c.Get(ctx, "key1")
	c.Set(ctx, "key3", []byte("v3"), time.Minute)

	val, _ := c.Get(ctx, "key2")
	if val != nil {
		t.Error("expected key2 to be evicted")
	}
	val, _ = c.Get(ctx, "key1")
	if string(val) != "v1" {
		t.Error("expected key1 to survive eviction")
	}

	size, capacity := c.Stats()
	if size != 2 || capacity != 2 {
		t.Errorf("expected size 2 capacity 2, got %d/%d", size, capacity)
	}
}

func TestLRUCacheMerchantRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	meta := &domain.MerchantMetadata{
		BeneficiaryAccount: "MERCH01",
		MerchantCategory:   "Electronics",
		DeviceType:         "POS",
		Lat:                12.9716,
		Lon:                77.5946,
	}

	if err := c.SetMerchant(ctx, "MERCH01", meta, time.Minute); err != nil {
		t.Fatalf("SetMerchant failed: %v", err)
	}

	got, err := c.GetMerchant(ctx, "MERCH01")
	if err != nil {
		t.Fatalf("GetMerchant failed: %v", err)
	}
	if got == nil || got.MerchantCategory != "Electronics" {
		t.Errorf("expected Electronics, got %+v", got)
	}

	got, err = c.GetMerchant(ctx, "MERCH99")
	if err != nil {
		t.Fatalf("GetMerchant failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown merchant")
	}
}

func TestNewUnsupportedType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}

func TestNewMemory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
