//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMongoCache_Integration(t *testing.T) {
	uri := os.Getenv("GRIDCORE_MONGO_URI")
	if uri == "" {
		t.Skip("GRIDCORE_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewMongoCache(ctx, uri)
	if err != nil {
		t.Fatalf("NewMongoCache() error: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "test:key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, hit, err := c.Get(ctx, "test:key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "test:expired", []byte("old"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "test:expired"); hit {
		t.Error("Get() of an expired entry = hit")
	}

	if n, err := c.Clear(ctx); err != nil || n < 1 {
		t.Errorf("Clear() = %d, %v", n, err)
	}
	if _, hit, _ := c.Get(ctx, "test:key"); hit {
		t.Error("Get() after Clear() = hit")
	}
}
