package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestSet(t *testing.T) (*RedisSeenSet, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client, err := Dial(context.Background(), srv.Addr(), "", 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSeenSet(client, "devdose:test"), srv
}

func TestRedisSeenSetContainsAndAdd(t *testing.T) {
	t.Parallel()

	set, srv := newTestSet(t)
	ctx := context.Background()

	if ok, err := set.Contains(ctx, "h1"); err != nil || ok {
		t.Fatalf("empty set: ok=%v err=%v", ok, err)
	}
	if err := set.Add(ctx, "h1", "h2", "h1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := set.Add(ctx); err != nil {
		t.Fatalf("empty add: %v", err)
	}
	for _, h := range []string{"h1", "h2"} {
		if ok, err := set.Contains(ctx, h); err != nil || !ok {
			t.Fatalf("%s missing: ok=%v err=%v", h, ok, err)
		}
	}
	members, err := srv.Members("devdose:test")
	if err != nil || len(members) != 2 {
		t.Fatalf("expected 2 members, got %v (%v)", members, err)
	}
}

func TestRedisSeenSetReportsServerErrors(t *testing.T) {
	t.Parallel()

	set, srv := newTestSet(t)
	srv.SetError("ERR unavailable")

	if _, err := set.Contains(context.Background(), "h1"); err == nil {
		t.Fatalf("expected error from failing server")
	}
	if err := set.Add(context.Background(), "h1"); err == nil {
		t.Fatalf("expected error from failing server")
	}
}

func TestDialFailsWithoutServer(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr, "", 0); err == nil {
		t.Fatalf("expected dial error for closed server")
	}
}

func TestRedisSeenSetAgainstLiveServer(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := Dial(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	key := fmt.Sprintf("devdose:test:%d", time.Now().UnixNano())
	defer client.Del(ctx, key)

	set := NewRedisSeenSet(client, key)
	if err := set.Add(ctx, "h1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ok, err := set.Contains(ctx, "h1"); err != nil || !ok {
		t.Fatalf("contains: ok=%v err=%v", ok, err)
	}
}

func TestNewRedisSeenSetDefaultsKey(t *testing.T) {
	t.Parallel()

	if got := NewRedisSeenSet(nil, "").key; got != "devdose:published" {
		t.Fatalf("unexpected default key %q", got)
	}
}
