package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newTestDenylist connects to the Redis named by TEST_REDIS_ADDR and skips
// the test when it is unset or unreachable.
func newTestDenylist(t *testing.T) *Denylist {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr, Timeout: 2 * time.Second})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewDenylist(client)
}

func TestDenylist_AddContains(t *testing.T) {
	d := newTestDenylist(t)
	ctx := context.Background()
	jti := uuid.NewString()

	added, err := d.Add(ctx, jti, time.Now().Add(time.Minute))
	if err != nil || !added {
		t.Fatalf("expected first add to succeed, got added=%v err=%v", added, err)
	}
	added, err = d.Add(ctx, jti, time.Now().Add(time.Minute))
	if err != nil || added {
		t.Fatalf("expected second add to report existing key, got added=%v err=%v", added, err)
	}

	ok, err := d.Contains(ctx, jti)
	if err != nil || !ok {
		t.Fatalf("expected jti to be denylisted, got ok=%v err=%v", ok, err)
	}
	ok, err = d.Contains(ctx, uuid.NewString())
	if err != nil || ok {
		t.Fatalf("unknown jti must not be denylisted, got ok=%v err=%v", ok, err)
	}
}

func TestDenylist_KeyExpires(t *testing.T) {
	d := newTestDenylist(t)
	ctx := context.Background()
	jti := uuid.NewString()

	if _, err := d.Add(ctx, jti, time.Now().Add(1500*time.Millisecond)); err != nil {
		t.Fatalf("add: %v", err)
	}
	ttl, err := d.client.TTL(ctx, d.key(jti)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("unexpected key ttl %s", ttl)
	}

	time.Sleep(2 * time.Second)
	if ok, _ := d.Contains(ctx, jti); ok {
		t.Fatal("entry must expire with its key")
	}
}

func TestDenylist_PastNotAfterIsNotStored(t *testing.T) {
	d := newTestDenylist(t)
	ctx := context.Background()
	jti := uuid.NewString()

	added, err := d.Add(ctx, jti, time.Now().Add(-time.Second))
	if err != nil || !added {
		t.Fatalf("expected lapsed add to succeed, got added=%v err=%v", added, err)
	}
	if ok, _ := d.Contains(ctx, jti); ok {
		t.Fatal("lapsed entry must not be stored")
	}
}
