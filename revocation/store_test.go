package revocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "refresh", "blacklist")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSaveRefreshSupersedesPreviousValue(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.SaveRefresh(ctx, "42", "r1", 14*24*time.Hour); err != nil {
		t.Fatalf("save r1: %v", err)
	}
	if err := store.SaveRefresh(ctx, "42", "r2", 14*24*time.Hour); err != nil {
		t.Fatalf("save r2: %v", err)
	}

	got, ok, err := store.RefreshToken(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("refresh lookup: ok=%v err=%v", ok, err)
	}
	if got != "r2" {
		t.Fatalf("expected r2, got %q", got)
	}
	if ttl := mr.TTL("refresh:42"); ttl != 14*24*time.Hour {
		t.Fatalf("expected refresh ttl reset on write, got %s", ttl)
	}
}

func TestRefreshRecordExpires(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.SaveRefresh(ctx, "42", "r1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(time.Minute)

	if _, ok, err := store.RefreshToken(ctx, "42"); err != nil || ok {
		t.Fatalf("expected record expired, ok=%v err=%v", ok, err)
	}
}

func TestDeleteRefreshIdempotent(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.DeleteRefresh(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := store.SaveRefresh(ctx, "42", "r1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.DeleteRefresh(ctx, "42"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if _, ok, _ := store.RefreshToken(ctx, "42"); ok {
		t.Fatal("expected record gone")
	}
}

func TestBlacklistIdempotentAndBounded(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Blacklist(ctx, "access-1", 30*time.Second); err != nil {
			t.Fatalf("blacklist #%d: %v", i+1, err)
		}
	}
	listed, err := store.IsBlacklisted(ctx, "access-1")
	if err != nil || !listed {
		t.Fatalf("expected blacklisted, listed=%v err=%v", listed, err)
	}
	if n := len(mr.Keys()); n != 1 {
		t.Fatalf("expected one key after double revoke, got %d", n)
	}
	if v, _ := mr.Get("blacklist:access-1"); v != "logout" {
		t.Fatalf("unexpected blacklist value %q", v)
	}

	mr.FastForward(30 * time.Second)
	listed, err = store.IsBlacklisted(ctx, "access-1")
	if err != nil || listed {
		t.Fatalf("expected entry to expire with the token, listed=%v err=%v", listed, err)
	}
}

func TestPutRejectsNonPositiveTTL(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	if err := store.Put(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

func TestRotateRefreshCompareAndSwap(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.RotateRefresh(ctx, "42", "r1", "r2", time.Hour); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected mismatch on absent record, got %v", err)
	}
	if err := store.SaveRefresh(ctx, "42", "r1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RotateRefresh(ctx, "42", "r1", "r2", time.Hour); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := store.RotateRefresh(ctx, "42", "r1", "r3", time.Hour); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected mismatch on stale expected value, got %v", err)
	}
	got, _, _ := store.RefreshToken(ctx, "42")
	if got != "r2" {
		t.Fatalf("expected r2 to survive, got %q", got)
	}
}

func TestRotateRefreshConcurrentSingleWinner(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.SaveRefresh(ctx, "42", "r1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results <- store.RotateRefresh(ctx, "42", "r1", "next", time.Hour)
		}(i)
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRefreshMismatch):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestStoreUnavailableIsWrapped(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, _, err := store.RefreshToken(ctx, "42"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.IsBlacklisted(ctx, "a"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
}
