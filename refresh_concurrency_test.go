package tokenauth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func runConcurrentRotations(t *testing.T, engine *Engine, refresh string, n int) (success int, unauthorized int) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.RotateBoth(context.Background(), refresh)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrUnauthorized) {
			unauthorized++
			continue
		}
		t.Fatalf("unexpected rotation error: %v", err)
	}
	return success, unauthorized
}

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	const n = 16
	success, fail := runConcurrentRotations(t, engine, s.RefreshToken, n)
	if success != 1 {
		t.Fatalf("expected exactly one rotation success, got %d", success)
	}
	if fail != n-1 {
		t.Fatalf("expected %d rotation failures, got %d", n-1, fail)
	}

	stored, err := mr.Get("refresh:42")
	if err != nil {
		t.Fatalf("refresh record missing: %v", err)
	}
	if _, err := engine.CheckRefresh(context.Background(), stored); err != nil {
		t.Fatalf("winner's refresh token must be bound: %v", err)
	}
}

func TestRefreshConcurrencyLastWriterWins(t *testing.T) {
	cfg := testConfig(newTestClock())
	cfg.Store.AtomicRotation = false
	engine, mr := newTestEngine(t, cfg)

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	const n = 8
	success, fail := runConcurrentRotations(t, engine, s.RefreshToken, n)
	if success < 1 || success+fail != n {
		t.Fatalf("unexpected outcome: %d success, %d failures", success, fail)
	}

	stored, err := mr.Get("refresh:42")
	if err != nil {
		t.Fatalf("refresh record missing: %v", err)
	}
	if stored == s.RefreshToken {
		t.Fatal("record still holds the presented token")
	}
	if _, err := engine.CheckRefresh(context.Background(), s.RefreshToken); !errors.Is(err, ErrNotBound) {
		t.Fatalf("presented token must be invalidated, got %v", err)
	}
}
