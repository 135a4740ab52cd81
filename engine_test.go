package tokenauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(clock *testClock) Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	if clock != nil {
		cfg.JWT.Now = clock.Now
	}
	return cfg
}

func newTestEngine(t testing.TB, cfg Config, opts ...func(*Builder)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	b := New().WithConfig(cfg).WithRedis(rdb)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine, mr
}

func TestBuildRequiresRedis(t *testing.T) {
	if _, err := New().WithConfig(testConfig(nil)).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := New().WithConfig(testConfig(nil)).WithRedis(rdb)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig(nil)
	cfg.JWT.PrivateKey = []byte("short")
	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected weak secret to be rejected")
	}
}

func TestIssueSessionBindsRefresh(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if s.AccessToken == "" || s.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", s)
	}
	if s.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("unexpected refresh ttl %v", s.RefreshTTL)
	}

	stored, err := mr.Get("refresh:42")
	if err != nil {
		t.Fatalf("refresh record missing: %v", err)
	}
	if stored != s.RefreshToken {
		t.Fatal("stored record does not match issued refresh token")
	}
	if ttl := mr.TTL("refresh:42"); ttl != 14*24*time.Hour {
		t.Fatalf("unexpected record ttl %v", ttl)
	}

	got, err := engine.CheckRefresh(context.Background(), s.RefreshToken)
	if err != nil {
		t.Fatalf("check refresh: %v", err)
	}
	want := ValidationResult{SubjectID: "42", Email: "a@x.com", Role: RoleUser}
	if got != want {
		t.Fatalf("validation result = %+v, want %+v", got, want)
	}
}

func TestIssueSessionSupersedesPreviousRecord(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	first, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	if _, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com"); err != nil {
		t.Fatalf("second session: %v", err)
	}

	if _, err := engine.CheckRefresh(ctx, first.RefreshToken); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected superseded refresh to be not bound, got %v", err)
	}
}

func TestIssueSessionRejectsBadInput(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(nil))
	ctx := context.Background()

	if _, err := engine.IssueSession(ctx, "", RoleUser, "a@x.com"); !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("expected ErrSubjectRequired, got %v", err)
	}
	if _, err := engine.IssueSession(ctx, "42", Role("ROOT"), "a@x.com"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no store writes, got %v", keys)
	}
}

func TestIssueSessionStoreUnavailable(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(nil))
	mr.Close()

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("login store failure must not be reported as unauthorized")
	}
	if s != nil {
		t.Fatal("expected no session on store failure")
	}
}

func TestGuestAccessIsAccessOnly(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	s, err := engine.IssueGuestAccess(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("guest access: %v", err)
	}
	if s.RefreshToken != "" {
		t.Fatal("guest access must not carry a refresh token")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("guest access must not write to the store, got %v", keys)
	}

	p, err := engine.Authenticate(ctx, s.AccessToken)
	if err != nil {
		t.Fatalf("authenticate guest: %v", err)
	}
	if p.SubjectID != "" || p.Role != RoleGuest || p.Email != "new@x.com" {
		t.Fatalf("unexpected guest principal %+v", p)
	}
}

func TestIssuedTokensRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	tests := []struct {
		subject string
		role    Role
		email   string
	}{
		{"42", RoleUser, "a@x.com"},
		{"7", RoleAdmin, ""},
		{"", RoleGuest, "guest@x.com"},
		{"", RoleGuest, ""},
	}
	for _, tc := range tests {
		access, err := engine.IssueAccess(tc.subject, tc.role, tc.email)
		if err != nil {
			t.Fatalf("issue access %+v: %v", tc, err)
		}
		p, err := engine.Authenticate(ctx, access)
		if err != nil {
			t.Fatalf("authenticate %+v: %v", tc, err)
		}
		if p.SubjectID != tc.subject || p.Role != tc.role || p.Email != tc.email {
			t.Fatalf("principal %+v does not match input %+v", p, tc)
		}
	}
}

func TestKindIsolation(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	s, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	if engine.IsUsableAs(s.RefreshToken, jwt.KindAccess) {
		t.Fatal("refresh token usable as access")
	}
	if engine.IsUsableAs(s.AccessToken, jwt.KindRefresh) {
		t.Fatal("access token usable as refresh")
	}
	if !engine.IsUsableAs(s.AccessToken, jwt.KindAccess) || !engine.IsUsableAs(s.RefreshToken, jwt.KindRefresh) {
		t.Fatal("tokens not usable as their own kind")
	}

	if _, err := engine.Authenticate(ctx, s.RefreshToken); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected kind mismatch for refresh at gate, got %v", err)
	}
	if _, err := engine.CheckRefresh(ctx, s.AccessToken); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected kind mismatch for access at refresh, got %v", err)
	}
	if _, err := engine.RotateBoth(ctx, s.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized rotating with access token, got %v", err)
	}
}

func TestRotateAccessOnlyLeavesRecord(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	s, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	rotated, err := engine.RotateAccessOnly(ctx, s.RefreshToken)
	if err != nil {
		t.Fatalf("rotate access only: %v", err)
	}
	if rotated.AccessToken == "" || rotated.AccessToken == s.AccessToken {
		t.Fatal("expected a fresh access token")
	}
	if rotated.RefreshToken != "" {
		t.Fatal("access-only rotation must not return a refresh token")
	}

	stored, _ := mr.Get("refresh:42")
	if stored != s.RefreshToken {
		t.Fatal("access-only rotation changed the refresh record")
	}
	if _, err := engine.RotateAccessOnly(ctx, s.RefreshToken); err != nil {
		t.Fatalf("refresh token should stay usable: %v", err)
	}
}

func TestRotateBothUnknownSubject(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(newTestClock()))

	orphan, err := engine.IssueRefresh("99", RoleUser, "z@x.com")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := engine.RotateBoth(context.Background(), orphan); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected not bound for unbound refresh, got %v", err)
	}
}

func TestRotateBothStoreDownDuringValidationIsUnauthorized(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	mr.Close()

	_, err = engine.RotateBoth(context.Background(), s.RefreshToken)
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected unauthorized joined with store unavailable, got %v", err)
	}
}

func TestTerminateRevokesAndDeletes(t *testing.T) {
	clock := newTestClock()
	engine, mr := newTestEngine(t, testConfig(clock))
	ctx := context.Background()

	s, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	clock.Advance(10 * time.Minute)

	res := engine.Terminate(ctx, s.AccessToken, s.RefreshToken)
	if !res.RefreshDeleted || !res.AccessRevoked || res.SubjectID != "42" {
		t.Fatalf("unexpected logout result %+v", res)
	}

	if mr.Exists("refresh:42") {
		t.Fatal("refresh record still present")
	}
	key := "blacklist:" + s.AccessToken
	if !mr.Exists(key) {
		t.Fatal("blacklist entry missing")
	}
	if ttl := mr.TTL(key); ttl != 20*time.Minute {
		t.Fatalf("blacklist ttl = %v, want remaining lifetime 20m", ttl)
	}

	if engine.CheckAccessNotRevoked(ctx, s.AccessToken) {
		t.Fatal("revoked access token still usable")
	}
	if _, err := engine.Authenticate(ctx, s.AccessToken); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected ErrBlacklisted, got %v", err)
	}
	if _, err := engine.CheckRefresh(ctx, s.RefreshToken); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected deleted record to be not bound, got %v", err)
	}
}

func TestTerminateWithoutTokens(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(nil))

	res := engine.Terminate(context.Background(), "", "")
	if res != (LogoutResult{}) {
		t.Fatalf("expected empty logout result, got %+v", res)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no store writes, got %v", keys)
	}
}

func TestTerminateStoreDownNeverFails(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))
	ctx := context.Background()

	s, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	mr.Close()

	res := engine.Terminate(ctx, s.AccessToken, s.RefreshToken)
	if res.RefreshDeleted || res.AccessRevoked {
		t.Fatalf("nothing should be reported done with the store down, got %+v", res)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLogoutStepFailure]; got != 2 {
		t.Fatalf("expected 2 logout step failures, got %d", got)
	}
}

func TestAuthenticateFailsClosed(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(newTestClock()))

	access, err := engine.IssueAccess("42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	mr.Close()

	if engine.CheckAccessNotRevoked(context.Background(), access) {
		t.Fatal("store failure must not validate an access token")
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(nil))

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := engine.Authenticate(context.Background(), token)
		if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrMalformed) {
			t.Fatalf("token %q: expected malformed, got %v", token, err)
		}
	}
}

func TestAllowAttempt(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(nil))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := engine.AllowAttempt(ctx, "login", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := engine.AllowAttempt(ctx, "login", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := engine.AllowAttempt(ctx, "login", "10.0.0.2"); err != nil {
		t.Fatalf("other ip should not be limited: %v", err)
	}

	mr.FastForward(time.Minute)
	if err := engine.AllowAttempt(ctx, "login", "10.0.0.1"); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}

	mr.Close()
	if err := engine.AllowAttempt(ctx, "login", "10.0.0.1"); err != nil {
		t.Fatalf("limiter must fail open, got %v", err)
	}
}

func TestPing(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(nil))

	if _, err := engine.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if _, err := engine.Ping(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.IssueSession(context.Background(), "42", RoleUser, ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if e.CheckAccessNotRevoked(context.Background(), "x") {
		t.Fatal("nil engine must not validate")
	}
	_ = e.Terminate(context.Background(), "a", "b")
	e.Close()
}
