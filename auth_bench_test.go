package tokenauth

import (
	"context"
	"testing"

	"github.com/MrEthical07/tokenauth/jwt"
)

func BenchmarkAuthenticate(b *testing.B) {
	engine, _ := newTestEngine(b, testConfig(nil))

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		b.Fatalf("issue session failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(context.Background(), s.AccessToken); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRotateBoth(b *testing.B) {
	engine, _ := newTestEngine(b, testConfig(nil))

	s, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com")
	if err != nil {
		b.Fatalf("issue session failed: %v", err)
	}
	refresh := s.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := engine.RotateBoth(context.Background(), refresh)
		if err != nil {
			b.Fatalf("rotate failed: %v", err)
		}
		refresh = next.RefreshToken
	}
}

func BenchmarkIsUsableAs(b *testing.B) {
	engine, _ := newTestEngine(b, testConfig(nil))

	access, err := engine.IssueAccess("42", RoleUser, "a@x.com")
	if err != nil {
		b.Fatalf("issue access failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !engine.IsUsableAs(access, jwt.KindAccess) {
			b.Fatal("access token not usable")
		}
	}
}
