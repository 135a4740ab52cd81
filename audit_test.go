package tokenauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func auditConfig(clock *testClock) Config {
	cfg := testConfig(clock)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditSessionLifecycleEvents(t *testing.T) {
	clock := newTestClock()
	sink := NewChannelSink(64)
	engine, _ := newTestEngine(t, auditConfig(clock), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithClientIP(context.Background(), "10.0.0.9")

	s, err := engine.IssueSession(ctx, "42", RoleUser, "a@x.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.EventType != "session_issued" || !ev.Success || ev.SubjectID != "42" || ev.Role != "USER" || ev.IP != "10.0.0.9" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Timestamp.Equal(clock.Now()) {
		t.Fatalf("timestamp %v not taken from engine clock", ev.Timestamp)
	}

	if _, err := engine.RotateBoth(ctx, s.RefreshToken); err != nil {
		t.Fatalf("rotate both: %v", err)
	}
	if ev := nextEvent(t, sink); ev.EventType != "refresh_full" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := engine.RotateBoth(ctx, s.RefreshToken); err == nil {
		t.Fatal("expected reuse to fail")
	}
	ev = nextEvent(t, sink)
	if ev.EventType != "refresh_invalid" || ev.Success || ev.Reason != "not_bound" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["reason"] != "not_bound" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}

	engine.Terminate(ctx, "", "")
	if ev := nextEvent(t, sink); ev.EventType != "logout" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditGuestAccessEvent(t *testing.T) {
	sink := NewChannelSink(8)
	engine, _ := newTestEngine(t, auditConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.IssueGuestAccess(context.Background(), "g@x.com"); err != nil {
		t.Fatalf("guest access: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.EventType != "guest_access_issued" || ev.Role != "GUEST" || ev.SubjectID != "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &countingSink{}
	engine, _ := newTestEngine(t, testConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.IssueSession(context.Background(), "42", RoleUser, "a@x.com"); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	engine.Close()

	if got := sink.Count(); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected no drops")
	}
}

func TestAuditCloseFlushes(t *testing.T) {
	sink := &countingSink{}
	engine, _ := newTestEngine(t, auditConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	for i := 0; i < 10; i++ {
		engine.Terminate(context.Background(), "", "")
	}
	engine.Close()

	if got := sink.Count() + int64(engine.AuditDropped()); got != 10 {
		t.Fatalf("expected 10 delivered or dropped events, got %d", got)
	}
}

func TestJSONWriterSinkLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	engine, _ := newTestEngine(t, auditConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.IssueSession(context.Background(), "42", RoleAdmin, "a@x.com"); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	engine.Close()

	line := strings.TrimSpace(buf.String())
	var ev AuditEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if ev.EventType != "session_issued" || ev.Role != "ADMIN" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if strings.Contains(line, "eyJ") {
		t.Fatal("audit line must not contain tokens")
	}
}
