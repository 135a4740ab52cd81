package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/tokenauth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tokenauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() tokenauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenauth.MetricsSnapshot{
		Counters:   make(map[tokenauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokenauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		snapshot: tokenauth.MetricsSnapshot{
			Counters: map[tokenauth.MetricID]uint64{
				tokenauth.MetricSessionIssued: 3,
			},
			Histograms: map[tokenauth.MetricID][]uint64{
				tokenauth.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewFromSource(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("NewFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	if got["tokenauth_session_issued_total"] != 3 {
		t.Fatalf("session issued = %d", got["tokenauth_session_issued_total"])
	}
	if got["tokenauth_validate_latency_seconds_bucket_le_0_025"] != 3 {
		t.Fatalf("cumulative bucket = %d", got["tokenauth_validate_latency_seconds_bucket_le_0_025"])
	}
	if got["tokenauth_validate_latency_seconds_count"] != 8 {
		t.Fatalf("count = %d", got["tokenauth_validate_latency_seconds_count"])
	}
	if got["tokenauth_audit_dropped_total"] != 1 {
		t.Fatalf("audit dropped = %d", got["tokenauth_audit_dropped_total"])
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReaderMeter()

	if _, err := NewFromSource(provider.Meter("tokenauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := New(provider.Meter("tokenauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
	if _, err := NewFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterCloseStopsCallback(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{snapshot: tokenauth.MetricsSnapshot{
		Counters: map[tokenauth.MetricID]uint64{tokenauth.MetricLogout: 5},
	}}

	exp, err := NewFromSource(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("NewFromSource failed: %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := collectInt64(t, reader); got["tokenauth_logout_total"] != 0 {
		t.Fatalf("callback still observing after Close: %v", got)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		snapshot: tokenauth.MetricsSnapshot{
			Counters: map[tokenauth.MetricID]uint64{
				tokenauth.MetricAccessAccepted: 1,
			},
			Histograms: map[tokenauth.MetricID][]uint64{
				tokenauth.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewFromSource(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("NewFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokenauth.MetricAccessAccepted] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
