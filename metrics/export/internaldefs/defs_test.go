package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/tokenauth"
)

func TestCounterDefsUnique(t *testing.T) {
	ids := make(map[tokenauth.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if ids[def.ID] {
			t.Fatalf("duplicate metric id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "tokenauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		ids[def.ID] = true
		names[def.Name] = true
	}
	if ids[tokenauth.MetricValidateLatency] {
		t.Fatal("histogram metric exported as counter")
	}
}

func TestBucketTablesAligned(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 || len(HistogramUpperBounds) != 7 {
		t.Fatalf("bounds=%d suffixes=%d upper=%d", len(HistogramBounds), len(HistogramBoundSuffix), len(HistogramUpperBounds))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 3}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
