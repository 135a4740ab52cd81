// Package otel binds engine metrics to an OpenTelemetry Meter supplied by the
// caller. Each counter becomes an Int64ObservableCounter; the latency
// histogram is published as one cumulative gauge per bucket plus a count.
package otel
