// Package prometheus publishes engine counters and the validation latency
// histogram to Prometheus. Exporter renders the text format directly and
// registers nothing globally. Collector plugs the same series into a
// client_golang registry.
package prometheus
