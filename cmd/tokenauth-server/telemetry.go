package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/tokenauth"
	otelexport "github.com/MrEthical07/tokenauth/metrics/export/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/MrEthical07/tokenauth"

// startOTelMetrics pushes engine metrics through an OpenTelemetry periodic
// reader that writes JSON to w. The returned stop func flushes once more and
// shuts the pipeline down.
func startOTelMetrics(engine *tokenauth.Engine, w io.Writer, interval time.Duration) (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	bridge, err := otelexport.New(provider.Meter(meterName), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("otel instruments: %w", err)
	}

	return func(ctx context.Context) error {
		shutdownErr := provider.Shutdown(ctx)
		return errors.Join(shutdownErr, bridge.Close())
	}, nil
}
