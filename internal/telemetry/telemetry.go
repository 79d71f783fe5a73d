// Package telemetry wires OpenTelemetry metrics with a Prometheus exporter.
// All Record* helpers are safe to call before Init; they no-op until the
// meter provider exists.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var meterProvider *sdkmetric.MeterProvider

// InitMeterProvider sets up the OTel SDK with a Prometheus exporter and
// returns the /metrics HTTP handler.
func InitMeterProvider(ctx context.Context, serviceName string) (http.Handler, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, err
	}
	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	if err := initMetrics(); err != nil {
		return nil, err
	}
	return promhttp.Handler(), nil
}

func meter() metric.Meter {
	return meterProvider.Meter("samus")
}

// Shutdown flushes and stops the meter provider.
func Shutdown(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	return meterProvider.Shutdown(ctx)
}
