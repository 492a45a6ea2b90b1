package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/organizehub"
)

// Metrics holds the OpenTelemetry metric instruments
type Metrics struct {
	// Backend calls
	RemoteCallsTotal   metric.Int64Counter
	RemoteCallErrors   metric.Int64Counter
	RemoteCallDuration metric.Float64Histogram
	AuthEventsTotal    metric.Int64Counter
	ActiveBrowsers     metric.Int64UpDownCounter
	FetchesSuperseded  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments are bound to the global meter provider, a no-op until Init runs.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.RemoteCallsTotal, _ = meter.Int64Counter(
		"organizehub.remote.calls.total",
		metric.WithDescription("Total number of calls made to the backend"),
		metric.WithUnit("{call}"),
	)

	m.RemoteCallErrors, _ = meter.Int64Counter(
		"organizehub.remote.calls.errors.total",
		metric.WithDescription("Total number of backend calls that failed or returned an error status"),
		metric.WithUnit("{error}"),
	)

	m.RemoteCallDuration, _ = meter.Float64Histogram(
		"organizehub.remote.calls.duration",
		metric.WithDescription("Duration of backend calls"),
		metric.WithUnit("ms"),
	)

	m.AuthEventsTotal, _ = meter.Int64Counter(
		"organizehub.auth.events.total",
		metric.WithDescription("Total number of session change notifications"),
		metric.WithUnit("{event}"),
	)

	m.ActiveBrowsers, _ = meter.Int64UpDownCounter(
		"organizehub.browsers.active",
		metric.WithDescription("Number of browser sessions held by the console"),
		metric.WithUnit("{session}"),
	)

	m.FetchesSuperseded, _ = meter.Int64Counter(
		"organizehub.resource.fetches.superseded.total",
		metric.WithDescription("Total number of fetch responses discarded because a newer fetch was started"),
		metric.WithUnit("{fetch}"),
	)

	return m
}
