package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wolfeidau/organizehub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds common client configuration
type Config struct {
	Timeout time.Duration
	// CacheDir enables a disk cache for cacheable responses, empty keeps it in memory.
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// NewHTTPClient creates the client used for backend data and auth calls.
// Every call is counted and timed.
func NewHTTPClient(config Config) *http.Client {
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: NewInstrumentedTransport(http.DefaultTransport),
	}
}

// InstrumentedTransport records call count, failures and latency per host.
type InstrumentedTransport struct {
	base    http.RoundTripper
	metrics *telemetry.Metrics
}

// NewInstrumentedTransport wraps base, defaulting to http.DefaultTransport.
func NewInstrumentedTransport(base http.RoundTripper) *InstrumentedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &InstrumentedTransport{base: base, metrics: telemetry.GetMetrics()}
}

func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := float64(time.Since(started).Microseconds()) / 1000

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("server.address", req.URL.Host),
		attribute.String("http.response.status_code", status),
	)

	ctx := req.Context()
	t.metrics.RemoteCallsTotal.Add(ctx, 1, attrs)
	t.metrics.RemoteCallDuration.Record(ctx, elapsed, attrs)
	if err != nil || resp.StatusCode >= http.StatusInternalServerError {
		t.metrics.RemoteCallErrors.Add(ctx, 1, attrs)
	}

	return resp, err
}
