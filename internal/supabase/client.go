package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/wolfeidau/organizehub/internal/supabase"

// Config holds the project endpoint and the public (anon) API key.
type Config struct {
	URL     string
	AnonKey string
}

// Validate returns store.ErrMissingConfig when either value is absent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" || strings.TrimSpace(c.AnonKey) == "" {
		return store.ErrMissingConfig
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid backend URL %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend URL %q: scheme must be http or https", c.URL)
	}

	return nil
}

// Client talks to a Supabase project: PostgREST for tables, GoTrue for auth.
// A Client is safe for concurrent use.
type Client struct {
	baseURL      string
	anonKey      string
	httpClient   *http.Client
	settingsHTTP *http.Client
}

var _ store.Backend = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient sets the client used for table and auth calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSettingsClient sets the client used for the public settings endpoint,
// typically an HTTP caching client.
func WithSettingsClient(hc *http.Client) Option {
	return func(c *Client) {
		c.settingsHTTP = hc
	}
}

// New creates a client. A missing URL or key is a configuration error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settingsHTTP == nil {
		c.settingsHTTP = c.httpClient
	}

	return c, nil
}

// From returns a handle on table.
func (c *Client) From(table string) store.Table {
	return &Table{client: c, name: table}
}

// Data returns a data client whose calls are authorized with tokens from the
// given source. A nil source keeps the anon key.
func (c *Client) Data(tokens oauth2.TokenSource) store.DataClient {
	if tokens == nil {
		return c
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	clone := *c
	clone.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: tokens, Base: base},
		Timeout:   c.httpClient.Timeout,
	}

	return &clone
}

// Auth returns an auth client holding its own session, persisted to storage
// when storage is not nil.
func (c *Client) Auth(storage store.SessionStorage) store.AuthProvider {
	return NewAuth(c, storage)
}

// Ping checks that the project answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.Settings(ctx); err != nil {
		return fmt.Errorf("backend connection test failed: %w", err)
	}
	return nil
}

// anonToken is used whenever no user session exists.
func (c *Client) anonToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: c.anonKey, TokenType: "Bearer"}
}

type restRequest struct {
	method string
	table  string
	params url.Values
	body   any
	single bool
	prefer string
}

func (c *Client) rest(ctx context.Context, rr restRequest, dst any) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rest "+rr.method+" "+rr.table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.collection.name", rr.table),
			attribute.String("http.request.method", rr.method),
		),
	)
	defer span.End()

	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(rr.table)
	if len(rr.params) > 0 {
		endpoint += "?" + rr.params.Encode()
	}

	var body io.Reader
	if rr.body != nil {
		data, err := json.Marshal(rr.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", rr.table, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, rr.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", rr.table, err)
	}
	c.setHeaders(req)
	if rr.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rr.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if rr.prefer != "" {
		req.Header.Set("Prefer", rr.prefer)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("%s %s: %w", rr.method, rr.table, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	log.Debug().
		Str("method", rr.method).
		Str("table", rr.table).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("rest call")

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", rr.table, err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	// replaced by the oauth2 transport when a user session is attached
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
}
