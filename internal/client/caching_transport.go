package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client that honours Cache-Control on
// responses. It serves the public auth settings endpoint, which the hosted
// backend marks cacheable.
func NewCachingHTTPClient(config Config) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if config.CacheDir != "" {
		// persists across restarts
		cache = diskcache.New(config.CacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = NewInstrumentedTransport(http.DefaultTransport)

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}
