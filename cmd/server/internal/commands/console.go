package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/client"
	"github.com/wolfeidau/organizehub/internal/logger"
	"github.com/wolfeidau/organizehub/internal/login"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/store/memory"
	"github.com/wolfeidau/organizehub/internal/supabase"
	"github.com/wolfeidau/organizehub/internal/telemetry"
	"github.com/wolfeidau/organizehub/internal/website"
)

type ConsoleCmd struct {
	// Server configuration
	Listen   string `help:"HTTP server listen address" default:"0.0.0.0:8443" env:"ORGHUB_LISTEN"`
	Cert     string `help:"path to TLS cert file" default:"" env:"ORGHUB_TLS_CERT"`
	Key      string `help:"path to TLS key file" default:"" env:"ORGHUB_TLS_KEY"`
	Insecure bool   `help:"serve plain HTTP without TLS (development only)" default:"false" env:"ORGHUB_INSECURE"`

	TrustProxy bool `help:"read client addresses from X-Forwarded-For and X-Real-IP" default:"false" env:"ORGHUB_TRUST_PROXY"`

	// Backend configuration
	Backend  string        `help:"data and auth backend (supabase or memory)" default:"supabase" env:"ORGHUB_BACKEND" enum:"supabase,memory"`
	Supabase SupabaseFlags `embed:"" prefix:"supabase-"`
	CacheDir string        `help:"directory caching public auth settings across restarts" default:"" env:"ORGHUB_CACHE_DIR"`

	// Browser sessions
	SessionTTL    time.Duration `help:"idle browser session TTL" default:"168h" env:"ORGHUB_SESSION_TTL"`
	AnonymousTTL  time.Duration `help:"idle TTL of browser sessions nobody signed in with" default:"15m" env:"ORGHUB_ANONYMOUS_TTL"`
	SweepInterval time.Duration `help:"interval between idle session sweeps" default:"5m" env:"ORGHUB_SWEEP_INTERVAL"`
	Grace         time.Duration `help:"how long a request waits for its session to resolve" default:"2s" env:"ORGHUB_GRACE"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"ORGHUB_TRACING"`
	SampleRatio float64 `help:"fraction of traces sampled" default:"1" env:"ORGHUB_TRACE_SAMPLE_RATIO"`
}

type SupabaseFlags struct {
	URL     string `help:"Supabase project URL" env:"SUPABASE_URL"`
	AnonKey string `help:"Supabase anon key" env:"SUPABASE_ANON_KEY"`
}

func (s *SupabaseFlags) Validate() error {
	cfg := supabase.Config{URL: s.URL, AnonKey: s.AnonKey}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid supabase configuration (--supabase-url/SUPABASE_URL, --supabase-anon-key/SUPABASE_ANON_KEY): %w", err)
	}
	return nil
}

func (c *ConsoleCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Str("backend", c.Backend).Msg("Starting console")

	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "organizehub-console",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
			shutdown = func(context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	backend, signup, err := c.newBackend(ctx, log)
	if err != nil {
		return err
	}

	opts := []login.Option{login.WithAnonymousTTL(c.AnonymousTTL)}
	if c.Insecure {
		opts = append(opts, login.WithInsecureCookie())
	}
	sessions, err := login.NewManager(backend, c.SessionTTL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	defer sessions.Close()
	go sessions.Run(ctx, c.SweepInterval)

	site, err := website.New(website.Config{
		Sessions:   sessions,
		Signup:     signup,
		Grace:      c.Grace,
		TrustProxy: c.TrustProxy,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create website: %w", err)
	}

	srv := configureHTTPServer(c.Listen, site.Handler())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown server")
		}
	}()

	if c.Insecure {
		log.Warn().Str("addr", c.Listen).Msg("Starting HTTP server without TLS. This should only be used in development!")
		return ignoreClosed(srv.ListenAndServe())
	}

	if err := c.validateTLS(); err != nil {
		return err
	}

	log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
	return ignoreClosed(srv.ListenAndServeTLS(c.Cert, c.Key))
}

// newBackend builds the configured backend and the sign up policy that goes
// with it.
func (c *ConsoleCmd) newBackend(ctx context.Context, log zerolog.Logger) (store.Backend, login.SignupPolicy, error) {
	switch c.Backend {
	case "memory":
		backend := memory.NewBackend()
		user, err := memory.SeedDemo(ctx, backend)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		log.Info().Str("email", user.Email).Str("password", memory.DemoPassword).Msg("Using in-memory backend with demo user")

		signup := func(context.Context) (bool, error) {
			return backend.Dir.SignupDisabled(), nil
		}
		return backend, signup, nil

	default:
		if err := c.Supabase.Validate(); err != nil {
			return nil, nil, err
		}

		cachingConfig := client.DefaultConfig()
		cachingConfig.CacheDir = c.CacheDir

		backend, err := supabase.New(
			supabase.Config{URL: c.Supabase.URL, AnonKey: c.Supabase.AnonKey},
			supabase.WithHTTPClient(client.NewHTTPClient(client.DefaultConfig())),
			supabase.WithSettingsClient(client.NewCachingHTTPClient(cachingConfig)),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create supabase client: %w", err)
		}

		// the console still starts, pages report the failure per request
		if err := backend.Ping(ctx); err != nil {
			log.Error().Err(err).Str("url", c.Supabase.URL).Msg("Supabase connection test failed")
		} else {
			log.Info().Str("url", c.Supabase.URL).Msg("Supabase connection initialized")
		}

		signup := func(ctx context.Context) (bool, error) {
			settings, err := backend.Settings(ctx)
			if err != nil {
				return false, err
			}
			return settings.DisableSignup, nil
		}
		return backend, signup, nil
	}
}

func (c *ConsoleCmd) validateTLS() error {
	if c.Cert == "" || c.Key == "" {
		return errors.New("TLS certificate and key are required (--cert and --key), or use --insecure")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}
	return nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
