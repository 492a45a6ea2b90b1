// Package guard decides whether a route renders, shows a placeholder or
// redirects, based on the auth state of the client.
package guard

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/auth"
)

// Paths guards redirect to.
const (
	SignInPath    = "/signin"
	DashboardPath = "/dashboard"
)

// Kind selects the guard rules.
type Kind int

const (
	// Private routes require a signed-in user.
	Private Kind = iota
	// Public routes are only for signed-out users, e.g. sign in and sign up.
	Public
)

func (k Kind) String() string {
	if k == Public {
		return "public"
	}
	return "private"
}

// Action is what a guard does with a request.
type Action int

const (
	Render Action = iota
	Placeholder
	Redirect
)

// Outcome is a guard decision. To is set for redirects.
type Outcome struct {
	Action Action
	To     string
}

// Decide applies the guard rules to an auth state. While the state is
// loading both guards show their placeholder regardless of the user.
func Decide(kind Kind, state auth.State) Outcome {
	if state.Loading {
		return Outcome{Action: Placeholder}
	}

	switch kind {
	case Public:
		if state.Authenticated() {
			return Outcome{Action: Redirect, To: DashboardPath}
		}
	default:
		if !state.Authenticated() {
			return Outcome{Action: Redirect, To: SignInPath}
		}
	}

	return Outcome{Action: Render}
}

// ContextFunc returns the auth context of the client making the request. A
// nil context is treated as a resolved, signed out client.
type ContextFunc func(r *http.Request) *auth.Context

// Config configures the guard middleware.
type Config struct {
	Kind    Kind
	Context ContextFunc
	// Placeholder is served while the session is being resolved. Nil writes
	// an empty response.
	Placeholder http.Handler
	// Grace is how long a request waits for the session to resolve before
	// the placeholder is served.
	Grace time.Duration
}

// Middleware guards every route of the wrapped handler.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	placeholder := cfg.Placeholder
	if placeholder == nil {
		placeholder = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := auth.State{}
			if authCtx := cfg.Context(r); authCtx != nil {
				waitResolved(r, authCtx, cfg.Grace)
				state = authCtx.State()
			}

			outcome := Decide(cfg.Kind, state)
			switch outcome.Action {
			case Placeholder:
				log.Debug().Str("guard", cfg.Kind.String()).Str("path", r.URL.Path).Msg("Session unresolved, serving placeholder")
				placeholder.ServeHTTP(w, r)
			case Redirect:
				log.Debug().Str("guard", cfg.Kind.String()).Str("path", r.URL.Path).Str("to", outcome.To).Msg("Redirecting")
				http.Redirect(w, r, outcome.To, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func waitResolved(r *http.Request, authCtx *auth.Context, grace time.Duration) {
	if grace <= 0 {
		return
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-authCtx.Resolved():
	case <-timer.C:
	case <-r.Context().Done():
	}
}
