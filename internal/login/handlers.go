package login

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"
	httpmiddleware "github.com/wolfeidau/organizehub/internal/http"
)

// Credentials is the sign in and sign up form.
type Credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// AuthPage is what the sign in and sign up pages render.
type AuthPage struct {
	Email string
	// Err is a validation or backend error of the last submission.
	Err error
	// ConfirmationSent is set after a sign up that must be confirmed by email.
	ConfirmationSent bool
	SignupDisabled   bool
}

// Renderer renders the auth pages.
type Renderer interface {
	RenderSignIn(w http.ResponseWriter, r *http.Request, page AuthPage)
	RenderSignUp(w http.ResponseWriter, r *http.Request, page AuthPage)
}

// SignupPolicy reports whether the backend accepts sign ups.
type SignupPolicy func(ctx context.Context) (disabled bool, err error)

// Handlers serves sign in, sign up and sign out for browsers resolved by
// Manager.Middleware.
type Handlers struct {
	renderer Renderer
	signup   SignupPolicy
	decoder  *form.Decoder
	validate *validator.Validate
}

// NewHandlers creates the auth handlers. A nil policy always allows sign ups.
func NewHandlers(renderer Renderer, signup SignupPolicy, validate *validator.Validate) *Handlers {
	if signup == nil {
		signup = func(context.Context) (bool, error) { return false, nil }
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Handlers{
		renderer: renderer,
		signup:   signup,
		decoder:  form.NewDecoder(),
		validate: validate,
	}
}

func (h *Handlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderSignIn(w, r, AuthPage{})
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	browser, ok := BrowserFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusInternalServerError)
		return
	}

	creds, err := h.decode(r)
	if err != nil {
		h.renderer.RenderSignIn(w, r, AuthPage{Email: creds.Email, Err: err})
		return
	}

	if err := browser.Auth.SignIn(r.Context(), creds.Email, creds.Password); err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("email", creds.Email).Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).Msg("Sign in failed")
		h.renderer.RenderSignIn(w, r, AuthPage{Email: creds.Email, Err: err})
		return
	}

	hlog.FromRequest(r).Info().Str("email", creds.Email).Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).Msg("User signed in")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handlers) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderSignUp(w, r, AuthPage{SignupDisabled: h.signupDisabled(r)})
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	browser, ok := BrowserFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusInternalServerError)
		return
	}

	if h.signupDisabled(r) {
		h.renderer.RenderSignUp(w, r, AuthPage{SignupDisabled: true})
		return
	}

	creds, err := h.decode(r)
	if err != nil {
		h.renderer.RenderSignUp(w, r, AuthPage{Email: creds.Email, Err: err})
		return
	}

	pending, err := browser.Auth.SignUp(r.Context(), creds.Email, creds.Password)
	if err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("email", creds.Email).Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).Msg("Sign up failed")
		h.renderer.RenderSignUp(w, r, AuthPage{Email: creds.Email, Err: err})
		return
	}

	if pending {
		hlog.FromRequest(r).Info().Str("email", creds.Email).Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).Msg("Sign up awaiting email confirmation")
		h.renderer.RenderSignUp(w, r, AuthPage{Email: creds.Email, ConfirmationSent: true})
		return
	}

	hlog.FromRequest(r).Info().Str("email", creds.Email).Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).Msg("User signed up")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// SignOut ends the browser's session. A failed sign out keeps the user on
// the dashboard.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	browser, ok := BrowserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}

	if err := browser.Auth.SignOut(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error signing out")
		http.Redirect(w, r, "/dashboard?error_code=signout", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

func (h *Handlers) decode(r *http.Request) (Credentials, error) {
	var creds Credentials
	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	if err := h.decoder.Decode(&creds, r.PostForm); err != nil {
		return creds, err
	}
	if err := h.validate.Struct(creds); err != nil {
		return creds, err
	}
	return creds, nil
}

func (h *Handlers) signupDisabled(r *http.Request) bool {
	disabled, err := h.signup(r.Context())
	if err != nil {
		// the backend still rejects sign ups itself
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to read sign up settings")
		return false
	}
	return disabled
}

// IsValidation reports whether err came from form validation.
func IsValidation(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
