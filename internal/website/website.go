// Package website serves the OrganizeHub console: the auth pages and the
// dashboard with organizations, departments and the employee profile.
package website

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/organizehub/internal/guard"
	httpmiddleware "github.com/wolfeidau/organizehub/internal/http"
	"github.com/wolfeidau/organizehub/internal/logger"
	"github.com/wolfeidau/organizehub/internal/login"
)

const (
	themeCookie = "theme"
	themeLight  = "light"
	themeDark   = "dark"
)

// Config configures the console.
type Config struct {
	Sessions *login.Manager
	// Signup reports whether the backend refuses sign ups. Nil allows them.
	Signup login.SignupPolicy
	// Grace is how long a guarded request waits for its session to resolve.
	Grace time.Duration
	// TrustProxy reads the client address from forwarding headers.
	TrustProxy bool
	Logger     zerolog.Logger
}

// Website holds the console handlers.
type Website struct {
	sessions *login.Manager
	auth     *login.Handlers
	views    *views
	bundle   *i18n.Bundle
	decoder  *form.Decoder
	validate *validator.Validate
	grace    time.Duration
	logger   zerolog.Logger

	trustProxy bool
}

// New loads templates and locales and creates the console.
func New(cfg Config) (*Website, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}

	views, err := loadViews()
	if err != nil {
		return nil, err
	}

	bundle, err := LoadBundle()
	if err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	s := &Website{
		sessions: cfg.Sessions,
		views:    views,
		bundle:   bundle,
		decoder:  form.NewDecoder(),
		validate: validate,
		grace:    cfg.Grace,
		logger:   cfg.Logger,

		trustProxy: cfg.TrustProxy,
	}
	s.auth = login.NewHandlers(s, cfg.Signup, validate)

	return s, nil
}

// Handler returns the console with its full middleware chain.
func (s *Website) Handler() http.Handler {
	protection := csrf.New()

	var h http.Handler = s.Router()
	h = protection.Handler(h)
	h = gzhttp.GzipHandler(h)
	h = httpmiddleware.ClientIPMiddleware(s.trustProxy)(h)
	return logger.Requests(s.logger)(h)
}

// Router registers every console route.
func (s *Website) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.sessions.Middleware, localize(s.bundle))

	pages.Handle("/", http.RedirectHandler(guard.DashboardPath, http.StatusSeeOther)).Methods(http.MethodGet)

	public := guard.Middleware(guard.Config{
		Kind:    guard.Public,
		Context: login.AuthContext,
		Grace:   s.grace,
	})
	pages.Handle(guard.SignInPath, public(http.HandlerFunc(s.auth.SignInPage))).Methods(http.MethodGet)
	pages.Handle(guard.SignInPath, public(http.HandlerFunc(s.auth.SignIn))).Methods(http.MethodPost)
	pages.Handle("/signup", public(http.HandlerFunc(s.auth.SignUpPage))).Methods(http.MethodGet)
	pages.Handle("/signup", public(http.HandlerFunc(s.auth.SignUp))).Methods(http.MethodPost)
	pages.HandleFunc("/signout", s.auth.SignOut).Methods(http.MethodPost)

	dash := pages.PathPrefix(guard.DashboardPath).Subrouter()
	dash.Use(guard.Middleware(guard.Config{
		Kind:        guard.Private,
		Context:     login.AuthContext,
		Placeholder: http.HandlerFunc(s.spinner),
		Grace:       s.grace,
	}))

	dash.HandleFunc("", s.dashboard).Methods(http.MethodGet)
	dash.HandleFunc("/employees", s.employees).Methods(http.MethodGet)
	dash.HandleFunc("/theme", s.toggleTheme).Methods(http.MethodPost)

	dash.HandleFunc("/organizations", s.listOrganizations).Methods(http.MethodGet)
	dash.HandleFunc("/organizations", s.createOrganization).Methods(http.MethodPost)
	dash.HandleFunc("/organizations/{id}", s.updateOrganization).Methods(http.MethodPost)
	dash.HandleFunc("/organizations/{id}/delete", s.confirmDeleteOrganization).Methods(http.MethodGet)
	dash.HandleFunc("/organizations/{id}/delete", s.deleteOrganization).Methods(http.MethodPost)

	dash.HandleFunc("/organizations/{organizationId}/departments", s.listDepartments).Methods(http.MethodGet)
	dash.HandleFunc("/organizations/{organizationId}/departments", s.createDepartment).Methods(http.MethodPost)
	dash.HandleFunc("/organizations/{organizationId}/departments/{id}", s.updateDepartment).Methods(http.MethodPost)
	dash.HandleFunc("/organizations/{organizationId}/departments/{id}/delete", s.confirmDeleteDepartment).Methods(http.MethodGet)
	dash.HandleFunc("/organizations/{organizationId}/departments/{id}/delete", s.deleteDepartment).Methods(http.MethodPost)

	dash.HandleFunc("/settings", s.settings).Methods(http.MethodGet)
	dash.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPost)

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// newPage fills the parts of a page shared by every template.
func (s *Website) newPage(r *http.Request, title string, content any) page {
	return page{
		Localizer: localizerFrom(r.Context(), s.bundle),
		Title:     title,
		Theme:     theme(r),
		Content:   content,
	}
}

// RenderSignIn implements login.Renderer.
func (s *Website) RenderSignIn(w http.ResponseWriter, r *http.Request, auth login.AuthPage) {
	p := s.newPage(r, "", auth)
	p.Title = p.T("auth.signIn")
	s.views.render(w, r, authStatus(auth), "signin", p)
}

// RenderSignUp implements login.Renderer.
func (s *Website) RenderSignUp(w http.ResponseWriter, r *http.Request, auth login.AuthPage) {
	p := s.newPage(r, "", auth)
	p.Title = p.T("auth.signUp")
	s.views.render(w, r, authStatus(auth), "signup", p)
}

func authStatus(auth login.AuthPage) int {
	switch {
	case auth.Err == nil:
		return http.StatusOK
	case login.IsValidation(auth.Err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusUnauthorized
	}
}

// spinner is served while a browser's session is still being resolved.
// It reloads itself until the guard can decide.
func (s *Website) spinner(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "", nil)
	p.Refresh = true
	s.views.render(w, r, http.StatusOK, "spinner", p)
}

// shellPage builds a dashboard page for the signed-in browser, loading the
// employee profile the first time it is needed for the current user.
func (s *Website) shellPage(r *http.Request, titleID string, content any) (page, *login.Browser, error) {
	browser, ok := login.BrowserFromContext(r.Context())
	if !ok {
		return page{}, nil, errors.New("request has no browser session")
	}

	p := s.newPage(r, "", content)
	p.Title = p.T(titleID)

	state := browser.Auth.State()
	sh := &shell{
		SignedIn:      state.Authenticated(),
		SignOutFailed: r.URL.Query().Get("error_code") == "signout",
		Path:          r.URL.Path,
	}

	employee := browser.Workspace.Employee()
	if state.User != nil && employee.Key() != state.User.ID {
		if err := employee.Fetch(r.Context(), state.User.ID); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to load employee profile")
		}
	}
	view := employee.View()
	sh.Employee = view.Record
	sh.Loading = view.Loading
	p.Shell = sh

	return p, browser, nil
}

func (s *Website) dashboard(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.shellPage(r, "nav.dashboard", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.views.render(w, r, http.StatusOK, "dashboard", p)
}

func (s *Website) employees(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.shellPage(r, "nav.employees", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.views.render(w, r, http.StatusOK, "employees", p)
}

// toggleTheme flips the light/dark cookie and returns to the page the toggle
// was pressed on.
func (s *Website) toggleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeDark
	if theme(r) == themeDark {
		next = themeLight
	}

	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})

	http.Redirect(w, r, localPath(r.PostFormValue("return")), http.StatusSeeOther)
}

func theme(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == themeDark {
		return themeDark
	}
	return themeLight
}

// localPath only allows redirects within the console.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return guard.DashboardPath
	}
	return p
}

func (s *Website) internalError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Website) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}
	if err := s.decoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}
	return s.validate.Struct(dst)
}
