package website

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/organizehub/internal/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Pages rendered inside the dashboard shell.
var shellPages = []string{"dashboard", "employees", "organizations", "departments", "confirm", "settings"}

// Standalone pages.
var barePages = []string{"signin", "signup", "spinner"}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template)}

	for _, name := range shellPages {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/shell.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		v.pages[name] = tmpl
	}

	for _, name := range barePages {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		v.pages[name] = tmpl
	}

	return v, nil
}

// render buffers the page so a template error still yields a clean 500.
func (v *views) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	tmpl, ok := v.pages[name]
	if !ok {
		hlog.FromRequest(r).Error().Str("template", name).Msg("Unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// page is the data of every template.
type page struct {
	*Localizer
	Title   string
	Theme   string
	Refresh bool
	Shell   *shell
	Content any
}

// shell is the dashboard chrome: profile, nav and header.
type shell struct {
	Employee      *models.Employee
	Loading       bool
	SignedIn      bool
	SignOutFailed bool
	Path          string
}

// Message renders an error for display, translating validation failures.
func (p page) Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fe := verrs[0]
	data := map[string]any{"Field": fe.Field()}
	switch fe.Tag() {
	case "required", "url", "email":
		return p.T("validation."+fe.Tag(), data)
	default:
		return p.T("validation.invalid", data)
	}
}
