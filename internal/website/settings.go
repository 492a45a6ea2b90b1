package website

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/organizehub/internal/guard"
	"github.com/wolfeidau/organizehub/internal/login"
)

func (s *Website) settings(w http.ResponseWriter, r *http.Request) {
	browser, ok := login.BrowserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, guard.SignInPath, http.StatusSeeOther)
		return
	}

	// the profile is reloaded every time the page is opened
	employee := browser.Workspace.Employee()
	if user := browser.Auth.State().User; user != nil {
		if err := employee.Fetch(r.Context(), user.ID); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to load employee profile")
		}
	}

	p, _, err := s.shellPage(r, "nav.settings", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	content := settingsContent{View: employee.View()}
	if content.View.Record != nil && r.URL.Query().Get("edit") != "" {
		content.Editing = true
		content.Values = settingsValues(*content.View.Record)
	}

	p.Content = content
	s.views.render(w, r, http.StatusOK, "settings", p)
}

func (s *Website) updateSettings(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.settings", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	employee := browser.Workspace.Employee()

	var f settingsForm
	if err := s.decodeForm(r, &f); err != nil {
		p.Content = settingsContent{View: employee.View(), Editing: true, Values: f, Err: p.Message(err)}
		s.views.render(w, r, mutationStatus(err), "settings", p)
		return
	}

	updated, err := employee.Update(r.Context(), f.update())
	if err != nil {
		hlog.FromRequest(r).Info().Err(err).Msg("Failed to update profile")
		msg := err.Error()
		if msg == "" {
			msg = p.T("settings.updateFailed")
		}
		p.Content = settingsContent{View: employee.View(), Editing: true, Values: f, Err: msg}
		s.views.render(w, r, mutationStatus(err), "settings", p)
		return
	}

	hlog.FromRequest(r).Info().Str("employee", updated.ID).Msg("Profile updated")

	// the shell shows the new name straight away
	p.Shell.Employee = updated
	p.Content = settingsContent{View: employee.View(), Updated: true}
	s.views.render(w, r, http.StatusOK, "settings", p)
}
