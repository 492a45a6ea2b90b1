package website

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/resource"
)

const organizationsPath = "/dashboard/organizations"

type organizationsContent = listContent[models.Organization, organizationForm]

func (s *Website) listOrganizations(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.organizations", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	orgs := browser.Workspace.Organizations()
	if err := orgs.Fetch(r.Context(), ""); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to fetch organizations")
	}

	content := organizationsContent{View: orgs.View(), Base: organizationsPath}
	query := r.URL.Query()
	switch {
	case query.Get("edit") != "":
		if org, ok := orgs.Find(query.Get("edit")); ok {
			content.Form = editOrganizationForm(org.ID, organizationValues(org))
		}
	case query.Get("create") != "":
		content.Form = createOrganizationForm(organizationForm{IsActive: true})
	}

	p.Content = content
	s.views.render(w, r, http.StatusOK, "organizations", p)
}

func (s *Website) createOrganization(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.organizations", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	orgs := browser.Workspace.Organizations()

	var f organizationForm
	if err := s.decodeForm(r, &f); err != nil {
		s.organizationFormFailed(w, r, p, orgs, createOrganizationForm(f), err)
		return
	}

	created, err := orgs.Create(r.Context(), f.input())
	if err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("name", f.Name).Msg("Failed to create organization")
		s.organizationFormFailed(w, r, p, orgs, createOrganizationForm(f), err)
		return
	}

	hlog.FromRequest(r).Info().Str("organization", created.ID).Msg("Organization created")
	p.Content = organizationsContent{View: orgs.View(), Base: organizationsPath}
	s.views.render(w, r, http.StatusOK, "organizations", p)
}

func (s *Website) updateOrganization(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.organizations", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	orgs := browser.Workspace.Organizations()
	id := mux.Vars(r)["id"]

	var f organizationForm
	if err := s.decodeForm(r, &f); err != nil {
		s.organizationFormFailed(w, r, p, orgs, editOrganizationForm(id, f), err)
		return
	}

	if _, err := orgs.Update(r.Context(), id, f.input()); err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("organization", id).Msg("Failed to update organization")
		s.organizationFormFailed(w, r, p, orgs, editOrganizationForm(id, f), err)
		return
	}

	hlog.FromRequest(r).Info().Str("organization", id).Msg("Organization updated")
	p.Content = organizationsContent{View: orgs.View(), Base: organizationsPath}
	s.views.render(w, r, http.StatusOK, "organizations", p)
}

func (s *Website) confirmDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.organizations", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	orgs := browser.Workspace.Organizations()
	id := mux.Vars(r)["id"]

	org, ok := orgs.Find(id)
	if !ok {
		// opened directly, the list was never loaded for this browser
		if err := orgs.Fetch(r.Context(), ""); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to fetch organizations")
		}
		org, ok = orgs.Find(id)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	p.Content = organizationConfirm(org)
	s.views.render(w, r, http.StatusOK, "confirm", p)
}

func (s *Website) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.organizations", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	orgs := browser.Workspace.Organizations()
	id := mux.Vars(r)["id"]

	if err := orgs.Delete(r.Context(), id); err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("organization", id).Msg("Failed to delete organization")
		org, ok := orgs.Find(id)
		if !ok {
			org.ID = id
		}
		content := organizationConfirm(org)
		content.Err = err.Error()
		p.Content = content
		s.views.render(w, r, mutationStatus(err), "confirm", p)
		return
	}

	hlog.FromRequest(r).Info().Str("organization", id).Msg("Organization deleted")
	p.Content = organizationsContent{View: orgs.View(), Base: organizationsPath}
	s.views.render(w, r, http.StatusOK, "organizations", p)
}

func (s *Website) organizationFormFailed(w http.ResponseWriter, r *http.Request, p page, orgs *resource.Collection[models.Organization], form formState[organizationForm], err error) {
	form.Err = p.Message(err)
	p.Content = organizationsContent{View: orgs.View(), Form: form, Base: organizationsPath}
	s.views.render(w, r, mutationStatus(err), "organizations", p)
}

func createOrganizationForm(values organizationForm) formState[organizationForm] {
	return formState[organizationForm]{Open: true, Action: organizationsPath, Values: values}
}

func editOrganizationForm(id string, values organizationForm) formState[organizationForm] {
	return formState[organizationForm]{Open: true, Editing: true, Action: organizationsPath + "/" + id, Values: values}
}

func organizationConfirm(org models.Organization) confirmContent {
	return confirmContent{
		Name:   org.Name,
		Action: organizationsPath + "/" + org.ID + "/delete",
		Cancel: organizationsPath,
	}
}
