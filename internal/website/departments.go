package website

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/resource"
)

type departmentsContent = listContent[models.Department, departmentForm]

func departmentsPath(organizationID string) string {
	return organizationsPath + "/" + organizationID + "/departments"
}

func (s *Website) listDepartments(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.departments", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	orgID := mux.Vars(r)["organizationId"]
	depts := browser.Workspace.Departments()
	if err := depts.Fetch(r.Context(), orgID); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("organization", orgID).Msg("Failed to fetch departments")
	}

	base := departmentsPath(orgID)
	content := departmentsContent{View: departmentsView(r, depts, orgID), Base: base}
	query := r.URL.Query()
	switch {
	case query.Get("edit") != "":
		if dept, ok := findDepartment(depts, orgID, query.Get("edit")); ok {
			content.Form = editDepartmentForm(base, dept.ID, departmentValues(dept))
		}
	case query.Get("create") != "":
		content.Form = createDepartmentForm(base, departmentForm{IsActive: true})
	}

	p.Content = content
	s.views.render(w, r, http.StatusOK, "departments", p)
}

func (s *Website) createDepartment(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.departments", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	orgID := mux.Vars(r)["organizationId"]
	base := departmentsPath(orgID)
	depts := browser.Workspace.Departments()
	scopeDepartments(r, depts, orgID)

	var f departmentForm
	if err := s.decodeForm(r, &f); err != nil {
		s.departmentFormFailed(w, r, p, depts, orgID, createDepartmentForm(base, f), err)
		return
	}

	created, err := depts.Create(r.Context(), f.input(orgID))
	if err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("organization", orgID).Msg("Failed to create department")
		s.departmentFormFailed(w, r, p, depts, orgID, createDepartmentForm(base, f), err)
		return
	}

	hlog.FromRequest(r).Info().Str("department", created.ID).Msg("Department created")
	p.Content = departmentsContent{View: departmentsView(r, depts, orgID), Base: base}
	s.views.render(w, r, http.StatusOK, "departments", p)
}

func (s *Website) updateDepartment(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.departments", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	orgID, id := vars["organizationId"], vars["id"]
	base := departmentsPath(orgID)
	depts := browser.Workspace.Departments()
	scopeDepartments(r, depts, orgID)

	if _, ok := findDepartment(depts, orgID, id); !ok {
		http.NotFound(w, r)
		return
	}

	var f departmentForm
	if err := s.decodeForm(r, &f); err != nil {
		s.departmentFormFailed(w, r, p, depts, orgID, editDepartmentForm(base, id, f), err)
		return
	}

	// the organization of a department never changes
	if _, err := depts.Update(r.Context(), id, f.input("")); err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("department", id).Msg("Failed to update department")
		s.departmentFormFailed(w, r, p, depts, orgID, editDepartmentForm(base, id, f), err)
		return
	}

	hlog.FromRequest(r).Info().Str("department", id).Msg("Department updated")
	p.Content = departmentsContent{View: departmentsView(r, depts, orgID), Base: base}
	s.views.render(w, r, http.StatusOK, "departments", p)
}

func (s *Website) confirmDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.departments", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	orgID, id := vars["organizationId"], vars["id"]
	depts := browser.Workspace.Departments()
	scopeDepartments(r, depts, orgID)

	dept, ok := findDepartment(depts, orgID, id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	p.Content = departmentConfirm(orgID, dept)
	s.views.render(w, r, http.StatusOK, "confirm", p)
}

func (s *Website) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	p, browser, err := s.shellPage(r, "nav.departments", nil)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	orgID, id := vars["organizationId"], vars["id"]
	depts := browser.Workspace.Departments()
	scopeDepartments(r, depts, orgID)

	dept, ok := findDepartment(depts, orgID, id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := depts.Delete(r.Context(), id); err != nil {
		hlog.FromRequest(r).Info().Err(err).Str("department", id).Msg("Failed to delete department")
		content := departmentConfirm(orgID, dept)
		content.Err = err.Error()
		p.Content = content
		s.views.render(w, r, mutationStatus(err), "confirm", p)
		return
	}

	hlog.FromRequest(r).Info().Str("department", id).Msg("Department deleted")
	p.Content = departmentsContent{View: departmentsView(r, depts, orgID), Base: departmentsPath(orgID)}
	s.views.render(w, r, http.StatusOK, "departments", p)
}

func (s *Website) departmentFormFailed(w http.ResponseWriter, r *http.Request, p page, depts *resource.Collection[models.Department], orgID string, form formState[departmentForm], err error) {
	form.Err = p.Message(err)
	p.Content = departmentsContent{View: departmentsView(r, depts, orgID), Form: form, Base: departmentsPath(orgID)}
	s.views.render(w, r, mutationStatus(err), "departments", p)
}

// scopeDepartments loads the departments of orgID unless the collection
// already holds them. One browser may have several organizations open.
func scopeDepartments(r *http.Request, depts *resource.Collection[models.Department], orgID string) {
	if depts.Scope() == orgID {
		return
	}
	if err := depts.Fetch(r.Context(), orgID); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("organization", orgID).Msg("Failed to fetch departments")
	}
}

// departmentsView is the list of orgID, refetched if another page replaced it
// meanwhile.
func departmentsView(r *http.Request, depts *resource.Collection[models.Department], orgID string) resource.View[models.Department] {
	scopeDepartments(r, depts, orgID)
	return depts.View()
}

// findDepartment returns the local department id if it belongs to orgID.
func findDepartment(depts *resource.Collection[models.Department], orgID, id string) (models.Department, bool) {
	dept, ok := depts.Find(id)
	if !ok || dept.OrganizationID != orgID {
		return models.Department{}, false
	}
	return dept, true
}

func createDepartmentForm(base string, values departmentForm) formState[departmentForm] {
	return formState[departmentForm]{Open: true, Action: base, Values: values}
}

func editDepartmentForm(base, id string, values departmentForm) formState[departmentForm] {
	return formState[departmentForm]{Open: true, Editing: true, Action: base + "/" + id, Values: values}
}

func departmentConfirm(organizationID string, dept models.Department) confirmContent {
	base := departmentsPath(organizationID)
	return confirmContent{
		Name:   dept.Name,
		Action: base + "/" + dept.ID + "/delete",
		Cancel: base,
	}
}
