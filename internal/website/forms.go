package website

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/resource"
	"github.com/wolfeidau/organizehub/internal/store"
)

// organizationForm mirrors the organization form fields. Checkboxes post
// "true" when checked and nothing otherwise.
type organizationForm struct {
	Name     string `form:"name" validate:"required"`
	Website  string `form:"website" validate:"omitempty,url"`
	Address  string `form:"address"`
	IsActive bool   `form:"is_active"`
}

func (f organizationForm) input() models.OrganizationInput {
	return models.OrganizationInput{
		Name:     f.Name,
		Website:  optional(f.Website),
		Address:  optional(f.Address),
		IsActive: f.IsActive,
	}
}

func organizationValues(org models.Organization) organizationForm {
	return organizationForm{
		Name:     org.Name,
		Website:  deref(org.Website),
		Address:  deref(org.Address),
		IsActive: org.IsActive,
	}
}

type departmentForm struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
	IsActive    bool   `form:"is_active"`
}

func (f departmentForm) input(organizationID string) models.DepartmentInput {
	return models.DepartmentInput{
		OrganizationID: organizationID,
		Name:           f.Name,
		Description:    optional(f.Description),
		IsActive:       f.IsActive,
	}
}

func departmentValues(dept models.Department) departmentForm {
	return departmentForm{
		Name:        dept.Name,
		Description: deref(dept.Description),
		IsActive:    dept.IsActive,
	}
}

type settingsForm struct {
	FirstName string `form:"first_name" validate:"required"`
	LastName  string `form:"last_name" validate:"required"`
	Phone     string `form:"phone"`
}

func (f settingsForm) update() models.EmployeeUpdate {
	return models.EmployeeUpdate{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Phone:     optional(f.Phone),
	}
}

func settingsValues(e models.Employee) settingsForm {
	return settingsForm{
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Phone:     deref(e.Phone),
	}
}

// formState is the inline create/edit form of a list page. Creating and
// editing are mutually exclusive.
type formState[V any] struct {
	Open    bool
	Editing bool
	Action  string
	Values  V
	Err     string
}

// listContent is the data of a list page.
type listContent[T any, V any] struct {
	View resource.View[T]
	Form formState[V]
	Base string
}

type confirmContent struct {
	Name   string
	Action string
	Cancel string
	Err    string
}

type settingsContent struct {
	View    resource.RecordView[models.Employee]
	Editing bool
	Values  settingsForm
	Updated bool
	Err     string
}

// optional maps an empty form field to a null column.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// mutationStatus picks the status of a page re-rendered after a failed
// submission.
func mutationStatus(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrReference):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNoRows):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
