package workspace

import (
	"sync"

	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/resource"
	"github.com/wolfeidau/organizehub/internal/store"
)

// Table names used by the console.
const (
	TableOrganizations = "organizations"
	TableDepartments   = "departments"
	TableEmployees     = "employees"
)

// EmployeeColumns are the profile columns read for the signed-in employee.
const EmployeeColumns = "id,first_name,last_name,email,phone,role,organization_id,hire_date,is_active"

var (
	organizationsConfig = resource.Config{Table: TableOrganizations, OrderBy: "name"}
	departmentsConfig   = resource.Config{Table: TableDepartments, ScopeColumn: "organization_id", OrderBy: "name"}
	employeeConfig      = resource.Config{Table: TableEmployees, Columns: EmployeeColumns, KeyColumn: "id"}
)

// Workspace holds the resources of one console user. Each browser session
// owns one, so identical data fetched by two sessions is not shared.
type Workspace struct {
	data store.DataClient

	mu            sync.Mutex
	organizations *resource.Collection[models.Organization]
	departments   *resource.Collection[models.Department]
	employee      *resource.Record[models.Employee]
	generation    uint64
}

// New creates a workspace with every resource in its initial state.
func New(data store.DataClient) *Workspace {
	w := &Workspace{data: data}
	w.Reset()
	return w
}

// Reset drops all local state.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.organizations = resource.NewCollection[models.Organization](w.data, organizationsConfig)
	w.departments = resource.NewCollection[models.Department](w.data, departmentsConfig)
	w.employee = resource.NewRecord[models.Employee](w.data, employeeConfig)
	w.generation++
}

// Generation counts resets, starting at 1 for a new workspace.
func (w *Workspace) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

func (w *Workspace) Organizations() *resource.Collection[models.Organization] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.organizations
}

func (w *Workspace) Departments() *resource.Collection[models.Department] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.departments
}

func (w *Workspace) Employee() *resource.Record[models.Employee] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.employee
}
