package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"golang.org/x/oauth2"
)

// AnonKey is the public key handed out by the development backend.
const AnonKey = "memory-anon-key"

// Table names of the console schema.
const (
	TableOrganizations = "organizations"
	TableDepartments   = "departments"
	TableEmployees     = "employees"
)

// Schema returns the console tables with their constraints.
func Schema() []TableSpec {
	return []TableSpec{
		{Name: TableOrganizations, Unique: []string{"name"}},
		{
			Name:       TableDepartments,
			References: []Reference{{Column: "organization_id", Table: TableOrganizations}},
		},
		{
			Name:       TableEmployees,
			References: []Reference{{Column: "organization_id", Table: TableOrganizations}},
		},
	}
}

// Backend implements store.Backend with a Database and a Directory. Data
// calls are subject to a row policy: the anonymous role sees nothing and an
// employee row is only visible to the user with the same id.
type Backend struct {
	DB  *Database
	Dir *Directory
}

var _ store.Backend = (*Backend)(nil)

// NewBackend creates a backend with the console schema.
func NewBackend(opts ...DirectoryOption) *Backend {
	return &Backend{
		DB:  NewDatabase(Schema()...),
		Dir: NewDirectory(opts...),
	}
}

func (b *Backend) Auth(storage store.SessionStorage) store.AuthProvider {
	return &Auth{
		dir:       b.Dir,
		storage:   storage,
		anonKey:   AnonKey,
		listeners: make(map[int]store.AuthListener),
	}
}

func (b *Backend) Data(tokens oauth2.TokenSource) store.DataClient {
	return &policyClient{backend: b, tokens: tokens}
}

type policyClient struct {
	backend *Backend
	tokens  oauth2.TokenSource
}

func (p *policyClient) From(name string) store.Table {
	return &policyTable{client: p, name: name, table: p.backend.DB.From(name)}
}

type policyTable struct {
	client *policyClient
	name   string
	table  store.Table
}

// scope authenticates the caller and narrows filters to the rows it may see.
func (t *policyTable) scope(filters []store.Filter) ([]store.Filter, error) {
	if t.client.tokens == nil {
		return nil, store.ErrNotAuthenticated
	}

	token, err := t.client.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	user, err := t.client.backend.Dir.Authenticate(token.AccessToken)
	if err != nil {
		return nil, err
	}

	if t.name == TableEmployees {
		filters = append(append([]store.Filter(nil), filters...), store.Eq("id", user.ID))
	}
	return filters, nil
}

func (t *policyTable) Select(ctx context.Context, q store.Query, dst any) error {
	filters, err := t.scope(q.Filters)
	if err != nil {
		return err
	}
	q.Filters = filters
	return t.table.Select(ctx, q, dst)
}

func (t *policyTable) SelectSingle(ctx context.Context, q store.Query, dst any) error {
	filters, err := t.scope(q.Filters)
	if err != nil {
		return err
	}
	q.Filters = filters
	return t.table.SelectSingle(ctx, q, dst)
}

func (t *policyTable) Insert(ctx context.Context, rows any, dst any) error {
	if _, err := t.scope(nil); err != nil {
		return err
	}
	return t.table.Insert(ctx, rows, dst)
}

func (t *policyTable) Update(ctx context.Context, filters []store.Filter, patch any, dst any) error {
	filters, err := t.scope(filters)
	if err != nil {
		return err
	}
	return t.table.Update(ctx, filters, patch, dst)
}

func (t *policyTable) Delete(ctx context.Context, filters []store.Filter) error {
	filters, err := t.scope(filters)
	if err != nil {
		return err
	}
	return t.table.Delete(ctx, filters)
}

// Demo credentials provisioned by SeedDemo.
const (
	DemoEmail    = "demo@organizehub.dev"
	DemoPassword = "organizehub"
)

// SeedDemo provisions a demo user with an employee profile, an organization
// and two departments.
func SeedDemo(ctx context.Context, b *Backend) (models.User, error) {
	user, err := b.Dir.Register(DemoEmail, DemoPassword)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to register demo user: %w", err)
	}

	var org models.Organization
	website := "https://acme.example.com"
	err = b.DB.From(TableOrganizations).Insert(ctx, models.OrganizationInput{
		Name:     "Acme Corporation",
		Website:  &website,
		IsActive: true,
	}, &org)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to seed organization: %w", err)
	}

	description := "Revenue and partnerships"
	err = b.DB.From(TableDepartments).Insert(ctx, []models.DepartmentInput{
		{OrganizationID: org.ID, Name: "Sales", Description: &description, IsActive: true},
		{OrganizationID: org.ID, Name: "Support", IsActive: false},
	}, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to seed departments: %w", err)
	}

	err = b.DB.From(TableEmployees).Insert(ctx, models.Employee{
		ID:             user.ID,
		FirstName:      "Demo",
		LastName:       "User",
		Email:          user.Email,
		Role:           "admin",
		OrganizationID: org.ID,
		HireDate:       models.NewDate(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)),
		IsActive:       true,
	}, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to seed employee: %w", err)
	}

	return user, nil
}
