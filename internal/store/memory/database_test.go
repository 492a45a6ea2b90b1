package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
)

func ptr[T any](v T) *T {
	return &v
}

func TestDatabase_InsertAndSelect(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)
	orgs := db.From(TableOrganizations)

	var beta models.Organization
	require.NoError(t, orgs.Insert(ctx, models.OrganizationInput{Name: "Beta", IsActive: true}, &beta))
	require.NotEmpty(t, beta.ID)
	require.False(t, beta.CreatedAt.IsZero())
	require.Nil(t, beta.Website)

	var alpha models.Organization
	require.NoError(t, orgs.Insert(ctx, models.OrganizationInput{Name: "Alpha", Website: ptr("https://alpha.example.com")}, &alpha))

	var listed []models.Organization
	require.NoError(t, orgs.Select(ctx, store.Query{OrderBy: "name"}, &listed))
	require.Len(t, listed, 2)
	require.Equal(t, "Alpha", listed[0].Name)
	require.Equal(t, "https://alpha.example.com", *listed[0].Website)
	require.Equal(t, "Beta", listed[1].Name)

	var active []models.Organization
	require.NoError(t, orgs.Select(ctx, store.Query{Filters: []store.Filter{store.Eq("is_active", "true")}}, &active))
	require.Len(t, active, 1)
	require.Equal(t, beta.ID, active[0].ID)
}

func TestDatabase_SelectColumns(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase()

	require.NoError(t, db.From("notes").Insert(ctx, map[string]any{"id": "n1", "title": "hello", "body": "world"}, nil))

	var got []map[string]any
	require.NoError(t, db.From("notes").Select(ctx, store.Query{Columns: "id, title"}, &got))
	require.Equal(t, []map[string]any{{"id": "n1", "title": "hello"}}, got)
}

func TestDatabase_SelectSingle(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)

	var org models.Organization
	err := db.From(TableOrganizations).SelectSingle(ctx, store.Query{Filters: []store.Filter{store.Eq("id", "missing")}}, &org)
	require.ErrorIs(t, err, store.ErrNoRows)
}

func TestDatabase_UniqueConstraint(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)
	orgs := db.From(TableOrganizations)

	require.NoError(t, orgs.Insert(ctx, models.OrganizationInput{Name: "Acme"}, nil))

	err := orgs.Insert(ctx, models.OrganizationInput{Name: "Acme"}, nil)
	require.ErrorIs(t, err, store.ErrConflict)
	require.EqualError(t, err, `duplicate key value violates unique constraint "organizations_name_key"`)
	require.Equal(t, 1, db.Count(TableOrganizations))

	var other models.Organization
	require.NoError(t, orgs.Insert(ctx, models.OrganizationInput{Name: "Other"}, &other))

	err = orgs.Update(ctx, []store.Filter{store.Eq("id", other.ID)}, models.OrganizationInput{Name: "Acme"}, &other)
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestDatabase_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)

	err := db.From(TableDepartments).Insert(ctx, models.DepartmentInput{OrganizationID: "nope", Name: "Sales"}, nil)
	require.ErrorIs(t, err, store.ErrReference)
	require.Equal(t, 0, db.Count(TableDepartments))

	var org models.Organization
	require.NoError(t, db.From(TableOrganizations).Insert(ctx, models.OrganizationInput{Name: "Acme"}, &org))

	var dept models.Department
	require.NoError(t, db.From(TableDepartments).Insert(ctx, models.DepartmentInput{OrganizationID: org.ID, Name: "Sales"}, &dept))
	require.Equal(t, org.ID, dept.OrganizationID)

	byID := []store.Filter{store.Eq("id", org.ID)}
	err = db.From(TableOrganizations).Delete(ctx, byID)
	require.ErrorIs(t, err, store.ErrReference)
	require.Equal(t, 1, db.Count(TableOrganizations))

	require.NoError(t, db.From(TableDepartments).Delete(ctx, []store.Filter{store.Eq("id", dept.ID)}))
	require.NoError(t, db.From(TableOrganizations).Delete(ctx, byID))
	require.Equal(t, 0, db.Count(TableOrganizations))
}

func TestDatabase_Update(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)
	orgs := db.From(TableOrganizations)

	var org models.Organization
	require.NoError(t, orgs.Insert(ctx, models.OrganizationInput{Name: "Acme", Website: ptr("https://acme.example.com"), IsActive: true}, &org))

	var updated models.Organization
	err := orgs.Update(ctx, []store.Filter{store.Eq("id", org.ID)}, models.OrganizationInput{Name: "Acme Ltd"}, &updated)
	require.NoError(t, err)
	require.Equal(t, org.ID, updated.ID)
	require.Equal(t, "Acme Ltd", updated.Name)
	require.Nil(t, updated.Website)
	require.False(t, updated.IsActive)
	require.Equal(t, org.CreatedAt, updated.CreatedAt)

	err = orgs.Update(ctx, []store.Filter{store.Eq("id", "missing")}, models.OrganizationInput{Name: "x"}, &updated)
	require.ErrorIs(t, err, store.ErrNoRows)
}

func TestDatabase_BatchInsert(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(Schema()...)

	var orgs []models.Organization
	err := db.From(TableOrganizations).Insert(ctx, []models.OrganizationInput{{Name: "A"}, {Name: "B"}}, &orgs)
	require.NoError(t, err)
	require.Len(t, orgs, 2)

	err = db.From(TableOrganizations).Insert(ctx, []models.OrganizationInput{{Name: "C"}, {Name: "C"}}, nil)
	require.ErrorIs(t, err, store.ErrConflict)
	require.Equal(t, 2, db.Count(TableOrganizations))
}
