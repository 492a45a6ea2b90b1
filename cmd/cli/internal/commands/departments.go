package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/organizehub/internal/models"
)

type DeptsCmd struct {
	List   DeptsListCmd   `cmd:"" default:"withargs" help:"List the departments of an organization"`
	Create DeptsCreateCmd `cmd:"" help:"Create a department"`
	Delete DeptsDeleteCmd `cmd:"" help:"Delete a department"`
}

type DeptsListCmd struct {
	Org string `arg:"" help:"organization id"`
}

func (d *DeptsListCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	depts := s.workspace.Departments()
	if err := depts.Fetch(ctx, d.Org); err != nil {
		return fmt.Errorf("failed to list departments: %w", err)
	}

	items := depts.View().Items
	if len(items) == 0 {
		fmt.Fprintln(globals.out(), "No departments found")
		return nil
	}

	w := globals.table()
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tDESCRIPTION")
	for _, dept := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dept.ID, dept.Name, activeLabel(dept.IsActive), deref(dept.Description))
	}
	return w.Flush()
}

type DeptsCreateCmd struct {
	Org         string `arg:"" help:"organization id"`
	Name        string `required:"" help:"department name"`
	Description string `help:"what the department does"`
	Inactive    bool   `help:"create the department as inactive"`
}

func (d *DeptsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.workspace.Departments().Create(ctx, models.DepartmentInput{
		OrganizationID: d.Org,
		Name:           strings.TrimSpace(d.Name),
		Description:    optional(strings.TrimSpace(d.Description)),
		IsActive:       !d.Inactive,
	})
	if err != nil {
		return describe(err, fmt.Sprintf("department %q", d.Name))
	}

	fmt.Fprintf(globals.out(), "Created department %s (%s)\n", created.Name, created.ID)
	return nil
}

type DeptsDeleteCmd struct {
	Org string `arg:"" help:"organization id"`
	ID  string `arg:"" help:"department id"`
	Yes bool   `short:"y" help:"do not ask for confirmation"`
}

func (d *DeptsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	depts := s.workspace.Departments()
	if err := depts.Fetch(ctx, d.Org); err != nil {
		return fmt.Errorf("failed to load departments: %w", err)
	}
	dept, ok := depts.Find(d.ID)
	if !ok {
		return fmt.Errorf("department %s not found", d.ID)
	}

	if !d.Yes && !confirm(globals.in(), globals.out(), fmt.Sprintf("Delete department %s?", dept.Name)) {
		fmt.Fprintln(globals.out(), "Aborted")
		return nil
	}

	if err := depts.Delete(ctx, d.ID); err != nil {
		return describe(err, fmt.Sprintf("department %s", dept.Name))
	}

	fmt.Fprintf(globals.out(), "Deleted department %s\n", dept.Name)
	return nil
}
