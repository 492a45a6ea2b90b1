package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/organizehub/internal/models"
)

type ProfileCmd struct {
	Show   ProfileShowCmd   `cmd:"" default:"1" help:"Show your employee profile"`
	Update ProfileUpdateCmd `cmd:"" help:"Update your name or phone number"`
}

type ProfileShowCmd struct{}

func (p *ProfileShowCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	employee, err := s.employee(ctx)
	if err != nil {
		return err
	}

	printProfile(globals, employee)
	return nil
}

type ProfileUpdateCmd struct {
	FirstName *string `help:"first name"`
	LastName  *string `help:"last name"`
	Phone     *string `help:"phone number, empty to clear"`
}

func (p *ProfileUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	employee, err := s.employee(ctx)
	if err != nil {
		return err
	}

	update := models.EmployeeUpdate{
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Phone:     employee.Phone,
	}
	if p.FirstName != nil {
		update.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		update.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Phone != nil {
		update.Phone = optional(strings.TrimSpace(*p.Phone))
	}
	if update.FirstName == "" || update.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}

	updated, err := s.workspace.Employee().Update(ctx, update)
	if err != nil {
		return describe(err, "profile")
	}

	fmt.Fprintln(globals.out(), "Profile updated successfully!")
	printProfile(globals, updated)
	return nil
}

// employee loads the profile of the signed-in user.
func (s *session) employee(ctx context.Context) (*models.Employee, error) {
	user, err := s.user()
	if err != nil {
		return nil, err
	}

	record := s.workspace.Employee()
	if err := record.Fetch(ctx, user.ID); err != nil {
		return nil, describe(err, "employee profile")
	}

	employee := record.View().Record
	if employee == nil {
		return nil, fmt.Errorf("failed to load employee data")
	}
	return employee, nil
}

func printProfile(globals *Globals, e *models.Employee) {
	phone := deref(e.Phone)
	if phone == "" {
		phone = "Not provided"
	}

	w := globals.table()
	fmt.Fprintf(w, "Name:\t%s\n", e.FullName())
	fmt.Fprintf(w, "Email:\t%s\n", e.Email)
	fmt.Fprintf(w, "Phone:\t%s\n", phone)
	fmt.Fprintf(w, "Role:\t%s\n", e.RoleLabel())
	fmt.Fprintf(w, "Hire date:\t%s\n", e.HireDate)
	_ = w.Flush()
}
