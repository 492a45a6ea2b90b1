package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/models"
)

type OrgsCmd struct {
	List   OrgsListCmd   `cmd:"" default:"1" help:"List organizations"`
	Create OrgsCreateCmd `cmd:"" help:"Create an organization"`
	Update OrgsUpdateCmd `cmd:"" help:"Update an organization"`
	Delete OrgsDeleteCmd `cmd:"" help:"Delete an organization"`
}

type OrgsListCmd struct{}

func (o *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	orgs := s.workspace.Organizations()
	if err := orgs.Fetch(ctx, ""); err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	items := orgs.View().Items
	if len(items) == 0 {
		fmt.Fprintln(globals.out(), "No organizations found")
		return nil
	}

	w := globals.table()
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tWEBSITE\tADDRESS")
	for _, org := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", org.ID, org.Name, activeLabel(org.IsActive), deref(org.Website), deref(org.Address))
	}
	return w.Flush()
}

type OrgsCreateCmd struct {
	Name     string `required:"" help:"organization name"`
	Website  string `help:"website URL"`
	Address  string `help:"postal address"`
	Inactive bool   `help:"create the organization as inactive"`
}

func (o *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.workspace.Organizations().Create(ctx, models.OrganizationInput{
		Name:     strings.TrimSpace(o.Name),
		Website:  optional(strings.TrimSpace(o.Website)),
		Address:  optional(strings.TrimSpace(o.Address)),
		IsActive: !o.Inactive,
	})
	if err != nil {
		return describe(err, fmt.Sprintf("organization %q", o.Name))
	}

	log.Debug().Str("organization", created.ID).Msg("organization created")
	fmt.Fprintf(globals.out(), "Created organization %s (%s)\n", created.Name, created.ID)
	return nil
}

type OrgsUpdateCmd struct {
	ID         string  `arg:"" help:"organization id"`
	Name       *string `help:"new name"`
	Website    *string `help:"new website URL, empty to clear"`
	Address    *string `help:"new postal address, empty to clear"`
	Activate   bool    `help:"mark the organization active" xor:"status"`
	Deactivate bool    `help:"mark the organization inactive" xor:"status"`
}

func (o *OrgsUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	orgs := s.workspace.Organizations()
	if err := orgs.Fetch(ctx, ""); err != nil {
		return fmt.Errorf("failed to load organizations: %w", err)
	}
	org, ok := orgs.Find(o.ID)
	if !ok {
		return fmt.Errorf("organization %s not found", o.ID)
	}

	updated, err := orgs.Update(ctx, o.ID, o.merge(org))
	if err != nil {
		return describe(err, fmt.Sprintf("organization %s", o.ID))
	}

	fmt.Fprintf(globals.out(), "Updated organization %s (%s)\n", updated.Name, updated.ID)
	return nil
}

// merge applies the flags that were given to the current organization.
func (o *OrgsUpdateCmd) merge(org models.Organization) models.OrganizationInput {
	input := models.OrganizationInput{
		Name:     org.Name,
		Website:  org.Website,
		Address:  org.Address,
		IsActive: org.IsActive,
	}
	if o.Name != nil {
		input.Name = strings.TrimSpace(*o.Name)
	}
	if o.Website != nil {
		input.Website = optional(strings.TrimSpace(*o.Website))
	}
	if o.Address != nil {
		input.Address = optional(strings.TrimSpace(*o.Address))
	}
	switch {
	case o.Activate:
		input.IsActive = true
	case o.Deactivate:
		input.IsActive = false
	}
	return input
}

type OrgsDeleteCmd struct {
	ID  string `arg:"" help:"organization id"`
	Yes bool   `short:"y" help:"do not ask for confirmation"`
}

func (o *OrgsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	orgs := s.workspace.Organizations()
	if err := orgs.Fetch(ctx, ""); err != nil {
		return fmt.Errorf("failed to load organizations: %w", err)
	}
	org, ok := orgs.Find(o.ID)
	if !ok {
		return fmt.Errorf("organization %s not found", o.ID)
	}

	if !o.Yes && !confirm(globals.in(), globals.out(), fmt.Sprintf("Delete organization %s?", org.Name)) {
		fmt.Fprintln(globals.out(), "Aborted")
		return nil
	}

	if err := orgs.Delete(ctx, o.ID); err != nil {
		return describe(err, fmt.Sprintf("organization %s", org.Name))
	}

	fmt.Fprintf(globals.out(), "Deleted organization %s\n", org.Name)
	return nil
}

// confirm asks a yes/no question, anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
