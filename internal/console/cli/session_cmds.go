package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atlasboard/atlasboard/internal/console/app"
)

func newLogoutCmd(appRef func() *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear all persisted session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appRef().Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(appRef func() *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in principal and active tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appRef()

			p, ok := a.Session.Principal()
			if !ok {
				return fmt.Errorf("not signed in")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", p.DisplayName, p.Email)
			fmt.Fprintf(out, "role: %s (tier %d)\n", p.RoleName, p.RoleTier)

			if t, ok := a.Session.CurrentTenant(); ok {
				fmt.Fprintf(out, "tenant: %s (%s)\n", t.DisplayName, t.ID)
			} else if a.Session.Snapshot().CatalogLoading {
				fmt.Fprintln(out, "tenant: loading")
			} else {
				fmt.Fprintln(out, "tenant: none")
			}
			return nil
		},
	}
}

func newTenantsCmd(appRef func() *app.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List the tenants available to the signed-in principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appRef()

			if _, ok := a.Session.Principal(); !ok {
				return fmt.Errorf("not signed in")
			}

			active, _ := a.Session.CurrentTenant()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\t")
			for _, t := range a.Session.Tenants() {
				marker := ""
				if t.ID == active.ID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", marker, t.ID, t.DisplayName, t.Kind)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use <tenant-id>",
		Short: "Switch the active tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appRef()
			if err := a.Session.SetTenant(cmd.Context(), args[0]); err != nil {
				return err
			}
			t, _ := a.Session.CurrentTenant()
			fmt.Fprintf(cmd.OutOrStdout(), "active tenant: %s (%s)\n", t.DisplayName, t.ID)
			return nil
		},
	})

	return cmd
}
