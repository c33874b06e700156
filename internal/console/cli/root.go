// Package cli implements the atlasctl commands. The CLI is a thin consumer
// of the session core: every command goes through the session manager's
// collaborator surface and the authenticated API client, the same way the
// dashboard UI does.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasboard/atlasboard/internal/console/app"
)

// Execute builds the command tree and runs it.
func Execute() error {
	var application *app.Application

	root := &cobra.Command{
		Use:           "atlasctl",
		Short:         "AtlasBoard console client",
		Long:          "atlasctl signs in to the AtlasBoard backend, manages the active tenant and issues authenticated API calls.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			application, err = app.New(cfg)
			if err != nil {
				return err
			}
			// Restore any persisted session before the command runs.
			application.Session.Resume(cmd.Context())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application == nil {
				return nil
			}
			return application.Close()
		},
	}

	appRef := func() *app.Application { return application }

	root.AddCommand(
		newLoginCmd(appRef),
		newLogoutCmd(appRef),
		newWhoamiCmd(appRef),
		newTenantsCmd(appRef),
		newGetCmd(appRef),
	)

	if err := root.Execute(); err != nil {
		return fmt.Errorf("atlasctl: %w", err)
	}
	return nil
}
