package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/atlasboard/atlasboard/internal/console/app"
	"github.com/atlasboard/atlasboard/pkg/consolesdk"
)

func newLoginCmd(appRef func() *app.Application) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appRef()
			email := args[0]

			password, err := readPassword(passwordStdin)
			if err != nil {
				return err
			}

			if err := a.Session.Login(cmd.Context(), email, password); err != nil {
				if consolesdk.IsInvalidCredentials(err) {
					return fmt.Errorf("invalid email or password")
				}
				return err
			}

			snap := a.Session.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", email)
			if snap.ActiveTenant != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "active tenant: %s (%s)\n",
					snap.ActiveTenant.DisplayName, snap.ActiveTenant.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false,
		"read the password from stdin instead of prompting")

	return cmd
}

func readPassword(fromStdin bool) (string, error) {
	if fromStdin {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
