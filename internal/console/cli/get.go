package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlasboard/atlasboard/internal/console/app"
	"github.com/atlasboard/atlasboard/pkg/consolesdk"
)

// newGetCmd issues an arbitrary authenticated GET against the backend,
// going through the token-refreshing transport like any dashboard page
// would.
func newGetCmd(appRef func() *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Perform an authenticated GET against the backend API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appRef()

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			req, err := http.NewRequestWithContext(
				cmd.Context(), http.MethodGet, a.Cfg.APIBaseURL+path, nil)
			if err != nil {
				return err
			}

			resp, err := a.Client.API.Do(req)
			if err != nil {
				if consolesdk.IsSessionExpired(err) {
					return fmt.Errorf("session expired, sign in again")
				}
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			if resp.StatusCode >= 400 {
				return fmt.Errorf("GET %s: %s", path, resp.Status)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, body, "", "  "); err != nil {
				// Not JSON; print raw.
				cmd.OutOrStdout().Write(body)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return nil
		},
	}
}
