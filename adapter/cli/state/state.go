package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
)

// Cmd is the state command group
var Cmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the persisted state",
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted state as JSON",
	Long: `Print the record shared by the watchers exactly as the file backend
would store it, including keys owned by other features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Store == nil {
			return fmt.Errorf("app not initialized")
		}

		st, err := app.Store.Read(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read state: %w", err)
		}
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		pretty.WriteByte('\n')
		_, err = cmd.OutOrStdout().Write(pretty.Bytes())
		return err
	},
}

func init() {
	Cmd.AddCommand(showCmd)
}
