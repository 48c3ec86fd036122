package schedule

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
)

// errCommandFailed is returned after the failure reply has been printed.
var errCommandFailed = errors.New("schedule command failed")

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Refresh the schedule messages now",
	Long: `Run one schedule check immediately: fetch the portal, update the
schedule message and post the change notification when something moved.

Examples:
  campusbot schedule create`,
	Aliases: []string{"refresh"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Schedule == nil {
			return fmt.Errorf("app not initialized")
		}

		out := cmd.OutOrStdout()
		if err := app.Schedule.Run(cmd.Context()); err != nil {
			fmt.Fprintln(out, "❌ Algo correu mal ao executar o comando.")
			return fmt.Errorf("%w: %w", errCommandFailed, err)
		}
		fmt.Fprintln(out, "✅ Horário atualizado.")
		return nil
	},
}
