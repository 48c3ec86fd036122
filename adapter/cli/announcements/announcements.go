package announcements

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
)

// Cmd is the announcements command group
var Cmd = &cobra.Command{
	Use:   "announcements",
	Short: "Control the announcements watcher",
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the news feed now",
	Long: `Fetch the news listing once, post anything not seen before and
record it in the state store.

Examples:
  campusbot announcements check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		out := cmd.OutOrStdout()
		if app.Announcements == nil {
			fmt.Fprintln(out, "ℹ️ O monitor de anúncios está desativado.")
			return nil
		}

		result, err := app.Announcements.Check(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, "❌ Algo correu mal ao executar o comando.")
			return err
		}

		switch {
		case result.New == 0:
			fmt.Fprintf(out, "ℹ️ Sem anúncios novos (%d verificados).\n", result.Fetched)
		case result.Posted:
			fmt.Fprintf(out, "✅ %d anúncio(s) publicado(s).\n", result.New)
		default:
			fmt.Fprintf(out, "⚠️ %d anúncio(s) novo(s) registado(s), mas o canal não foi encontrado.\n", result.New)
		}
		return nil
	},
}

func init() {
	Cmd.AddCommand(checkCmd)
}
