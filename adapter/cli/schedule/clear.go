package schedule

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
	scheduleApp "github.com/felixgeelhaar/campusbot/internal/schedule/application"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the recent changes message",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Schedule == nil {
			return fmt.Errorf("app not initialized")
		}

		out := cmd.OutOrStdout()
		outcome, err := app.Schedule.ClearChangeMessage(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, "❌ Algo correu mal ao executar o comando.")
			return fmt.Errorf("%w: %w", errCommandFailed, err)
		}

		switch outcome {
		case scheduleApp.ClearNoChannel:
			fmt.Fprintln(out, "❌ Não consegui encontrar o canal configurado para o horário.")
		case scheduleApp.ClearNothing:
			fmt.Fprintln(out, "ℹ️ Não existe mensagem de alterações para limpar.")
		default:
			fmt.Fprintln(out, "✅ Mensagem de alterações do horário removida.")
		}
		return nil
	},
}
