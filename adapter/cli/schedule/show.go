package schedule

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/schedule/render"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored schedule snapshot",
	Long: `Print the schedule snapshot kept in the state store, grouped by day,
together with the message IDs and sync timestamps.

Examples:
  campusbot schedule show
  campusbot schedule show --verbose`,
	Aliases: []string{"view"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Schedule == nil {
			return fmt.Errorf("app not initialized")
		}

		snapshot, err := app.Schedule.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read schedule state: %w", err)
		}

		formatter := app.Formatter
		if formatter == nil {
			formatter = render.NewFormatter(time.UTC)
		}
		printSnapshot(cmd.OutOrStdout(), formatter, snapshot, cli.Verbose())
		return nil
	},
}

func printSnapshot(out io.Writer, f *render.Formatter, s domain.ScheduleState, verbose bool) {
	fmt.Fprintln(out, "Horário semanal")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	if len(s.Entries) == 0 {
		fmt.Fprintln(out, "\n  Sem aulas guardadas.")
	}
	for _, group := range f.GroupByDay(s.Entries) {
		fmt.Fprintf(out, "\n%s\n", group.Label)
		for _, e := range group.Entries {
			fmt.Fprintf(out, "  %-14s %s\n", e.Time, e.Title)
			if verbose {
				fmt.Fprintf(out, "  %-14s %s | %s\n", "", orDash(e.Location), orDash(e.Lecturer))
			}
		}
	}

	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Aulas: %d | Hash: %s\n", len(s.Entries), orDash(s.Hash))
	fmt.Fprintf(out, "Mensagem: %s | Alterações: %s\n", orDash(s.MessageID), orDash(s.ChangeMessageID))
	fmt.Fprintf(out, "Última tentativa: %s | Último sucesso: %s\n", stamp(f, s.LastAttemptAt), stamp(f, s.LastSuccessAt))
}

func stamp(f *render.Formatter, t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.In(f.Location()).Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
