package schedule

import (
	"github.com/spf13/cobra"
)

// Cmd is the schedule command group
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Control the schedule messages",
	Long:  `Refresh the weekly schedule message, clear the change notification or inspect the stored snapshot.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(showCmd)
}
