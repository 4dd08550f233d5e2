package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent install attempts",
	Long: `Show install attempts recorded next to the playground, newest first.
Attempts where the package manager could not be started are not recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("warn", nil)
		if err != nil {
			return err
		}

		entries, err := a.engine.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(entries)
		}

		if len(entries) == 0 {
			PrintEmptyState("No installs recorded")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			result := "ok"
			if !e.Success {
				result = "failed"
			}
			rows = append(rows, []string{
				e.StartedAt.Local().Format(time.DateTime),
				e.Package,
				result,
				e.Duration.Round(time.Millisecond).String(),
			})
		}

		PrintSection("Install History")
		PrintTable([]string{"STARTED", "PACKAGE", "RESULT", "DURATION"}, rows)
		PrintInfo("")
		PrintEmptyState(plural(len(entries), "attempt", "attempts"))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
}
