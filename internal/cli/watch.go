package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/sketchpm/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print installed packages whenever they change",
	Long: `Watch the playground's package.json and print the installed packages every
time the list changes, until interrupted. Rewrites that leave the file unchanged
are ignored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("warn", nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.logger.Sync()
		}()

		paths, err := a.engine.Paths()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !jsonOutput {
			PrintEmptyState("Watching " + paths.Playground + " (Ctrl-C to stop)")
		}

		// The first snapshot comes from the watcher's own baseline.
		w := watch.New(paths, a.engine, func(ev watch.Event) {
			printPackages(ev.Packages, ev.Time)
		}, watch.WithDebounce(watchDebounce), watch.WithLogger(a.logger), watch.WithInitialSnapshot())
		return w.Run(ctx)
	},
}

// printPackages prints one snapshot of the package list. In JSON mode each
// snapshot is a single line so the output can be consumed as a stream.
func printPackages(names []string, at time.Time) {
	if jsonOutput {
		_ = outputJSONLine(struct {
			Time     time.Time `json:"time"`
			Packages []string  `json:"packages"`
		}{at, names})
		return
	}

	PrintSection("Installed Packages (" + at.Format(time.TimeOnly) + ")")
	if len(names) == 0 {
		PrintEmptyState("No packages installed")
		return
	}
	PrintList(names, 1)
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "How long to wait for file events to settle")
}
