package cli

import (
	"github.com/spf13/cobra"
)

var listLong bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List the dependencies recorded in the playground's package.json, in the
order the package manager wrote them. With --long, the version spec of each
package is shown as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("warn", nil)
		if err != nil {
			return err
		}

		if listLong {
			return listDependencies(cmd, a)
		}

		names, err := a.engine.ListInstalled(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(names)
		}

		if len(names) == 0 {
			PrintEmptyState("No packages installed")
			return nil
		}

		PrintSection("Installed Packages")
		PrintList(names, 1)
		return nil
	},
}

func listDependencies(cmd *cobra.Command, a *app) error {
	deps, err := a.engine.ListDependencies(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(deps)
	}

	if len(deps) == 0 {
		PrintEmptyState("No packages installed")
		return nil
	}

	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		pinned := ""
		if d.Exact {
			pinned = "yes"
		}
		rows = append(rows, []string{d.Name, d.Spec, pinned})
	}

	PrintSection("Installed Packages")
	PrintTable([]string{"PACKAGE", "SPEC", "PINNED"}, rows)
	return nil
}

func init() {
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show version specs")
}
