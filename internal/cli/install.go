package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/sketchpm/internal/engine"
)

var installCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Install a package into the playground",
	Long: `Install a package into the playground workspace.

The workspace and its package.json are created on first use. The package name is
handed to the package manager as-is, so versions and tags work:

  sketchpm install lodash
  sketchpm install left-pad@1.3.0
  sketchpm install @types/node

A package manager that runs but fails (unknown package, network error) is reported
with its error output and exits with status 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	req := engine.InstallRequest{PackageName: args[0]}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	a, err := newApp("warn", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.logger.Sync()
	}()

	if !jsonOutput {
		PrintInfo(dimColor.Sprintf("Installing %s with %s...", req.PackageName, a.engine.PackageManager()))
	}

	result, err := a.engine.InstallPackage(cmd.Context(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else if result.Success {
		PrintSuccess(result.Message)
	} else {
		PrintError(result.Message)
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrFailed, req.PackageName)
	}
	return nil
}
