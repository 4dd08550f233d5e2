package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ErrFailed is returned when a command already reported its failure to the
// user and only the exit status is left to set.
var ErrFailed = errors.New("command failed")

var (
	// Global flags
	jsonOutput bool
	configPath string

	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// Command groups shown in help, in display order.
var commandGroups = []*cobra.Group{
	{ID: "packages", Title: "Packages:"},
	{ID: "service", Title: "Service:"},
	{ID: "cli-tooling", Title: "CLI & Tooling:"},
}

var rootCmd = &cobra.Command{
	Use:     "sketchpm",
	Version: "dev",
	Short:   "Package installer for the sketch playground",
	Long: `sketchpm installs npm packages into a private playground workspace.

The playground lives in the application data directory and is created on first
use. Installed packages are read back from its package.json in the order the
package manager recorded them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version reported by --version and the version command.
// An empty string keeps the current one.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// helpFunc renders help with commands listed under colored group titles.
func helpFunc(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()

	if cmd.Long != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", cmd.Long)
	}
	_, _ = sectionTitleColor.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintf(w, "  %s\n\n", cmd.UseLine())

	width := 0
	for _, c := range cmd.Commands() {
		width = max(width, len(c.Name()))
	}
	for _, group := range cmd.Groups() {
		printCommandGroup(w, groupTitleColor.Sprint(group.Title), cmd.Commands(), group.ID, width)
	}
	printCommandGroup(w, sectionTitleColor.Sprint("Additional Commands:"), cmd.Commands(), "", width)

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailableInheritedFlags() {
		_, _ = sectionTitleColor.Fprintln(w, "Flags:")
		_, _ = fmt.Fprint(w, cmd.LocalFlags().FlagUsages())
		_, _ = fmt.Fprint(w, cmd.InheritedFlags().FlagUsages())
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
}

// printCommandGroup lists the visible commands in groupID. Nothing is printed
// for an empty group.
func printCommandGroup(w io.Writer, title string, cmds []*cobra.Command, groupID string, width int) {
	var visible []*cobra.Command
	for _, c := range cmds {
		if c.GroupID == groupID && !c.Hidden {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		return
	}

	_, _ = fmt.Fprintln(w, title)
	for _, c := range visible {
		_, _ = fmt.Fprintf(w, "  %-*s %s\n", width, c.Name(), c.Short)
	}
	_, _ = fmt.Fprintln(w)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the sketchpm CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
}

func newHelpCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _, err := rootCmd.Find(args)
			if err != nil {
				return err
			}
			return target.Help()
		},
	}
}

// completionShells maps each supported shell to its script generator.
var completionShells = []struct {
	name string
	gen  func(io.Writer) error
}{
	{"bash", func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) }},
	{"zsh", func(w io.Writer) error { return rootCmd.GenZshCompletion(w) }},
	{"fish", func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) }},
	{"powershell", func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) }},
}

func newCompletionCmd() *cobra.Command {
	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for sketchpm for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}
	for _, shell := range completionShells {
		gen := shell.gen
		completionCmd.AddCommand(&cobra.Command{
			Use:                   shell.name,
			Short:                 "Generate the autocompletion script for " + shell.name,
			Args:                  cobra.NoArgs,
			DisableFlagsInUseLine: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return gen(os.Stdout)
			},
		})
	}
	return completionCmd
}

func init() {
	rootCmd.SetHelpFunc(helpFunc)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir/sketchpm/config.yaml)")

	rootCmd.AddGroup(commandGroups...)

	for group, cmds := range map[string][]*cobra.Command{
		"packages": {installCmd, listCmd, historyCmd},
		"service":  {serveCmd, watchCmd},
	} {
		for _, c := range cmds {
			c.GroupID = group
			rootCmd.AddCommand(c)
		}
	}

	rootCmd.AddCommand(newVersionCmd(), newCompletionCmd())
	rootCmd.SetHelpCommand(newHelpCmd())
}
