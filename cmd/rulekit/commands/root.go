package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	verbose    bool
	noColor    bool
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "rulekit",
		Short: "rulekit - rules over dynamic typed data",
		Long: `rulekit runs declarative rules against dynamic typed containers.

Containers hold scalars, lists, maps and references to stored entities and
config objects. Rules read them through Rego conditions, change them with
actions and Starlark scripts, and persist every referenced record in one
transaction.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ./"+defaultConfigName+")")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newInitCommand(opts))
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newEntityCommand(opts))
	rootCmd.AddCommand(newRecordsCommand(opts))
	rootCmd.AddCommand(newRunsCommand(opts))

	return rootCmd
}
