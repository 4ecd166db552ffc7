package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulekit/rulekit/pkg/data"
)

func newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse user input into a container",
		Long: `Parse text the way user input is read: multi-line text as YAML when it is
valid, anything else as "key: value" pairs separated by commas or newlines.

Prints the tagged property tree followed by the container's string form.`,
		Example: `  rulekit parse "title: Hello, tags: go"
  rulekit parse "$(cat input.yaml)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := data.FromUserInput(strings.Join(args, " "))
			out := cmd.OutOrStdout()

			printTree(out, c, 0)

			s, err := c.GetString()
			if err != nil {
				return fmt.Errorf("failed to render container: %w", err)
			}
			fmt.Fprintln(out, "---")
			fmt.Fprint(out, s)
			if s != "" && !strings.HasSuffix(s, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	return cmd
}
