package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulekit/rulekit/pkg/config"
)

func newRecordsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records [dir-or-file...]",
		Short: "Show CUE config records",
		Long: `Load read-only config records from .cue files and print each one as a
container. Without arguments the records directory of the configuration is
used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := args
			if len(sources) == 0 {
				cfg, err := config.LoadAppConfig(opts.configFile())
				if err != nil {
					return err
				}
				sources = []string{cfg.RecordsDir}
			}

			set, err := config.NewRecordLoader().Load(sources...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range set.Records {
				c, err := r.Container()
				if err != nil {
					return err
				}
				s, err := c.GetString()
				if err != nil {
					return fmt.Errorf("record %s: %w", r.Name, err)
				}
				fmt.Fprintf(out, "# %s (%s)\n", r.Name, r.Source)
				fmt.Fprint(out, s)
				if s != "" && !strings.HasSuffix(s, "\n") {
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}

	return cmd
}
