package commands

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rulekit/rulekit/pkg/data"
	"github.com/rulekit/rulekit/pkg/rules"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var (
		input     string
		inputFile string
		entities  map[string]string
		configs   map[string]string
		only      []string
	)

	cmd := &cobra.Command{
		Use:   "run [rules-file]",
		Short: "Run rules against input data",
		Long: `Run the rules of a rule file against a container built from user input.

Stored entities and config objects can be bound into the container by name;
data_save actions persist them in one transaction. Without an argument the
rule file from the configuration is used.`,
		Example: `  # Run the configured rules against inline input
  rulekit run --input "status: draft, title: Hello"

  # Bind a stored entity as "article"
  rulekit run rules.yaml --entity article=6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			path := ws.cfg.Rules.File
			if len(args) == 1 {
				path = args[0]
			}
			op := ws.operation(ctx, "rules.run", attribute.String("rules.file", path))
			defer func() { op.End(err) }()
			ctx = op.Ctx

			rf, err := rules.LoadFile(path)
			if err != nil {
				return err
			}
			if len(only) > 0 {
				filtered := make([]rules.Rule, 0, len(only))
				for _, name := range only {
					r, ok := rf.Rule(name)
					if !ok {
						return fmt.Errorf("rule %s not found in %s", name, path)
					}
					filtered = append(filtered, *r)
				}
				rf.Rules = filtered
			}

			text := input
			if inputFile != "" {
				raw, err := os.ReadFile(inputFile)
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				text = string(raw)
			}

			state := data.FromUserInput(text, ws.containerOptions()...)
			for _, name := range slices.Sorted(maps.Keys(entities)) {
				e, err := ws.store.LoadEntity(ctx, entities[name])
				if err != nil {
					return err
				}
				if err := state.Set(data.Name(name), e); err != nil {
					return err
				}
			}
			for _, name := range slices.Sorted(maps.Keys(configs)) {
				c, err := ws.store.LoadConfigObject(ctx, configs[name])
				if err != nil {
					return err
				}
				if err := state.Set(data.Name(name), c); err != nil {
					return err
				}
			}

			engineOpts := []rules.Option{
				rules.WithLogger(ws.logger),
				rules.WithMetrics(ws.tel.Metrics),
				rules.WithTracer(ws.tel.Tracer.Named("github.com/rulekit/rulekit/pkg/rules")),
				rules.WithScriptTimeout(ws.cfg.Rules.ScriptTimeout),
			}
			if ws.cfg.Rules.RecordRuns {
				engineOpts = append(engineOpts, rules.WithRunRecorder(ws.store))
			}

			out := cmd.OutOrStdout()
			outcomes, runErr := rules.NewEngine(engineOpts...).ExecuteAll(ctx, rf, state)
			for _, o := range outcomes {
				status := "ran"
				if o.Skipped {
					status = "skipped"
				}
				fmt.Fprintf(out, "%-20s %s actions=%d run=%s\n", o.Rule, padStatus(status, 8), o.ActionsRun, o.RunID)
				op.Logger.WithRule(o.Rule).WithRunID(o.RunID).WithField("status", status).Debug("Rule finished")
			}
			if runErr != nil {
				return runErr
			}

			s, err := state.GetString()
			if err != nil {
				return fmt.Errorf("failed to render result: %w", err)
			}
			fmt.Fprintln(out, "---")
			fmt.Fprint(out, s)
			if s != "" && !strings.HasSuffix(s, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input text")
	cmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "read input text from a file")
	cmd.Flags().StringToStringVarP(&entities, "entity", "e", nil, "bind a stored entity (name=uuid)")
	cmd.Flags().StringToStringVar(&configs, "config-object", nil, "bind a stored config object (name=config-name)")
	cmd.Flags().StringSliceVar(&only, "rule", nil, "run only the named rules")

	return cmd
}
