package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/rulekit/rulekit/pkg/data"
	"github.com/rulekit/rulekit/pkg/stores"
	"github.com/rulekit/rulekit/pkg/telemetry"
)

func newEntityCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage stored entities",
	}

	cmd.AddCommand(newEntityCreateCommand(opts))
	cmd.AddCommand(newEntityListCommand(opts))
	cmd.AddCommand(newEntityShowCommand(opts))
	cmd.AddCommand(newEntityDiffCommand(opts))
	cmd.AddCommand(newEntityDeleteCommand(opts))

	return cmd
}

func newEntityCreateCommand(opts *globalOptions) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:     "create <type> <fields>",
		Short:   "Create an entity from user input",
		Example: `  rulekit entity create article "title: Hello, status: draft"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			op := ws.operation(ctx, "entity.create", telemetry.AttrEntityType.String(args[0]))
			defer func() { op.End(err) }()
			ctx = op.Ctx

			input := data.FromUserInput(strings.Join(args[1:], " "))
			e := ws.store.NewEntity(args[0], language)
			view, err := data.FromResource(e, ws.containerOptions()...)
			if err != nil {
				return err
			}
			for k, n := range input.All() {
				if k.IsIndex() {
					return fmt.Errorf("entity fields need names, got list item %s", k)
				}
				if err := view.Set(k, n.Unwrap()); err != nil {
					return fmt.Errorf("field %s: %w", k, err)
				}
			}
			if err := view.SaveData(ctx); err != nil {
				return err
			}
			op.Logger.WithEntity(e.Type, e.UUID).Info("Entity created")

			fmt.Fprintln(cmd.OutOrStdout(), e.UUID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", "", "language code")

	return cmd
}

func newEntityListCommand(opts *globalOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list [type]",
		Short: "List entities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			entityType := ""
			if len(args) == 1 {
				entityType = args[0]
			}
			entities, err := ws.store.ListEntities(ctx, entityType, limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tTYPE\tID\tREVISION\tLANGUAGE\tFIELDS")
			for _, e := range entities {
				names := make([]string, 0, len(e.Fields()))
				for _, f := range e.Fields() {
					names = append(names, f.Name)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", e.UUID, e.Type, e.ID, e.Revision, e.Language, strings.Join(names, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entities")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entities to skip")

	return cmd
}

func newEntityShowCommand(opts *globalOptions) *cobra.Command {
	var revisions bool

	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			e, err := ws.store.LoadEntity(ctx, args[0])
			if err != nil {
				return err
			}
			view, err := data.FromResource(e)
			if err != nil {
				return err
			}
			s, err := view.GetString()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, s)

			if !revisions {
				return nil
			}
			revs, err := ws.store.ListEntityRevisions(ctx, e.UUID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "---")
			for _, r := range revs {
				fmt.Fprintf(out, "revision %d (%s): %s\n", r.Revision, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Fields)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&revisions, "revisions", false, "also list saved revisions")

	return cmd
}

func newEntityDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>...",
		Short: "Delete entities in one transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			op := ws.operation(ctx, "entity.delete", telemetry.AttrResources.Int(len(args)))
			defer func() { op.End(err) }()
			ctx = op.Ctx

			c := data.New(ws.containerOptions()...)
			for _, id := range args {
				e, err := ws.store.LoadEntity(ctx, id)
				if err != nil {
					return err
				}
				if _, err := c.Push(e); err != nil {
					return err
				}
			}
			if err := c.DeleteData(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entities\n", len(args))
			return nil
		},
	}
}

// revisionFields adapts the fields of a saved revision to data.Structured.
type revisionFields []data.Property

func (f revisionFields) Properties() []data.Property {
	return f
}

func newEntityDiffCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <uuid> [from] [to]",
		Short: "Show how an entity changed between two revisions",
		Long: `Show a line diff of two saved revisions of an entity.

Without revision numbers the last two revisions are compared. With one, that
revision is compared with the latest.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.close(ctx)

			revs, err := ws.store.ListEntityRevisions(ctx, args[0])
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				return fmt.Errorf("entity %s has no revisions", args[0])
			}

			byNumber := make(map[int64]*stores.EntityRevision, len(revs))
			for _, r := range revs {
				byNumber[r.Revision] = r
			}
			pick := func(arg string) (*stores.EntityRevision, error) {
				n, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid revision %q: %w", arg, err)
				}
				r, ok := byNumber[n]
				if !ok {
					return nil, fmt.Errorf("entity %s has no revision %d", args[0], n)
				}
				return r, nil
			}

			to := revs[len(revs)-1]
			from := to
			if len(revs) > 1 {
				from = revs[len(revs)-2]
			}
			if len(args) > 1 {
				if from, err = pick(args[1]); err != nil {
					return err
				}
			}
			if len(args) > 2 {
				if to, err = pick(args[2]); err != nil {
					return err
				}
			}

			before, err := renderRevision(from)
			if err != nil {
				return err
			}
			after, err := renderRevision(to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			titleStyle.Fprintf(out, "--- revision %d\n+++ revision %d\n", from.Revision, to.Revision)
			writeLineDiff(out, before, after)
			return nil
		},
	}
}

func renderRevision(r *stores.EntityRevision) (string, error) {
	fields, err := r.DecodeFields()
	if err != nil {
		return "", err
	}
	c, err := data.FromValue(revisionFields(fields))
	if err != nil {
		return "", fmt.Errorf("revision %d: %w", r.Revision, err)
	}
	return c.GetString()
}

// writeLineDiff prints the lines of a and b, prefixing removed lines with
// "-" and added lines with "+".
func writeLineDiff(w io.Writer, a, b string) {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				delStyle.Fprintln(w, "-"+line)
			case diffmatchpatch.DiffInsert:
				addStyle.Fprintln(w, "+"+line)
			default:
				fmt.Fprintln(w, " "+line)
			}
		}
	}
}
