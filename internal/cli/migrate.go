package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/migrate"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schemafile"
	"github.com/roach88/recstore/internal/sqlite"
	"github.com/roach88/recstore/internal/value"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	StoreOptions
	DryRun bool
}

// MigrateResult describes a migration run or plan.
type MigrateResult struct {
	From    int           `json:"from"`
	To      int           `json:"to"`
	Created bool          `json:"created,omitempty"`
	DryRun  bool          `json:"dry_run,omitempty"`
	Steps   []StepSummary `json:"steps,omitempty"`
}

// StepSummary is one planned single-version step.
type StepSummary struct {
	From  int           `json:"from"`
	To    int           `json:"to"`
	Kinds []KindSummary `json:"kinds"`
}

// KindSummary lists how every field of a kind is filled by a step.
type KindSummary struct {
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
	order  []string
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring a store up to the schema file's version",
		Long: `Resolve the schema version a store was written with and migrate it, one
version at a time, to the version declared by the schema file. A missing
store is created at that version.

With --dry-run the steps are inferred and printed but nothing is written.

Example:
  recstore migrate --db ./people.sqlite --schema ./people.yaml
  recstore migrate --db ./people.sqlite --schema ./people.cue --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the migration plan without applying it")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	file, err := schemafile.Load(opts.Schema)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeSchemaFile, "failed to load schema", err)
	}
	reg, err := file.Registry()
	if err != nil {
		return f.FailStore("invalid schema", err)
	}

	logger := newLogger(opts.RootOptions, cmd)
	eng := sqlite.New(sqlite.WithLogger(logger))
	current, exists, err := migrate.Resolve(ctx, eng, reg, opts.Database)
	if err != nil {
		return f.FailStore(fmt.Sprintf("failed to resolve %s", opts.Database), err)
	}

	result := MigrateResult{From: current, To: reg.Version(), Created: !exists, DryRun: opts.DryRun}
	if exists {
		steps, err := migrate.NewPlanner(eng, reg, logger).Plan(current, reg.Version())
		if err != nil {
			return f.FailStore("failed to plan migration", err)
		}
		for _, st := range steps {
			result.Steps = append(result.Steps, summarizeStep(st))
		}
	}
	f.VerboseLog("Store %s at version %d, schema at version %d", opts.Database, current, reg.Version())

	if !opts.DryRun {
		st, err := openStore(ctx, &opts.StoreOptions, f, cmd)
		if err != nil {
			return err
		}
		if err := st.Close(); err != nil {
			return f.FailStore("failed to close store", err)
		}
	}
	return f.Success(result, formatMigrate(result))
}

func summarizeStep(st migrate.Step) StepSummary {
	sum := StepSummary{From: st.From, To: st.To}
	for _, em := range st.Mapping.Entities {
		ks := KindSummary{Kind: em.Kind, Fields: make(map[string]string, len(em.Fields))}
		for _, fm := range em.Fields {
			ks.Fields[fm.Target] = describeFill(fm)
			ks.order = append(ks.order, fm.Target)
		}
		sum.Kinds = append(sum.Kinds, ks)
	}
	return sum
}

func describeFill(fm rowstore.FieldMapping) string {
	switch {
	case fm.Source != "" && fm.Default != nil:
		return fmt.Sprintf("copy %s, null -> %s", fm.Source, describeValue(fm.Default))
	case fm.Source != "":
		return "copy " + fm.Source
	case fm.Default != nil:
		return "default " + describeValue(fm.Default)
	default:
		return "null"
	}
}

func describeValue(v value.Value) string {
	if _, ok := v.(value.Opaque); ok {
		return "<opaque>"
	}
	n, err := value.Native(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%#v", n)
}

func formatMigrate(r MigrateResult) string {
	var buf bytes.Buffer
	switch {
	case r.Created && r.DryRun:
		fmt.Fprintf(&buf, "would create store at version %d", r.To)
	case r.Created:
		fmt.Fprintf(&buf, "created store at version %d", r.To)
	case r.From == r.To:
		fmt.Fprintf(&buf, "store already at version %d", r.To)
	case r.DryRun:
		fmt.Fprintf(&buf, "would migrate store from version %d to %d", r.From, r.To)
	default:
		fmt.Fprintf(&buf, "migrated store from version %d to %d", r.From, r.To)
	}
	for _, st := range r.Steps {
		fmt.Fprintf(&buf, "\n\nv%d -> v%d", st.From, st.To)
		for _, k := range st.Kinds {
			fmt.Fprintf(&buf, "\n  %s", k.Kind)
			for _, name := range k.order {
				fmt.Fprintf(&buf, "\n    %s: %s", name, k.Fields[name])
			}
		}
	}
	return buf.String()
}
