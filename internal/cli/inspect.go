package cli

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/sqlite"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// InspectResult is the persisted schema of a store.
type InspectResult struct {
	Version     int               `json:"version"`
	Fingerprint string            `json:"fingerprint"`
	Kinds       []rowstore.Entity `json:"kinds"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the schema a store was written with",
		Long: `Show the version, fingerprint and kinds recorded in a store's metadata.

The store is read as-is: no schema file is needed and nothing is migrated.

Example:
  recstore inspect --db ./people.sqlite
  recstore inspect --db ./people.sqlite --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the store file (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	eng := sqlite.New(sqlite.WithLogger(newLogger(opts.RootOptions, cmd)))
	md, ok, err := eng.Metadata(cmd.Context(), opts.Database)
	if err != nil {
		return f.FailStore("failed to read metadata", err)
	}
	if !ok {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("no store at %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("no store at %s", opts.Database))
	}

	in, err := sqlite.Inspect(md)
	if err != nil {
		return f.FailStore("failed to decode metadata", err)
	}

	result := InspectResult{
		Version:     in.Version,
		Fingerprint: in.Fingerprint,
		Kinds:       in.Descriptor.Entities,
	}
	return f.Success(result, formatInspect(result))
}

func formatInspect(r InspectResult) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "version:     %d\n", r.Version)
	fmt.Fprintf(&buf, "fingerprint: %s\n", r.Fingerprint)
	for _, e := range r.Kinds {
		fmt.Fprintf(&buf, "\n%s\n", e.Name)
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		for _, a := range e.Attributes {
			var flags string
			if a.Name == e.PrimaryKey {
				flags = "primary key"
			} else if a.Optional {
				flags = "optional"
			}
			if a.RenamingID != "" {
				flags += fmt.Sprintf(" (was %s)", a.RenamingID)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.Name, a.Kind, flags)
		}
		tw.Flush()
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
