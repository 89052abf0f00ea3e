package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <kind>",
		Short: "Print every record of a kind",
		Long: `Print every record of a kind as JSON, one object per line in insertion
order. The store is migrated to the schema file's version first.

Example:
  recstore dump --db ./people.sqlite --schema ./people.yaml Person`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runDump(opts *StoreOptions, kindName string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(ctx, opts, f, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	kind, err := st.kind(kindName)
	if err != nil {
		return f.FailStore("cannot dump", err)
	}
	sch, err := recstore.SchemaOf(st.Store, kind)
	if err != nil {
		return f.FailStore("cannot dump", err)
	}
	recs, err := recstore.FetchAll(ctx, st.Store, kind)
	if err != nil {
		return f.FailStore(fmt.Sprintf("failed to fetch %s records", kindName), err)
	}
	f.VerboseLog("Fetched %d %s record(s)", len(recs), kindName)

	out := make([]orderedRecord, len(recs))
	for i, r := range recs {
		out[i] = encodeRecord(sch, r)
	}
	text, err := formatRecords(out)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to encode records", err)
	}
	return f.Success(out, text)
}
