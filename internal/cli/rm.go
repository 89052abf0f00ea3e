package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore"
)

// RmResult reports the outcome of an rm command.
type RmResult struct {
	Deleted int      `json:"deleted"`
	Missing []string `json:"missing,omitempty"`
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rm <kind> <id>...",
		Short: "Delete records by primary key",
		Long: `Delete the records of a kind with the given primary keys and commit.
Ids that match no record are reported and otherwise ignored.

Example:
  recstore rm --db ./people.sqlite --schema ./people.yaml Person a b`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(opts, args[0], args[1:], cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runRm(opts *StoreOptions, kindName string, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(ctx, opts, f, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	kind, err := st.kind(kindName)
	if err != nil {
		return f.FailStore("cannot delete", err)
	}
	sch, err := recstore.SchemaOf(st.Store, kind)
	if err != nil {
		return f.FailStore("cannot delete", err)
	}

	var (
		found  []recstore.Record
		result RmResult
	)
	for _, id := range ids {
		key, err := parseID(sch, id)
		if err != nil {
			return f.FailStore(fmt.Sprintf("invalid id %q", id), err)
		}
		rec, ok, err := recstore.FetchByID(ctx, st.Store, kind, key)
		if err != nil {
			return f.FailStore(fmt.Sprintf("failed to look up %q", id), err)
		}
		if !ok {
			result.Missing = append(result.Missing, id)
			continue
		}
		found = append(found, rec)
	}

	if err := recstore.DeleteAll(ctx, st.Store, kind, found); err != nil {
		return f.FailStore(fmt.Sprintf("failed to delete %s records", kindName), err)
	}
	if err := st.CommitIfNeeded(ctx); err != nil {
		return f.FailStore("failed to commit", err)
	}
	result.Deleted = len(found)

	text := fmt.Sprintf("deleted %d %s record(s)", result.Deleted, kindName)
	for _, id := range result.Missing {
		text += fmt.Sprintf("\nno %s with id %s", kindName, id)
	}
	return f.Success(result, text)
}
