package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	StoreOptions
	JSON string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "put <kind>",
		Short: "Insert or overwrite a record",
		Long: `Save a record given as a JSON object and commit. A stored record with the
same primary key is overwritten; fields left out of the object are stored
as null, so required fields must all be present.

Dates are RFC 3339 strings and binary fields are base64.

Example:
  recstore put --db ./people.sqlite --schema ./people.yaml Person \
    --json '{"id": "a", "fullName": "Ann", "age": 41}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.JSON, "json", "", "the record as a JSON object (required)")
	_ = cmd.MarkFlagRequired("json")

	return cmd
}

func runPut(opts *PutOptions, kindName string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(ctx, &opts.StoreOptions, f, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	kind, err := st.kind(kindName)
	if err != nil {
		return f.FailStore("cannot save", err)
	}
	sch, err := recstore.SchemaOf(st.Store, kind)
	if err != nil {
		return f.FailStore("cannot save", err)
	}
	rec, err := decodeRecord(sch, opts.JSON)
	if err != nil {
		if recstore.IsCoercionFailure(err) {
			return f.FailStore("invalid record", err)
		}
		return f.Fail(ExitCommandError, ErrCodeUsage, "invalid record", err)
	}

	if err := recstore.Save(ctx, st.Store, kind, rec); err != nil {
		return f.FailStore(fmt.Sprintf("failed to save %s", kindName), err)
	}
	if err := st.Commit(ctx); err != nil {
		return f.FailStore("failed to commit", err)
	}

	saved, _, err := recstore.FetchByID(ctx, st.Store, kind, rec[sch.PrimaryKey().Name])
	if err != nil {
		return f.FailStore("failed to read back record", err)
	}
	out := encodeRecord(sch, saved)
	text, err := formatRecords([]orderedRecord{out})
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to encode record", err)
	}
	return f.Success(out, text)
}
