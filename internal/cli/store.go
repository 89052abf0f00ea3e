package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore"
	"github.com/roach88/recstore/internal/schemafile"
)

// StoreOptions holds the flags shared by commands that open a store.
type StoreOptions struct {
	*RootOptions
	Database string
	Schema   string
}

func (o *StoreOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to the store file (required)")
	cmd.Flags().StringVar(&o.Schema, "schema", "", "path to the YAML or CUE schema file (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("schema")
}

// openedStore is a store opened against a schema file.
type openedStore struct {
	*recstore.Store
	kinds map[string]*recstore.Kind[recstore.Record]
}

// kind returns the dynamic kind named name, or an UNKNOWN_KIND error.
func (s *openedStore) kind(name string) (*recstore.Kind[recstore.Record], error) {
	if k, ok := s.kinds[name]; ok {
		return k, nil
	}
	_, err := s.Schema(name)
	return nil, err
}

// storeName derives the store name from its file name.
func storeName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// openStore loads the schema file and opens the store, migrating it if needed.
// Errors are reported through f and returned as ExitErrors.
func openStore(ctx context.Context, opts *StoreOptions, f *OutputFormatter, cmd *cobra.Command) (*openedStore, error) {
	file, err := schemafile.Load(opts.Schema)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeSchemaFile, "failed to load schema", err)
	}
	f.VerboseLog("Loaded schema %s at version %d with %d kind(s)", opts.Schema, file.Version, len(file.Kinds))

	model, kinds := file.Model()
	st, err := recstore.Open(ctx, storeName(opts.Database), opts.Database, model,
		recstore.WithLogger(newLogger(opts.RootOptions, cmd)))
	if err != nil {
		return nil, f.FailStore(fmt.Sprintf("failed to open %s", opts.Database), err)
	}
	return &openedStore{Store: st, kinds: kinds}, nil
}
