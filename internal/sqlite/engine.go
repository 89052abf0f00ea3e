package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/recstore/internal/fingerprint"
	"github.com/roach88/recstore/internal/rowstore"
)

// Engine opens SQLite-backed stores.
// Locators are file paths, or store names in memory mode.
type Engine struct {
	memory bool
	logger *slog.Logger
}

var _ rowstore.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for DDL and migration events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMemory keeps stores in memory. A store lives while its handle is open;
// a second Open of the same name while the first handle is open shares its data.
func WithMemory() Option {
	return func(e *Engine) { e.memory = true }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// dsn returns the driver data source name for locator.
func (e *Engine) dsn(locator string) string {
	if e.memory {
		return "file:" + url.PathEscape(locator) + "?mode=memory&cache=shared"
	}
	return locator
}

// openDB opens the database and applies the required pragmas.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// The pool is limited to one connection: the long-lived mutation
// transaction and every read must share it.
func (e *Engine) openDB(ctx context.Context, locator string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", e.dsn(locator))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// exists reports whether a file store is present at locator without creating it.
func (e *Engine) exists(locator string) (bool, error) {
	if e.memory {
		return true, nil
	}
	_, err := os.Stat(locator)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Metadata returns the metadata of the store at locator, or ok=false when
// no store has been created there.
func (e *Engine) Metadata(ctx context.Context, locator string) (rowstore.Metadata, bool, error) {
	ok, err := e.exists(locator)
	if err != nil || !ok {
		return nil, false, rowstore.Wrap("metadata", err)
	}

	db, err := e.openDB(ctx, locator)
	if err != nil {
		return nil, false, rowstore.Wrap("metadata", err)
	}
	defer db.Close()

	md, ok, err := readMetadata(ctx, db)
	return md, ok, rowstore.Wrap("metadata", err)
}

// IsCompatible reports whether md was written for a descriptor with the
// same fingerprint as desc.
func (e *Engine) IsCompatible(desc rowstore.Descriptor, md rowstore.Metadata) bool {
	stored, err := decodeMetadata(md)
	if err != nil {
		return false
	}
	fp, err := fingerprint.Of(desc)
	if err != nil {
		return false
	}
	return stored.Fingerprint == fp
}

// Open opens the store at locator, creating it for desc when absent.
func (e *Engine) Open(ctx context.Context, desc rowstore.Descriptor, locator string) (rowstore.Handle, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, rowstore.Wrap("open", err)
	}

	db, err := e.openDB(ctx, locator)
	if err != nil {
		return nil, rowstore.Wrap("open", err)
	}

	md, ok, err := readMetadata(ctx, db)
	if err != nil {
		db.Close()
		return nil, rowstore.Wrap("open", err)
	}

	if ok {
		if !e.IsCompatible(desc, md) {
			db.Close()
			return nil, rowstore.Wrap("open", fmt.Errorf("store at %s does not match schema version %d", locator, desc.Version))
		}
	} else if err := e.create(ctx, db, desc); err != nil {
		db.Close()
		return nil, rowstore.Wrap("open", err)
	}

	return newHandle(db, desc, e.logger), nil
}

// create lays out a fresh store for desc in one transaction.
func (e *Engine) create(ctx context.Context, db *sql.DB, desc rowstore.Descriptor) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ent := range desc.Entities {
		ddl := createTableSQL(ent.Name, ent)
		e.logger.Debug("creating table", "kind", ent.Name, "sql", ddl)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", ent.Name, err)
		}
	}
	if err := writeMetadata(ctx, tx, desc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	e.logger.Info("store created", "version", desc.Version, "kinds", len(desc.Entities))
	return nil
}

// Destroy removes the store file and its -wal and -shm side files.
// In memory mode the store disappears with its last handle and Destroy is a no-op.
func (e *Engine) Destroy(ctx context.Context, locator string) error {
	if e.memory {
		return nil
	}
	for _, path := range []string{locator, locator + "-wal", locator + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return rowstore.Wrap("destroy", err)
		}
	}
	e.logger.Info("store destroyed", "locator", locator)
	return nil
}

func isNoSuchTable(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrError && strings.Contains(se.Error(), "no such table")
	}
	return strings.Contains(err.Error(), "no such table")
}
