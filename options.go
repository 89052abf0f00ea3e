package recstore

import (
	"log/slog"
	"path/filepath"

	"github.com/roach88/recstore/internal/rowstore"
)

type options struct {
	logger        *slog.Logger
	engine        rowstore.Engine
	commitErrorFn func(error)
	inMemory      bool
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngine replaces the SQLite row engine.
func WithEngine(e rowstore.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithCommitErrorObserver receives commit failures from CommitIfNeeded and
// HandleLifecycle, which have no caller to return them to.
func WithCommitErrorObserver(fn func(error)) Option {
	return func(o *options) { o.commitErrorFn = fn }
}

// WithInMemory keeps the store in memory, addressed by its name. The data
// lives until the store is closed. Ignored when WithEngine is given.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// Locator returns the path of the store named name in dir.
func Locator(dir, name string) string {
	return filepath.Join(dir, name+".sqlite")
}
