package recstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/recstore/internal/migrate"
	"github.com/roach88/recstore/internal/notify"
	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/sqlite"
)

// Store is an open record store at the model's version.
type Store struct {
	name     string
	locator  string
	engine   rowstore.Engine
	handle   rowstore.Handle
	registry *registry.Registry
	notifier *notify.Notifier
	logger   *slog.Logger
	onCommit func(error)
	closed   bool
}

// Open opens the store at locator, creating it when absent and migrating it
// to model.Version when it was written by an earlier version.
//
// Every failure is fatal for the store: an invalid model, a store matching
// no declared version, or a failed migration step. A store that failed to
// open must not be used.
func Open(ctx context.Context, name, locator string, model Model, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.engine == nil {
		engineOpts := []sqlite.Option{sqlite.WithLogger(o.logger)}
		if o.inMemory {
			engineOpts = append(engineOpts, sqlite.WithMemory())
			locator = name
		}
		o.engine = sqlite.New(engineOpts...)
	}
	if locator == "" {
		return nil, fmt.Errorf("open %s: empty locator", name)
	}

	reg, err := model.registry()
	if err != nil {
		return nil, err
	}
	target := reg.Version()

	current, exists, err := migrate.Resolve(ctx, o.engine, reg, locator)
	if err != nil {
		return nil, err
	}
	if exists {
		o.logger.Info("store version resolved", "store", name, "version", current, "target", target)
		if current < target {
			if err := migrate.NewPlanner(o.engine, reg, o.logger).Migrate(ctx, locator, current, target); err != nil {
				return nil, err
			}
		}
	}

	desc, err := reg.StorageSchema(target)
	if err != nil {
		return nil, err
	}
	h, err := o.engine.Open(ctx, desc, locator)
	if err != nil {
		return nil, err
	}

	o.logger.Info("store opened", "store", name, "version", target)
	return &Store{
		name:     name,
		locator:  locator,
		engine:   o.engine,
		handle:   h,
		registry: reg,
		notifier: notify.New(h, o.logger),
		logger:   o.logger,
		onCommit: o.commitErrorFn,
	}, nil
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Version returns the schema version the store is at.
func (s *Store) Version() int { return s.registry.Version() }

// Kinds returns the declared kind names in declaration order.
func (s *Store) Kinds() []string { return s.registry.Kinds() }

// Schema returns the current schema of kind.
func (s *Store) Schema(kind string) (*SchemaRecord, error) {
	return s.registry.Schema(kind, s.registry.Version())
}

// Commit flushes pending mutations to durable storage.
func (s *Store) Commit(ctx context.Context) error {
	return s.handle.Commit(ctx)
}

// HasChanges reports whether there are uncommitted mutations.
func (s *Store) HasChanges() bool {
	return !s.closed && s.handle.HasChanges()
}

// CommitIfNeeded commits only when there are pending mutations. Failures are
// reported to the commit error observer and logged as well as returned.
func (s *Store) CommitIfNeeded(ctx context.Context) error {
	if !s.HasChanges() {
		return nil
	}
	if err := s.handle.Commit(ctx); err != nil {
		s.logger.Error("commit failed", "store", s.name, "error", err)
		if s.onCommit != nil {
			s.onCommit(err)
		}
		return err
	}
	return nil
}

// LifecycleEvent is a host lifecycle boundary at which pending work is committed.
type LifecycleEvent int

const (
	// EnteredBackground is sent when the host process is suspended or backgrounded.
	EnteredBackground LifecycleEvent = iota + 1
	// WillTerminate is sent before the host process exits.
	WillTerminate
)

func (e LifecycleEvent) String() string {
	switch e {
	case EnteredBackground:
		return "entered_background"
	case WillTerminate:
		return "will_terminate"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(e))
	}
}

// HandleLifecycle commits pending mutations in reaction to a host event.
// Errors go to the commit error observer.
func (s *Store) HandleLifecycle(ctx context.Context, ev LifecycleEvent) {
	s.logger.Debug("lifecycle event", "store", s.name, "event", ev.String())
	_ = s.CommitIfNeeded(ctx)
}

// Close cancels every subscription and closes the store. Uncommitted
// mutations are discarded.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.notifier.Close()
	return s.handle.Close()
}

// DeleteStore closes the store and irreversibly removes its persisted data.
// The store must not be used afterwards.
func (s *Store) DeleteStore(ctx context.Context) error {
	if err := s.Close(); err != nil {
		s.logger.Warn("close before delete failed", "store", s.name, "error", err)
	}
	return s.engine.Destroy(ctx, s.locator)
}

// schemaOf returns the current schema of k, failing for kinds outside the model.
func schemaOf[T any](s *Store, k *Kind[T]) (*schema.Record, error) {
	return s.registry.Schema(k.name, s.registry.Version())
}
