package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/rowstore"
)

// Step is one single-version migration.
type Step struct {
	From, To     int
	Source, Dest rowstore.Descriptor
	Mapping      rowstore.Mapping
}

// Planner drives a store from its resolved version to the registry's version.
type Planner struct {
	engine   rowstore.Engine
	registry *registry.Registry
	logger   *slog.Logger
}

// NewPlanner creates a Planner. A nil logger uses slog.Default().
func NewPlanner(eng rowstore.Engine, reg *registry.Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{engine: eng, registry: reg, logger: logger}
}

// Plan infers every step from version from to version to.
// Nothing is written; an inference failure is returned as MIGRATION_STEP_FAILED.
func (p *Planner) Plan(from, to int) ([]Step, error) {
	if from > to {
		return nil, &Error{
			Code: ErrCodeMigrationStepFailed, From: from, To: to,
			Err: fmt.Errorf("downgrades are not supported"),
		}
	}
	if to > p.registry.Version() {
		return nil, &Error{
			Code: ErrCodeMigrationStepFailed, From: from, To: to,
			Err: fmt.Errorf("target beyond highest declared version %d", p.registry.Version()),
		}
	}

	var steps []Step
	for v := from; v < to; v++ {
		src, err := p.registry.StorageSchema(v)
		if err != nil {
			return nil, &Error{Code: ErrCodeMigrationStepFailed, From: v, To: v + 1, Err: err}
		}
		dst, err := p.registry.StorageSchema(v + 1)
		if err != nil {
			return nil, &Error{Code: ErrCodeMigrationStepFailed, From: v, To: v + 1, Err: err}
		}
		mapping, err := InferStep(p.registry, v)
		if err != nil {
			return nil, &Error{Code: ErrCodeMigrationStepFailed, From: v, To: v + 1, Err: err}
		}
		steps = append(steps, Step{From: v, To: v + 1, Source: src, Dest: dst, Mapping: mapping})
	}
	return steps, nil
}

// Migrate applies every step from version from to version to against the
// store at locator. Each step is atomic; the first failure stops the run and
// leaves the store at that step's source version.
func (p *Planner) Migrate(ctx context.Context, locator string, from, to int) error {
	steps, err := p.Plan(from, to)
	if err != nil {
		return withLocator(err, locator)
	}

	for _, st := range steps {
		p.logger.Info("migrating store", "locator", locator, "from", st.From, "to", st.To)
		if err := p.engine.MigrateOneStep(ctx, locator, st.Source, st.Dest, st.Mapping); err != nil {
			p.logger.Error("migration step failed", "locator", locator, "from", st.From, "to", st.To, "error", err)
			return &Error{Code: ErrCodeMigrationStepFailed, Locator: locator, From: st.From, To: st.To, Err: err}
		}
	}
	return nil
}

func withLocator(err error, locator string) error {
	if me, ok := err.(*Error); ok && me.Locator == "" {
		me.Locator = locator
	}
	return err
}
