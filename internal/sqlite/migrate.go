package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

// MigrateOneStep rewrites the store at locator from one descriptor to the
// next in a single transaction.
//
// For every entity of to:
//   - present in from: rows are copied into <kind>__next with each column
//     filled from its mapped source column, a bound default, or NULL, keeping
//     z_pk; the old table is dropped and the new one renamed into place
//   - absent from from: an empty table is created
//
// Entities of from that are absent from to are dropped.
func (e *Engine) MigrateOneStep(ctx context.Context, locator string, from, to rowstore.Descriptor, mapping rowstore.Mapping) error {
	if err := validateDescriptor(to); err != nil {
		return rowstore.Wrap("migrate", err)
	}

	db, err := e.openDB(ctx, locator)
	if err != nil {
		return rowstore.Wrap("migrate", err)
	}
	defer db.Close()

	md, ok, err := readMetadata(ctx, db)
	if err != nil {
		return rowstore.Wrap("migrate", err)
	}
	if !ok {
		return rowstore.Wrap("migrate", fmt.Errorf("no store at %s", locator))
	}
	if !e.IsCompatible(from, md) {
		return rowstore.Wrap("migrate", fmt.Errorf("store at %s does not match schema version %d", locator, from.Version))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return rowstore.Wrap("migrate", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	for _, target := range to.Entities {
		source, existed := from.Entity(target.Name)
		if !existed {
			ddl := createTableSQL(target.Name, target)
			e.logger.Debug("creating table", "kind", target.Name, "sql", ddl)
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return rowstore.Wrap("migrate", fmt.Errorf("create table %s: %w", target.Name, err))
			}
			continue
		}

		em, _ := mapping.Entity(target.Name)
		copySQL, args, err := copyRowsSQL(source, target, em)
		if err != nil {
			return rowstore.Wrap("migrate", err)
		}

		next := target.Name + nextSuffix
		stmts := []struct {
			sql  string
			args []any
		}{
			{fmt.Sprintf("DROP TABLE IF EXISTS %s", q(next)), nil},
			{createTableSQL(next, target), nil},
			{copySQL, args},
			{fmt.Sprintf("DROP TABLE %s", q(source.Name)), nil},
			{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", q(next), q(target.Name)), nil},
		}
		for _, st := range stmts {
			e.logger.Debug("migration statement", "kind", target.Name, "sql", st.sql)
			if _, err := tx.ExecContext(ctx, st.sql, st.args...); err != nil {
				return rowstore.Wrap("migrate", fmt.Errorf("%s: %w", target.Name, err))
			}
		}
	}

	for _, old := range from.Entities {
		if _, kept := to.Entity(old.Name); kept {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", q(old.Name))); err != nil {
			return rowstore.Wrap("migrate", fmt.Errorf("drop %s: %w", old.Name, err))
		}
	}

	if err := writeMetadata(ctx, tx, to); err != nil {
		return rowstore.Wrap("migrate", err)
	}
	if err := tx.Commit(); err != nil {
		return rowstore.Wrap("migrate", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// copyRowsSQL renders the INSERT ... SELECT that fills the next table of
// target from source according to em. Fields absent from em are filled
// with NULL.
func copyRowsSQL(source, target rowstore.Entity, em rowstore.EntityMapping) (string, []any, error) {
	byTarget := make(map[string]rowstore.FieldMapping, len(em.Fields))
	for _, fm := range em.Fields {
		byTarget[fm.Target] = fm
	}

	exprs := make([]string, 0, len(target.Attributes)+1)
	exprs = append(exprs, rowIDColumn)
	var args []any

	for _, a := range target.Attributes {
		fm, ok := byTarget[a.Name]
		switch {
		case ok && fm.Source != "":
			if _, found := source.Attribute(fm.Source); !found {
				return "", nil, fmt.Errorf("%s.%s: source field %q does not exist", target.Name, a.Name, fm.Source)
			}
			if fm.Default != nil && !value.IsNull(fm.Default) {
				exprs = append(exprs, "COALESCE("+q(fm.Source)+", ?)")
				args = append(args, toDriver(fm.Default))
			} else {
				exprs = append(exprs, q(fm.Source))
			}
		case ok && fm.Default != nil:
			exprs = append(exprs, "?")
			args = append(args, toDriver(fm.Default))
		default:
			exprs = append(exprs, "NULL")
		}
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s, %s) SELECT %s FROM %s",
		q(target.Name+nextSuffix), rowIDColumn, columnList(target),
		strings.Join(exprs, ", "), q(source.Name))
	return sql, args, nil
}
