package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

const savepoint = "recstore_mutation"

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type listener struct {
	id int
	fn func(rowstore.ChangeBatch)
}

// handle is an open SQLite store.
type handle struct {
	db       *sql.DB
	entities map[string]rowstore.Entity
	logger   *slog.Logger

	tx     *sql.Tx // open mutation context, nil when nothing is pending
	dirty  bool
	closed bool

	mu        sync.Mutex // guards listeners and nextID
	listeners []listener
	nextID    int
}

func newHandle(db *sql.DB, desc rowstore.Descriptor, logger *slog.Logger) *handle {
	h := &handle{
		db:       db,
		entities: make(map[string]rowstore.Entity, len(desc.Entities)),
		logger:   logger,
	}
	for _, e := range desc.Entities {
		h.entities[e.Name] = e
	}
	return h
}

func (h *handle) entity(kind string) (rowstore.Entity, error) {
	e, ok := h.entities[kind]
	if !ok {
		return rowstore.Entity{}, fmt.Errorf("unknown entity %q", kind)
	}
	return e, nil
}

// conn returns the open transaction if any. The pool holds a single
// connection, so reads must go through the transaction while it is open.
func (h *handle) conn() querier {
	if h.tx != nil {
		return h.tx
	}
	return h.db
}

// Fetch returns the rows of kind matching pred, ordered by z_pk.
func (h *handle) Fetch(ctx context.Context, kind string, pred *rowstore.Predicate) ([]rowstore.Row, error) {
	if h.closed {
		return nil, rowstore.Wrap("fetch", rowstore.ErrClosed)
	}
	rows, err := fetch(ctx, h.conn(), h, kind, pred)
	return rows, rowstore.Wrap("fetch", err)
}

func fetch(ctx context.Context, db querier, h *handle, kind string, pred *rowstore.Predicate) ([]rowstore.Row, error) {
	e, err := h.entity(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s", rowIDColumn, columnList(e), q(e.Name))
	var args []any
	if pred != nil && strings.TrimSpace(pred.Format) != "" {
		query += " WHERE (" + pred.Format + ")"
		args = make([]any, len(pred.Args))
		for i, a := range pred.Args {
			args[i] = toDriver(a)
		}
	}
	query += " ORDER BY " + rowIDColumn + " ASC"

	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rs.Close()

	var out []rowstore.Row
	for rs.Next() {
		row, err := scanRow(rs, e)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []rowstore.Row{}
	}
	return out, nil
}

func scanRow(rs *sql.Rows, e rowstore.Entity) (rowstore.Row, error) {
	var id int64
	raw := make([]any, len(e.Attributes))
	dest := make([]any, len(e.Attributes)+1)
	dest[0] = &id
	for i := range raw {
		dest[i+1] = &raw[i]
	}
	if err := rs.Scan(dest...); err != nil {
		return rowstore.Row{}, fmt.Errorf("scan %s: %w", e.Name, err)
	}

	row := rowstore.Row{Kind: e.Name, ID: id, Values: make(map[string]value.Value, len(e.Attributes))}
	for i, a := range e.Attributes {
		v, err := fromDriver(a.Kind, raw[i])
		if err != nil {
			return rowstore.Row{}, fmt.Errorf("%s.%s (row %d): %w", e.Name, a.Name, id, err)
		}
		row.Values[a.Name] = v
	}
	return row, nil
}

// Mutate runs fn inside a savepoint of the mutation transaction.
func (h *handle) Mutate(ctx context.Context, fn func(rowstore.Tx) error) error {
	if h.closed {
		return rowstore.Wrap("mutate", rowstore.ErrClosed)
	}
	if h.tx == nil {
		// The transaction outlives ctx, so it must not be bound to it.
		tx, err := h.db.BeginTx(context.Background(), nil)
		if err != nil {
			return rowstore.Wrap("mutate", fmt.Errorf("begin transaction: %w", err))
		}
		h.tx = tx
	}

	if _, err := h.tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return rowstore.Wrap("mutate", err)
	}

	m := &mutation{h: h, tx: h.tx}
	if err := fn(m); err != nil {
		if rbErr := h.rollbackSavepoint(); rbErr != nil {
			h.logger.Error("savepoint rollback failed", "error", rbErr)
			return errors.Join(err, rowstore.Wrap("mutate", rbErr))
		}
		return err
	}

	if _, err := h.tx.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
		rbErr := h.rollbackSavepoint()
		return rowstore.Wrap("mutate", errors.Join(err, rbErr))
	}

	if !m.batch.Empty() {
		h.dirty = true
		h.emit(m.batch)
	}
	return nil
}

func (h *handle) rollbackSavepoint() error {
	ctx := context.Background()
	if _, err := h.tx.ExecContext(ctx, "ROLLBACK TO "+savepoint); err != nil {
		return err
	}
	_, err := h.tx.ExecContext(ctx, "RELEASE "+savepoint)
	return err
}

// Commit commits the mutation transaction, if one is open.
func (h *handle) Commit(ctx context.Context) error {
	if h.closed {
		return rowstore.Wrap("commit", rowstore.ErrClosed)
	}
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	h.dirty = false
	if err := tx.Commit(); err != nil {
		return rowstore.Wrap("commit", err)
	}
	return nil
}

func (h *handle) HasChanges() bool {
	return h.dirty
}

// Subscribe registers fn for every change batch, in registration order.
func (h *handle) Subscribe(fn func(rowstore.ChangeBatch)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, l := range h.listeners {
				if l.id == id {
					h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (h *handle) emit(batch rowstore.ChangeBatch) {
	h.mu.Lock()
	snapshot := make([]listener, len(h.listeners))
	copy(snapshot, h.listeners)
	h.mu.Unlock()

	for _, l := range snapshot {
		l.fn(batch)
	}
}

// Close discards uncommitted mutations and closes the database.
func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	h.mu.Lock()
	h.listeners = nil
	h.mu.Unlock()

	var errs []error
	if h.tx != nil {
		if err := h.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		h.tx = nil
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return rowstore.Wrap("close", errors.Join(errs...))
}

// mutation is the rowstore.Tx handed to Mutate callbacks. It records every
// change for the batch emitted on success.
type mutation struct {
	h     *handle
	tx    *sql.Tx
	batch rowstore.ChangeBatch
}

func (m *mutation) Fetch(ctx context.Context, kind string, pred *rowstore.Predicate) ([]rowstore.Row, error) {
	rows, err := fetch(ctx, m.tx, m.h, kind, pred)
	return rows, rowstore.Wrap("fetch", err)
}

func (m *mutation) Insert(ctx context.Context, kind string, values map[string]value.Value) (rowstore.Row, error) {
	e, err := m.h.entity(kind)
	if err != nil {
		return rowstore.Row{}, rowstore.Wrap("insert", err)
	}

	row := rowstore.Row{Kind: kind, Values: make(map[string]value.Value, len(e.Attributes))}
	args := make([]any, len(e.Attributes))
	for i, a := range e.Attributes {
		v := valueOrNull(values[a.Name])
		row.Values[a.Name] = v
		args[i] = toDriver(v)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q(kind), columnList(e), placeholders(len(args)))
	res, err := m.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return rowstore.Row{}, rowstore.Wrap("insert", fmt.Errorf("%s: %w", kind, err))
	}
	row.ID, err = res.LastInsertId()
	if err != nil {
		return rowstore.Row{}, rowstore.Wrap("insert", err)
	}

	m.batch.Inserted = append(m.batch.Inserted, row)
	return row, nil
}

func (m *mutation) Update(ctx context.Context, row rowstore.Row) error {
	e, err := m.h.entity(row.Kind)
	if err != nil {
		return rowstore.Wrap("update", err)
	}

	sets := make([]string, len(e.Attributes))
	args := make([]any, 0, len(e.Attributes)+1)
	stored := rowstore.Row{Kind: row.Kind, ID: row.ID, Values: make(map[string]value.Value, len(e.Attributes))}
	for i, a := range e.Attributes {
		v := valueOrNull(row.Values[a.Name])
		stored.Values[a.Name] = v
		sets[i] = q(a.Name) + " = ?"
		args = append(args, toDriver(v))
	}
	args = append(args, row.ID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", q(row.Kind), strings.Join(sets, ", "), rowIDColumn)
	res, err := m.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return rowstore.Wrap("update", fmt.Errorf("%s: %w", row.Kind, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return rowstore.Wrap("update", fmt.Errorf("%s row %d does not exist", row.Kind, row.ID))
	}

	m.batch.Updated = append(m.batch.Updated, stored)
	return nil
}

func (m *mutation) Delete(ctx context.Context, rows []rowstore.Row) error {
	for _, row := range rows {
		if _, err := m.h.entity(row.Kind); err != nil {
			return rowstore.Wrap("delete", err)
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", q(row.Kind), rowIDColumn)
		res, err := m.tx.ExecContext(ctx, query, row.ID)
		if err != nil {
			return rowstore.Wrap("delete", fmt.Errorf("%s: %w", row.Kind, err))
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}
		m.batch.Deleted = append(m.batch.Deleted, row)
	}
	return nil
}

func valueOrNull(v value.Value) value.Value {
	if v == nil {
		return value.Null{}
	}
	return v
}
