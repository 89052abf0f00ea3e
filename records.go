package recstore

import (
	"context"

	"github.com/roach88/recstore/internal/mapper"
	"github.com/roach88/recstore/internal/notify"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

// Save inserts rec, or overwrites every field of the stored record with the
// same primary key. On error nothing is written.
func Save[T any](ctx context.Context, s *Store, k *Kind[T], rec T) error {
	return SaveAll(ctx, s, k, []T{rec})
}

// SaveAll saves every record in one mutation: either all are saved or none.
func SaveAll[T any](ctx context.Context, s *Store, k *Kind[T], recs []T) error {
	sch, err := schemaOf(s, k)
	if err != nil {
		return err
	}
	acc := k.accessorsFor(sch)
	pk := sch.PrimaryKey().Name

	rows := make([]map[string]value.Value, len(recs))
	for i := range recs {
		if rows[i], err = mapper.Marshal(sch, acc, &recs[i]); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}

	return s.handle.Mutate(ctx, func(tx rowstore.Tx) error {
		for _, values := range rows {
			existing, err := tx.Fetch(ctx, k.name, rowstore.Equals(pk, values[pk]))
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				row := existing[0]
				row.Values = values
				if err := tx.Update(ctx, row); err != nil {
					return err
				}
				continue
			}
			if _, err := tx.Insert(ctx, k.name, values); err != nil {
				return err
			}
		}
		return nil
	})
}

// FetchAll returns every record of kind k in insertion order.
func FetchAll[T any](ctx context.Context, s *Store, k *Kind[T]) ([]T, error) {
	return fetch(ctx, s, k, nil)
}

// FetchByID returns the record whose primary key equals id.
func FetchByID[T any](ctx context.Context, s *Store, k *Kind[T], id any) (T, bool, error) {
	var zero T
	sch, err := schemaOf(s, k)
	if err != nil {
		return zero, false, err
	}
	pk := sch.PrimaryKey()
	key, err := value.Coerce(pk.Kind, id)
	if err != nil {
		return zero, false, mapper.NewCoercionError(k.name, pk.Name, err)
	}

	recs, err := fetch(ctx, s, k, rowstore.Equals(pk.Name, key))
	if err != nil || len(recs) == 0 {
		return zero, false, err
	}
	return recs[0], true, nil
}

// FetchWhere returns the records of kind k matching a SQL boolean expression
// over field names, with "?" placeholders bound to args in order:
//
//	recstore.FetchWhere(ctx, st, people, `"age" >= ? AND "name" LIKE ?`, 18, "A%")
//
// The expression is not parsed or validated before reaching the engine.
func FetchWhere[T any](ctx context.Context, s *Store, k *Kind[T], format string, args ...any) ([]T, error) {
	pred := &rowstore.Predicate{Format: format, Args: make([]value.Value, len(args))}
	for i, a := range args {
		v, err := mapper.Arg(k.name, a)
		if err != nil {
			return nil, err
		}
		pred.Args[i] = v
	}
	return fetch(ctx, s, k, pred)
}

func fetch[T any](ctx context.Context, s *Store, k *Kind[T], pred *rowstore.Predicate) ([]T, error) {
	sch, err := schemaOf(s, k)
	if err != nil {
		return nil, err
	}
	rows, err := s.handle.Fetch(ctx, k.name, pred)
	if err != nil {
		return nil, err
	}

	acc := k.accessorsFor(sch)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := mapper.Unmarshal(sch, acc, row, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes the stored record with rec's primary key, if any.
func Delete[T any](ctx context.Context, s *Store, k *Kind[T], rec T) error {
	return DeleteAll(ctx, s, k, []T{rec})
}

// DeleteAll removes the stored records matching the primary keys of recs.
// Records that are not stored are ignored.
func DeleteAll[T any](ctx context.Context, s *Store, k *Kind[T], recs []T) error {
	sch, err := schemaOf(s, k)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	acc := k.accessorsFor(sch)

	keys := make([]value.Value, len(recs))
	for i := range recs {
		if keys[i], err = mapper.PrimaryKeyOf(sch, acc, &recs[i]); err != nil {
			return err
		}
	}

	return s.handle.Mutate(ctx, func(tx rowstore.Tx) error {
		rows, err := tx.Fetch(ctx, k.name, rowstore.In(sch.PrimaryKey().Name, keys))
		if err != nil || len(rows) == 0 {
			return err
		}
		return tx.Delete(ctx, rows)
	})
}

// ChangeSet is one notification cycle for one kind.
type ChangeSet[T any] = notify.ChangeSet[T]

// Subscription is a live Observe registration.
type Subscription = notify.Subscription

// Observe calls handler with every change to records of kind k, in the
// order subscriptions were made, right after the mutation that caused it.
// Changed records that fail to decode are left out of the change set.
//
// The subscription lasts until Cancel is called, the store is closed, or the
// Subscription becomes unreachable.
func Observe[T any](s *Store, k *Kind[T], handler func(ChangeSet[T])) (*Subscription, error) {
	sch, err := schemaOf(s, k)
	if err != nil {
		return nil, err
	}
	acc := k.accessorsFor(sch)
	decode := func(row rowstore.Row) (T, error) {
		var rec T
		err := mapper.Unmarshal(sch, acc, row, &rec)
		return rec, err
	}
	return notify.Observe(s.notifier, k.name, decode, handler), nil
}

// SchemaOf returns the current schema of kind k in s.
func SchemaOf[T any](s *Store, k *Kind[T]) (*SchemaRecord, error) {
	return schemaOf(s, k)
}
