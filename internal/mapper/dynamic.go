package mapper

import (
	"fmt"

	"github.com/roach88/recstore/internal/codec"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/value"
)

// Record is a schema-less record keyed by field name, used by tools that
// only know a kind's schema at runtime.
type Record = map[string]any

// Dynamic builds accessors for every field of rec over a Record.
//
// Values are native Go values as described on Accessor. Opaque fields hold
// the decoded generic structure (maps, slices, json.Number, strings, bools).
func Dynamic(rec *schema.Record) Accessors[Record] {
	acc := make(Accessors[Record], rec.Len())
	for _, f := range rec.Fields() {
		acc[f.Name] = dynamicField(f)
	}
	return acc
}

func dynamicField(f schema.Field) Accessor[Record] {
	name := f.Name
	opaque := f.Kind == value.KindOpaque
	return Accessor[Record]{
		Get: func(r *Record) any {
			if *r == nil {
				return nil
			}
			return (*r)[name]
		},
		Set: func(r *Record, native any) error {
			if *r == nil {
				*r = make(Record)
			}
			if opaque && native != nil {
				p, ok := native.(codec.Payload)
				if !ok {
					return fmt.Errorf("cannot decode %T as opaque payload", native)
				}
				v, err := codec.DecodeAny(p)
				if err != nil {
					return err
				}
				native = v
			}
			(*r)[name] = native
			return nil
		},
	}
}
