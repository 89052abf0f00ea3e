package cli

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/roach88/recstore"
	"github.com/roach88/recstore/internal/mapper"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/value"
)

// decodeRecord parses a JSON object into a record of rec's fields.
// Field values use the JSON forms accepted by value.CoerceJSON; opaque
// fields take any JSON value.
func decodeRecord(rec *schema.Record, data string) (recstore.Record, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing record JSON: %w", err)
	}

	out := make(recstore.Record, len(raw))
	for name, v := range raw {
		f, ok := rec.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", rec.Kind(), name)
		}
		native, err := nativeFromJSON(f, v)
		if err != nil {
			return nil, mapper.NewCoercionError(rec.Kind(), name, err)
		}
		out[name] = native
	}
	return out, nil
}

// parseID converts a command-line id into the native value of the primary key.
func parseID(rec *schema.Record, s string) (any, error) {
	pk := rec.PrimaryKey()
	var raw any = s
	if pk.Kind == value.KindInteger || pk.Kind == value.KindDouble {
		raw = json.Number(s)
	}
	native, err := nativeFromJSON(pk, raw)
	if err != nil {
		return nil, mapper.NewCoercionError(rec.Kind(), pk.Name, err)
	}
	return native, nil
}

func nativeFromJSON(f schema.Field, v any) (any, error) {
	if v == nil || f.Kind == value.KindOpaque {
		return v, nil
	}
	tv, err := value.CoerceJSON(f.Kind, v)
	if err != nil {
		return nil, err
	}
	return value.Native(tv)
}

// encodeRecord projects a record onto JSON-friendly values, in field order.
func encodeRecord(rec *schema.Record, r recstore.Record) orderedRecord {
	out := orderedRecord{fields: make([]string, 0, rec.Len()), values: make(map[string]any, rec.Len())}
	for _, f := range rec.Fields() {
		out.fields = append(out.fields, f.Name)
		out.values[f.Name] = jsonValue(r[f.Name])
	}
	return out
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case *url.URL:
		if x == nil {
			return nil
		}
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// orderedRecord marshals as a JSON object with keys in schema order.
type orderedRecord struct {
	fields []string
	values map[string]any
}

func (o orderedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// formatRecords renders records one JSON object per line.
func formatRecords(recs []orderedRecord) (string, error) {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		b, err := r.MarshalJSON()
		if err != nil {
			return "", err
		}
		lines = append(lines, string(b))
	}
	return strings.Join(lines, "\n"), nil
}
