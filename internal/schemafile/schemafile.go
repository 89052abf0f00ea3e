// Package schemafile loads a model's schema history from a YAML or CUE file.
//
// A schema file lists every kind with the revisions of its field list.
// A kind at version v uses its latest revision whose version is <= v, so a
// revision only needs writing when a kind actually changes:
//
//	version: 1
//	kinds:
//	  - name: Person
//	    versions:
//	      - version: 0
//	        fields:
//	          - {name: id, type: string, primary_key: true}
//	          - {name: name, type: string}
//	      - version: 1
//	        fields:
//	          - {name: id, type: string, primary_key: true}
//	          - {name: fullName, type: string, renamed_from: name}
//	          - {name: age, type: integer, default: 0}
//
// Records of file-defined kinds are dynamic maps.
package schemafile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recstore"
	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/value"
)

// File is a decoded schema file.
type File struct {
	Version int    `yaml:"version" json:"version"`
	Kinds   []Kind `yaml:"kinds" json:"kinds"`
}

// Kind is the revision history of one record kind.
type Kind struct {
	Name     string     `yaml:"name" json:"name"`
	Versions []Revision `yaml:"versions" json:"versions"`
}

// Revision is a kind's field list from Version on.
type Revision struct {
	Version int     `yaml:"version" json:"version"`
	Fields  []Field `yaml:"fields" json:"fields"`
}

// Field declares one field of a revision.
type Field struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Optional    bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	RenamedFrom string `yaml:"renamed_from,omitempty" json:"renamed_from,omitempty"`
}

// LoadError is a problem with a schema file, positioned when the source is CUE.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a schema file, choosing the format by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported schema file extension %q (want .yaml, .yml or .cue)", ext)
	}
}

// ParseYAML decodes and validates a YAML schema file. Unknown keys are rejected.
func ParseYAML(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseCUE compiles, decodes and validates a CUE schema file.
// filename is used in error positions only.
func ParseCUE(data []byte, filename string) (*File, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	var f File
	if err := v.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}

// Validate checks the file's structure and builds every kind at every
// version, so schema problems surface at load time.
func (f *File) Validate() error {
	if f.Version < 0 {
		return &LoadError{Field: "version", Message: fmt.Sprintf("must be >= 0, got %d", f.Version)}
	}
	if len(f.Kinds) == 0 {
		return &LoadError{Field: "kinds", Message: "at least one kind is required"}
	}
	seen := make(map[string]bool, len(f.Kinds))
	for i, k := range f.Kinds {
		if k.Name == "" {
			return &LoadError{Field: fmt.Sprintf("kinds[%d].name", i), Message: "name is required"}
		}
		if seen[k.Name] {
			return &LoadError{Field: fmt.Sprintf("kinds[%d].name", i), Message: fmt.Sprintf("duplicate kind %q", k.Name)}
		}
		seen[k.Name] = true

		if len(k.Versions) == 0 || k.Versions[0].Version != 0 {
			return &LoadError{Field: k.Name + ".versions", Message: "the first revision must be version 0"}
		}
		for j := 1; j < len(k.Versions); j++ {
			if k.Versions[j].Version <= k.Versions[j-1].Version {
				return &LoadError{Field: k.Name + ".versions", Message: "revisions must have strictly increasing versions"}
			}
		}
		if last := k.Versions[len(k.Versions)-1].Version; last > f.Version {
			return &LoadError{Field: k.Name + ".versions", Message: fmt.Sprintf("revision %d is past the file version %d", last, f.Version)}
		}
		for v := 0; v <= f.Version; v++ {
			if _, err := f.kindSchema(i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Schema builds kind at version.
func (f *File) Schema(kind string, version int) (*schema.Record, error) {
	i := slices.IndexFunc(f.Kinds, func(k Kind) bool { return k.Name == kind })
	if i < 0 {
		return nil, schema.NewUnknownKindError(kind)
	}
	return f.kindSchema(i, version)
}

func (f *File) kindSchema(i, version int) (*schema.Record, error) {
	k := f.Kinds[i]
	var rev *Revision
	for j := range k.Versions {
		if k.Versions[j].Version <= version {
			rev = &k.Versions[j]
		}
	}
	if rev == nil {
		return nil, &LoadError{Field: k.Name, Message: fmt.Sprintf("no revision at or before version %d", version)}
	}

	b := schema.New()
	for _, fd := range rev.Fields {
		opts, err := fieldOptions(k.Name, fd)
		if err != nil {
			return nil, err
		}
		kind, err := value.ParseKind(fd.Type)
		if err != nil {
			return nil, &LoadError{Field: k.Name + "." + fd.Name + ".type", Message: err.Error()}
		}
		b.Field(fd.Name, kind, opts...)
	}
	return b.Build(k.Name, version)
}

func fieldOptions(kind string, fd Field) ([]schema.Option, error) {
	var opts []schema.Option
	if fd.PrimaryKey {
		opts = append(opts, schema.PrimaryKey())
	}
	if fd.Optional {
		opts = append(opts, schema.Optional())
	}
	if fd.RenamedFrom != "" {
		opts = append(opts, schema.RenamedFrom(fd.RenamedFrom))
	}
	if fd.Default != nil {
		k, err := value.ParseKind(fd.Type)
		if err != nil {
			return nil, &LoadError{Field: kind + "." + fd.Name + ".type", Message: err.Error()}
		}
		def := fd.Default
		if k != value.KindOpaque {
			v, err := value.CoerceJSON(k, fd.Default)
			if err != nil {
				return nil, &LoadError{Field: kind + "." + fd.Name + ".default", Message: err.Error()}
			}
			def = v
		}
		opts = append(opts, schema.Default(def))
	}
	return opts, nil
}

// Model returns the file as a model of dynamic kinds, with the kinds
// indexed by name.
func (f *File) Model() (recstore.Model, map[string]*recstore.Kind[recstore.Record]) {
	m := recstore.Model{Version: f.Version, Kinds: make([]recstore.KindDecl, len(f.Kinds))}
	byName := make(map[string]*recstore.Kind[recstore.Record], len(f.Kinds))
	for i, k := range f.Kinds {
		dyn := recstore.NewDynamicKind(k.Name, func(version int) (*recstore.SchemaRecord, error) {
			return f.kindSchema(i, version)
		})
		m.Kinds[i] = dyn
		byName[k.Name] = dyn
	}
	return m, byName
}

// Registry returns a registry of the file's kinds at its version.
func (f *File) Registry() (*registry.Registry, error) {
	decls := make([]registry.Declaration, len(f.Kinds))
	for i, k := range f.Kinds {
		decls[i] = registry.Declaration{
			Kind:   k.Name,
			Schema: func(version int) (*schema.Record, error) { return f.kindSchema(i, version) },
		}
	}
	return registry.New(f.Version, decls...)
}
