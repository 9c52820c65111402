package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/magicbutton/state/internal/atom"
)

// Field is one named, validated, defaultable unit of state.
// Created once at schema compile time and never mutated afterward.
type Field struct {
	name       string
	def        atom.Value
	constraint cue.Value
	ctx        *cue.Context
}

// Name returns the field's unique identifier.
func (f *Field) Name() string { return f.name }

// Default returns the field's default value.
func (f *Field) Default() atom.Value { return f.def }

// Schema holds the compiled field descriptors in declaration order.
type Schema struct {
	fields []*Field
	byName map[string]*Field
}

// Compile turns a CUE value with a top-level "fields" struct into a Schema.
//
// Every field must have a default: either a CUE default marker
// (int | *0) or a fully concrete value (count: 0). A field constraint
// without any default is a compile error because the store builds its
// first snapshot from defaults.
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Message: cueErrorDetail(err), Pos: v.Pos()}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Message: `schema must declare a top-level "fields" struct`, Pos: v.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, &CompileError{Message: cueErrorDetail(err), Pos: fieldsVal.Pos()}
	}

	s := &Schema{byName: make(map[string]*Field)}
	for iter.Next() {
		name := iter.Label()
		fv := iter.Value()

		def, err := extractDefault(name, fv)
		if err != nil {
			return nil, err
		}

		f := &Field{
			name:       name,
			def:        def,
			constraint: fv,
			ctx:        fv.Context(),
		}
		s.fields = append(s.fields, f)
		s.byName[name] = f
	}

	if len(s.fields) == 0 {
		return nil, &CompileError{Message: "schema declares no fields", Pos: fieldsVal.Pos()}
	}
	return s, nil
}

// CompileString compiles CUE source text into a Schema.
func CompileString(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	return Compile(v)
}

// LoadFile reads and compiles a CUE schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return Compile(v)
}

// extractDefault resolves a field's default value.
// cue.Value.Default returns the value selected by default markers; for a
// constraint without markers it returns the value itself, which only
// serves as a default when it is already concrete.
func extractDefault(name string, fv cue.Value) (atom.Value, error) {
	def, _ := fv.Default()
	if err := def.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, &CompileError{
			Field:   name,
			Message: "no default value (use a CUE default marker, e.g. int | *0)",
			Pos:     fv.Pos(),
		}
	}
	return decodeCUE(name, def)
}

// decodeCUE converts a concrete CUE value into an atom.Value, preserving
// the int/float distinction via json.Number-aware decoding.
func decodeCUE(name string, v cue.Value) (atom.Value, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, &CompileError{Field: name, Message: cueErrorDetail(err), Pos: v.Pos()}
	}
	val, err := atom.Decode(data)
	if err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	return val, nil
}

// FieldIDs returns field names in declaration order.
func (s *Schema) FieldIDs() []string {
	ids := make([]string, len(s.fields))
	for i, f := range s.fields {
		ids[i] = f.name
	}
	return ids
}

// Has reports whether the schema declares the named field.
func (s *Schema) Has(id string) bool {
	_, ok := s.byName[id]
	return ok
}

// Field returns the named field descriptor.
func (s *Schema) Field(id string) (*Field, bool) {
	f, ok := s.byName[id]
	return f, ok
}

// Default returns the named field's default value.
func (s *Schema) Default(id string) (atom.Value, bool) {
	f, ok := s.byName[id]
	if !ok {
		return nil, false
	}
	return f.def, true
}

// Validate runs the named field's validator over a raw value.
// Unknown fields fail with a ValidationError naming the field.
func (s *Schema) Validate(id string, raw atom.Value) (atom.Value, error) {
	f, ok := s.byName[id]
	if !ok {
		return nil, &ValidationError{Field: id, Message: "not declared in schema"}
	}
	return f.Validate(raw)
}
