package schema

import (
	"cuelang.org/go/cue"

	"github.com/magicbutton/state/internal/atom"
)

// Validate checks a raw value against the field's constraint and returns
// the validated value.
//
// Validation is CUE unification: the raw value is unified with the
// constraint and must come out concrete and error-free. The returned value
// is re-decoded from the unified result so defaults inside nested structs
// are filled in.
//
// On failure the store is expected to leave its state untouched; Validate
// itself never has side effects.
func (f *Field) Validate(raw atom.Value) (atom.Value, error) {
	if raw == nil {
		raw = atom.Null{}
	}

	data, err := atom.Marshal(raw)
	if err != nil {
		return nil, &ValidationError{Field: f.name, Message: err.Error()}
	}

	// JSON is a subset of CUE, so the raw value compiles directly.
	rv := f.ctx.CompileBytes(data)
	if err := rv.Err(); err != nil {
		return nil, &ValidationError{Field: f.name, Message: cueErrorDetail(err)}
	}

	unified := f.constraint.Unify(rv)
	if err := unified.Err(); err != nil {
		return nil, &ValidationError{Field: f.name, Message: cueErrorDetail(err)}
	}
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, &ValidationError{Field: f.name, Message: cueErrorDetail(err)}
	}

	out, err := decodeCUE(f.name, unified)
	if err != nil {
		return nil, &ValidationError{Field: f.name, Message: err.Error()}
	}
	return out, nil
}
