package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a problem turning CUE source into a Schema.
type CompileError struct {
	Field   string // field name, or "" for schema-level problems
	Message string
	Pos     token.Pos // CUE position if available
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: field %q: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationError reports a raw value rejected by a field's constraint.
// The store engine surfaces it to the caller wrapped in an InvalidValue
// store error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// cueErrorDetail flattens a CUE error into a single descriptive line.
// CUE errors carry position info and can span multiple underlying errors;
// the first line of Details is the most useful part for a store caller.
func cueErrorDetail(err error) string {
	detail := errors.Details(err, &errors.Config{Cwd: ""})
	if i := strings.IndexByte(detail, '\n'); i >= 0 {
		detail = detail[:i]
	}
	return strings.TrimSpace(detail)
}
