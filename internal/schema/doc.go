// Package schema compiles CUE field definitions into the validated,
// defaultable field descriptors the store engine consumes.
//
// A schema is a CUE file (or string) with one constraint per field under a
// top-level "fields" struct. Defaults use CUE's native default marker:
//
//	fields: {
//		count: int & >=0 | *0
//		name:  string | *"anonymous"
//		theme: "light" | "dark" | *"light"
//	}
//
// Each field becomes a Field descriptor: an immutable (name, default,
// validator) triple created once at compile time. Validation is CUE
// unification: a raw value is unified with the field's constraint and must
// come out concrete and error-free. The engine never interprets constraints
// itself; "validate(raw) → value or failure" is the whole contract.
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package schema
