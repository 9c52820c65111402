package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeInvalidValue indicates a field validator rejected the input.
	// Surfaced synchronously to the caller; the store is left unchanged.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeUnknownField indicates a change referenced a field not in the
	// schema. Local callers get this error; remote events are dropped and
	// logged instead.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeAdapterFailure indicates a persistence or transport call
	// failed. In-memory state is authoritative and unaffected; no retry.
	ErrCodeAdapterFailure ErrorCode = "ADAPTER_FAILURE"

	// ErrCodeTransactionDone indicates use of a committed or rolled-back
	// transaction.
	ErrCodeTransactionDone ErrorCode = "TRANSACTION_DONE"

	// ErrCodeUnknownSelector indicates an operation on an unregistered
	// selector id.
	ErrCodeUnknownSelector ErrorCode = "UNKNOWN_SELECTOR"

	// ErrCodeDuplicateSelector indicates a selector id registered twice
	// without disposal in between.
	ErrCodeDuplicateSelector ErrorCode = "DUPLICATE_SELECTOR"

	// ErrCodeTimelineEntry indicates TravelTo with an id not in the log.
	ErrCodeTimelineEntry ErrorCode = "TIMELINE_ENTRY_NOT_FOUND"

	// ErrCodeStoreClosed indicates a mutation after Close.
	ErrCodeStoreClosed ErrorCode = "STORE_CLOSED"
)

// StoreError is the typed error returned by store operations.
type StoreError struct {
	Code    ErrorCode
	Field   string // affected field id, when applicable
	Message string
	Err     error // underlying cause, when applicable
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", e.Code, e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsInvalidValue reports whether err is a validator rejection.
// Uses errors.As to handle wrapped errors.
func IsInvalidValue(err error) bool { return hasCode(err, ErrCodeInvalidValue) }

// IsUnknownField reports whether err references a field outside the schema.
func IsUnknownField(err error) bool { return hasCode(err, ErrCodeUnknownField) }

// IsTransactionDone reports whether err is use of a terminal transaction.
func IsTransactionDone(err error) bool { return hasCode(err, ErrCodeTransactionDone) }

// IsUnknownSelector reports whether err is an unregistered selector id.
func IsUnknownSelector(err error) bool { return hasCode(err, ErrCodeUnknownSelector) }

func hasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newInvalidValue(field string, err error) *StoreError {
	return &StoreError{Code: ErrCodeInvalidValue, Field: field, Err: err}
}

func newUnknownField(field string) *StoreError {
	return &StoreError{Code: ErrCodeUnknownField, Field: field, Message: "not declared in schema"}
}

func newTransactionDone() *StoreError {
	return &StoreError{Code: ErrCodeTransactionDone, Message: "transaction already committed or rolled back"}
}
