package tabula

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by One on an empty query.
	ErrNotFound = errors.New("query has no results")
	// ErrNotUnique is returned when a set or create would duplicate an
	// existing unique field combination.
	ErrNotUnique = errors.New("not unique")
	// ErrReadOnly is returned when overwriting a read-only field that
	// already holds a value.
	ErrReadOnly = errors.New("field is read-only")
	// ErrUnordered is returned by ordering comparisons on values that have
	// no sort key.
	ErrUnordered = errors.New("value does not support ordering comparisons")
	// ErrNoAddContext is returned by Add on a query that is not a
	// conjunction of field-equality constraints on a single table.
	ErrNoAddContext = errors.New("cannot add: no single table defined")
	// ErrUnknownField is returned when a name does not resolve to a field
	// or join of the table.
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError reports a failed validate hook or field validator.
type ValidationError struct {
	cause error
}

func NewValidationError(cause error) *ValidationError {
	return &ValidationError{cause: cause}
}

func (e *ValidationError) Error() string { return "validation failed: " + e.cause.Error() }
func (e *ValidationError) Unwrap() error { return e.cause }

// asValidationError converts assertion-style hook failures to a single
// validation error kind, leaving already-converted errors alone.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return NewValidationError(err)
}

// ConsistencyError reports a fatal inconsistency in the data structure, such
// as an index removal for a pair that is not present. It is a bug in the
// caller, not a recoverable condition.
type ConsistencyError struct {
	msg string
}

func NewConsistencyError(msg string) *ConsistencyError { return &ConsistencyError{msg: msg} }

func (e *ConsistencyError) Error() string { return e.msg }
