package warehouse

import (
	"errors"
	"strings"

	"github.com/salesdw/salesdw/internal/raw"
	"github.com/salesdw/salesdw/internal/tabular"
)

// Error kinds. Every build failure is a *DataError whose Kind is one of these,
// so callers can branch with errors.Is and read identifiers with errors.As.
var (
	// ErrMissingReference is returned when a foreign key (product id, category name) cannot be resolved.
	ErrMissingReference = errors.New("missing reference")
	// ErrTypeCoercion is returned when a raw value cannot be cast to its declared type.
	ErrTypeCoercion = tabular.ErrTypeCoercion
	// ErrMalformedInput is returned when an expected key or nested object is absent.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDuplicateKey is returned when a key that must be unique appears twice.
	ErrDuplicateKey = errors.New("duplicate key")
)

// DataError describes one offending record.
type DataError struct {
	Kind   error  // one of the Err* kinds above
	Table  string // output table being built
	Record string // source record, e.g. "cart 7" or "product at index 3"
	Field  string // offending field path, e.g. "address.geolocation.lat"
	Err    error  // underlying cause, may be nil
}

func (e *DataError) Error() string {
	parts := []string{e.Kind.Error(), e.Table}

	if e.Record != "" {
		parts = append(parts, e.Record)
	}

	if e.Field != "" {
		parts = append(parts, e.Field)
	}

	msg := strings.Join(parts, ": ")

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes the kind and the underlying cause.
func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newDataError(kind error, table, record, field string, err error) *DataError {
	return &DataError{
		Kind:   kind,
		Table:  table,
		Record: record,
		Field:  field,
		Err:    err,
	}
}

// fieldError classifies a raw field failure: absent keys and objects in place of
// scalars are malformed input, everything else is a coercion failure.
func fieldError(table, record, field string, err error) *DataError {
	kind := ErrTypeCoercion
	if errors.Is(err, raw.ErrMissingField) || errors.Is(err, raw.ErrNotScalar) {
		kind = ErrMalformedInput
	}

	return newDataError(kind, table, record, field, err)
}

func missingObject(table, record, field string) *DataError {
	return newDataError(ErrMalformedInput, table, record, field, raw.ErrMissingField)
}
