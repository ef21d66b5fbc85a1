package raw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salesdw/salesdw/internal/tabular"
)

var (
	// ErrMissingField is returned when a scalar key is absent or null.
	ErrMissingField = errors.New("field is missing")
	// ErrNotScalar is returned when a scalar key holds an object or array.
	ErrNotScalar = errors.New("field is not a scalar")
)

// Field is a JSON scalar kept undecoded until a dimension builder asks for a
// concrete type. A key that is absent and a key that is null both report
// Present() == false.
type Field struct {
	raw json.RawMessage
}

// NewField builds a Field from a Go value, mainly for tests and fixtures.
func NewField(value any) Field {
	data, err := json.Marshal(value)
	if err != nil {
		return Field{}
	}

	return Field{raw: data}
}

// UnmarshalJSON keeps the raw token.
func (f *Field) UnmarshalJSON(data []byte) error {
	f.raw = append(f.raw[:0], data...)

	return nil
}

// MarshalJSON writes the raw token back, or null when absent.
func (f Field) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}

	return f.raw, nil
}

// Present reports whether the key was set to a non-null value.
func (f Field) Present() bool {
	trimmed := bytes.TrimSpace(f.raw)

	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Raw returns the undecoded token text.
func (f Field) Raw() string {
	return string(f.raw)
}

// Value decodes the token into a string, json.Number or bool.
func (f Field) Value() (any, error) {
	if !f.Present() {
		return nil, ErrMissingField
	}

	decoder := json.NewDecoder(bytes.NewReader(f.raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %w", tabular.ErrTypeCoercion, err)
	}

	switch value.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("%w: got %s", ErrNotScalar, f.raw)
	}

	return value, nil
}

// Int coerces the field to an integer; numeric strings are accepted.
func (f Field) Int() (int64, error) {
	value, err := f.Value()
	if err != nil {
		return 0, err
	}

	return tabular.ToInt(value)
}

// Float coerces the field to a float; numeric strings are accepted.
func (f Field) Float() (float64, error) {
	value, err := f.Value()
	if err != nil {
		return 0, err
	}

	return tabular.ToFloat(value)
}

// Decimal coerces the field to an exact decimal, for money.
func (f Field) Decimal() (decimal.Decimal, error) {
	value, err := f.Value()
	if err != nil {
		return decimal.Zero, err
	}

	var text string

	switch v := value.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = v
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported %T for decimal", tabular.ErrTypeCoercion, value)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not numeric", tabular.ErrTypeCoercion, text)
	}

	return d, nil
}

// Text coerces the field to text; numbers keep their source spelling.
func (f Field) Text() (string, error) {
	value, err := f.Value()
	if err != nil {
		return "", err
	}

	return tabular.ToString(value)
}

// Time parses the field as a timestamp.
func (f Field) Time() (time.Time, error) {
	value, err := f.Value()
	if err != nil {
		return time.Time{}, err
	}

	return tabular.ToTime(value)
}
