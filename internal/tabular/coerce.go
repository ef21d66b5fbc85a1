package tabular

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTypeCoercion is returned when a value cannot be represented in its declared type.
var ErrTypeCoercion = errors.New("type coercion failed")

// datetimeLayouts are tried in order when a datetime arrives as a string.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoercionError reports a single value that could not be coerced.
// It matches ErrTypeCoercion with errors.Is.
type CoercionError struct {
	Table  string
	Column string
	Row    int // 1-based data row, 0 when not row-scoped
	Type   ColumnType
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	var b strings.Builder

	b.WriteString("cannot coerce ")

	if e.Table != "" {
		b.WriteString(e.Table)
		b.WriteString(".")
	}

	b.WriteString(e.Column)

	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}

	fmt.Fprintf(&b, " value %#v to %s", e.Value, e.Type)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both ErrTypeCoercion and the underlying parse error.
func (e *CoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTypeCoercion}
	}

	return []error{ErrTypeCoercion, e.Err}
}

// Coerce converts value to the Go representation of typ:
// int64 for Int, float64 for Float, string for String and time.Time for Datetime.
// Errors wrap ErrTypeCoercion.
func Coerce(value any, typ ColumnType) (any, error) {
	switch typ {
	case Int:
		return ToInt(value)
	case Float:
		return ToFloat(value)
	case String:
		return ToString(value)
	case Datetime:
		return ToTime(value)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumnType, typ)
	}
}

// ToInt converts integers, integral floats, json.Number and numeric strings to int64.
// Fractional values are rejected rather than truncated.
func ToInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return floatToInt(v)
	case json.Number:
		return stringToInt(v.String())
	case decimal.Decimal:
		if !v.IsInteger() {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrTypeCoercion, v.String())
		}

		return v.IntPart(), nil
	case string:
		return stringToInt(v)
	default:
		return 0, unsupported(value, Int)
	}
}

// ToFloat converts numbers, decimals, json.Number and numeric strings to a finite float64.
func ToFloat(value any) (float64, error) {
	var (
		f   float64
		err error
	)

	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case decimal.Decimal:
		f = v.InexactFloat64()
	case json.Number:
		f, err = strconv.ParseFloat(v.String(), 64)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, unsupported(value, Float)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrTypeCoercion, fmt.Sprint(value))
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrTypeCoercion, f)
	}

	return f, nil
}

// ToString converts strings, numbers and json.Number to their text form.
// nil and composite values are rejected: there is no silent null-filling.
func ToString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", unsupported(value, String)
	}
}

// ToTime converts time.Time or a timestamp string to time.Time.
func ToTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
		}

		return time.Time{}, fmt.Errorf("%w: %q is not a recognised timestamp", ErrTypeCoercion, v)
	default:
		return time.Time{}, unsupported(value, Datetime)
	}
}

// Format coerces value to typ and renders it as CSV text.
// Floats use the shortest representation that round-trips; datetimes use RFC 3339.
func Format(value any, typ ColumnType) (string, error) {
	coerced, err := Coerce(value, typ)
	if err != nil {
		return "", err
	}

	switch v := coerced.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case string:
		return v, nil
	default:
		return "", unsupported(value, typ)
	}
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrTypeCoercion, f)
	}

	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v overflows int64", ErrTypeCoercion, f)
	}

	return int64(f), nil
}

func stringToInt(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i, nil
	}

	// "3.0" is an integer written as a float.
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return floatToInt(f)
	}

	return 0, fmt.Errorf("%w: %q is not an integer", ErrTypeCoercion, s)
}

func unsupported(value any, typ ColumnType) error {
	if value == nil {
		return fmt.Errorf("%w: null value for %s column", ErrTypeCoercion, typ)
	}

	return fmt.Errorf("%w: unsupported %T for %s column", ErrTypeCoercion, value, typ)
}
