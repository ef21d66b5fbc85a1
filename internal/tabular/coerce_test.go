package tabular

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int64
		wantErr  bool
	}{
		{name: "int", value: 7, expected: 7},
		{name: "int64", value: int64(42), expected: 42},
		{name: "integral float", value: 3.0, expected: 3},
		{name: "json number", value: json.Number("100"), expected: 100},
		{name: "numeric string", value: " 12 ", expected: 12},
		{name: "float string", value: "4.0", expected: 4},
		{name: "integral decimal", value: decimal.NewFromInt(9), expected: 9},
		{name: "fractional float", value: 2.5, wantErr: true},
		{name: "fractional string", value: "2.5", wantErr: true},
		{name: "text", value: "N/A", wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "nil", value: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTypeCoercion)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected float64
		wantErr  bool
	}{
		{name: "float", value: 109.95, expected: 109.95},
		{name: "int", value: 10, expected: 10},
		{name: "json number", value: json.Number("22.3"), expected: 22.3},
		{name: "string", value: "55.99", expected: 55.99},
		{name: "decimal", value: decimal.RequireFromString("7.95"), expected: 7.95},
		{name: "not available", value: "N/A", wantErr: true},
		{name: "nan string", value: "NaN", wantErr: true},
		{name: "empty string", value: "", wantErr: true},
		{name: "slice", value: []any{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToFloat(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTypeCoercion)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestToString(t *testing.T) {
	got, err := ToString(json.Number("-37.3159"))
	require.NoError(t, err)
	assert.Equal(t, "-37.3159", got)

	got, err = ToString(int64(3))
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	_, err = ToString(nil)
	require.ErrorIs(t, err, ErrTypeCoercion)

	_, err = ToString(map[string]any{"firstname": "john"})
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestToTime(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Time
	}{
		{"2020-03-02T00:00:00.000Z", time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"2020-01-02T00:00:00Z", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2020-03-01T10:30:00", time.Date(2020, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2020-03-01 10:30:00", time.Date(2020, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2020-03-01", time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ToTime(tt.value)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}

	_, err := ToTime("yesterday")
	require.ErrorIs(t, err, ErrTypeCoercion)

	_, err = ToTime(12345)
	require.ErrorIs(t, err, ErrTypeCoercion)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		value    any
		typ      ColumnType
		expected string
	}{
		{int64(5), Int, "5"},
		{3.0, Int, "3"},
		{132.25, Float, "132.25"},
		{30.0, Float, "30"},
		{"men's clothing", String, "men's clothing"},
		{time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Datetime, "2020-03-02T00:00:00Z"},
		{"2020-03-02T00:00:00.000Z", Datetime, "2020-03-02T00:00:00Z"},
	}

	for _, tt := range tests {
		got, err := Format(tt.value, tt.typ)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}

	_, err := Format(1, ColumnType("uuid"))
	require.ErrorIs(t, err, ErrUnknownColumnType)
}

func TestCoercionErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("bad digit")
	err := &CoercionError{Table: "product_dimension", Column: "price", Row: 2, Type: Float, Value: "N/A", Err: cause}

	assert.ErrorIs(t, err, ErrTypeCoercion)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `cannot coerce product_dimension.price (row 2) value "N/A" to float: bad digit`, err.Error())
}
