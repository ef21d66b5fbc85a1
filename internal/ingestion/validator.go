package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/salesdw/salesdw/internal/raw"
)

// Sentinel errors for payload validation failures.
var (
	ErrEmptyPayload      = errors.New("payload is empty")
	ErrInvalidJSON       = errors.New("payload is not valid JSON")
	ErrUnexpectedShape   = errors.New("payload does not match the collection shape")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Validator checks that a fetched payload is a JSON document with the shape the
// raw loader expects for its collection: a list of strings for categories and
// a list of objects for the others. Field-level checks are left to the
// dimension builders, which report them with record context.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the number of records in payload, or an error describing why
// it is not a valid collection document.
func (v *Validator) Validate(collection string, payload []byte) (int, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return 0, fmt.Errorf("%s: %w", collection, ErrEmptyPayload)
	}

	if !json.Valid(payload) {
		return 0, fmt.Errorf("%s: %w", collection, ErrInvalidJSON)
	}

	var (
		count int
		err   error
	)

	switch collection {
	case raw.CategoriesCollection:
		var records []string
		err = raw.Decode(bytes.NewReader(payload), &records)
		count = len(records)
	case raw.ProductsCollection:
		var records []raw.Product
		err = raw.Decode(bytes.NewReader(payload), &records)
		count = len(records)
	case raw.UsersCollection:
		var records []raw.User
		err = raw.Decode(bytes.NewReader(payload), &records)
		count = len(records)
	case raw.CartsCollection:
		var records []raw.Cart
		err = raw.Decode(bytes.NewReader(payload), &records)
		count = len(records)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", collection, ErrUnexpectedShape, err)
	}

	return count, nil
}
