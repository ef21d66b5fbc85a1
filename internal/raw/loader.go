package raw

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrCollectionMissing is returned when a collection file does not exist.
	ErrCollectionMissing = errors.New("raw collection file not found")
	// ErrCollectionDecode is returned when a collection file is not the expected JSON shape.
	ErrCollectionDecode = errors.New("raw collection could not be decoded")
)

// Path returns the file path of a collection inside dir.
func Path(dir, collection string) string {
	return filepath.Join(dir, collection+".json")
}

// LoadCollections reads categories, products, users and carts from dir.
func LoadCollections(dir string) (*Collections, error) {
	collections := &Collections{}

	targets := []struct {
		name string
		dest any
	}{
		{CategoriesCollection, &collections.Categories},
		{ProductsCollection, &collections.Products},
		{UsersCollection, &collections.Users},
		{CartsCollection, &collections.Carts},
	}

	for _, target := range targets {
		if err := LoadFile(Path(dir, target.name), target.dest); err != nil {
			return nil, err
		}
	}

	return collections, nil
}

// LoadFile decodes one JSON collection file into dest.
func LoadFile(path string, dest any) error {
	f, err := os.Open(path) //nolint:gosec // path comes from pipeline configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCollectionMissing, path)
		}

		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	if err := Decode(f, dest); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// Decode reads exactly one JSON document from r into dest.
func Decode(r io.Reader, dest any) error {
	decoder := json.NewDecoder(r)

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrCollectionDecode, err)
	}

	if decoder.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrCollectionDecode)
	}

	return nil
}
