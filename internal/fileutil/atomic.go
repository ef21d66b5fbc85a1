// Package fileutil writes pipeline output files.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirPermissions is the mode of every output directory the pipeline creates.
	DirPermissions = 0o755

	// FilePermissions is the mode of every output file the pipeline writes.
	FilePermissions = 0o644
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// WriteAtomic writes data to a temp file beside path and renames it into place,
// so readers see either the old file or the complete new one.
func WriteAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Chmod(tmpName, FilePermissions); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}
