// Package migrations embeds the warehouse DDL as golang-migrate SQL files.
//
// Files follow the strict naming standard 001_name.up.sql / 001_name.down.sql:
// every up file needs a down file, and sequences start at 001 without gaps.
package migrations

import (
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var embedded embed.FS

// Migration filename regex: 001_migration_name.up.sql or 001_migration_name.down.sql.
var filenamePattern = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

var (
	// ErrNoMigrations is returned when the file set holds no migration files.
	ErrNoMigrations = errors.New("no embedded migration files found")
	// ErrInvalidFilename is returned for a .sql file outside the naming standard.
	ErrInvalidFilename = errors.New("invalid migration filename")
	// ErrUnpairedMigration is returned when an up or down file lacks its counterpart.
	ErrUnpairedMigration = errors.New("unpaired migration")
	// ErrSequenceGap is returned when sequence numbers do not run 001, 002, ... without gaps.
	ErrSequenceGap = errors.New("migration sequence gap")
)

type (
	// Set is a validated view over a directory of migration files.
	Set struct {
		fs fs.FS
	}

	// Info describes one migration file.
	Info struct {
		Sequence  int
		Name      string
		Direction string // "up" or "down"
		Filename  string
		Checksum  string
	}
)

// FS returns the embedded migration files, rooted at ".".
func FS() fs.FS {
	return embedded
}

// NewSet wraps a migration filesystem. Pass nil for the embedded warehouse migrations.
func NewSet(filesystem fs.FS) *Set {
	if filesystem == nil {
		filesystem = embedded
	}

	return &Set{fs: filesystem}
}

// FS returns the filesystem backing this set.
func (s *Set) FS() fs.FS {
	return s.fs
}

// List returns all files matching the naming standard, sorted lexicographically.
// Non-.sql files are ignored; .sql files with a bad name are ignored here and
// reported by Validate.
func (s *Set) List() ([]string, error) {
	entries, err := fs.ReadDir(s.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if filenamePattern.MatchString(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)

	return files, nil
}

// Validate checks naming, up/down pairing and sequence continuity.
func (s *Set) Validate() error {
	entries, err := fs.ReadDir(s.fs, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var infos []*Info

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}

		info, err := parseFilename(entry.Name())
		if err != nil {
			return err
		}

		infos = append(infos, info)
	}

	if len(infos) == 0 {
		return ErrNoMigrations
	}

	if err := validatePairing(infos); err != nil {
		return err
	}

	return validateSequence(infos)
}

// Infos returns parsed metadata with a SHA-256 checksum for every migration file.
func (s *Set) Infos() ([]*Info, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	infos := make([]*Info, 0, len(files))

	for _, file := range files {
		info, err := parseFilename(file)
		if err != nil {
			return nil, err
		}

		content, err := s.Content(file)
		if err != nil {
			return nil, err
		}

		info.Checksum = fmt.Sprintf("%x", sha256.Sum256(content))
		infos = append(infos, info)
	}

	return infos, nil
}

// Content returns the raw SQL of one migration file.
func (s *Set) Content(filename string) ([]byte, error) {
	content, err := fs.ReadFile(s.fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
	}

	return content, nil
}

// MaxVersion returns the highest sequence number in the set, or 0 when empty.
func (s *Set) MaxVersion() int {
	files, err := s.List()
	if err != nil {
		return 0
	}

	maxSequence := 0

	for _, file := range files {
		if info, err := parseFilename(file); err == nil && info.Sequence > maxSequence {
			maxSequence = info.Sequence
		}
	}

	return maxSequence
}

func parseFilename(filename string) (*Info, error) {
	matches := filenamePattern.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf("%w: %s (expected: 001_name.up.sql or 001_name.down.sql)",
			ErrInvalidFilename, filename)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad sequence in %s: %w", ErrInvalidFilename, filename, err)
	}

	return &Info{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

func validatePairing(infos []*Info) error {
	directions := make(map[string]map[string]bool)

	for _, info := range infos {
		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if directions[key] == nil {
			directions[key] = make(map[string]bool)
		}

		directions[key][info.Direction] = true
	}

	keys := make([]string, 0, len(directions))
	for key := range directions {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if !directions[key]["up"] {
			return fmt.Errorf("%w: missing up migration for %s", ErrUnpairedMigration, key)
		}

		if !directions[key]["down"] {
			return fmt.Errorf("%w: missing down migration for %s", ErrUnpairedMigration, key)
		}
	}

	return nil
}

func validateSequence(infos []*Info) error {
	seen := make(map[int]bool)

	var sequences []int

	for _, info := range infos {
		if !seen[info.Sequence] {
			seen[info.Sequence] = true
			sequences = append(sequences, info.Sequence)
		}
	}

	sort.Ints(sequences)

	if sequences[0] != 1 {
		return fmt.Errorf("%w: sequence should start with 001, found %03d", ErrSequenceGap, sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if expected := sequences[i-1] + 1; sequences[i] != expected {
			return fmt.Errorf("%w: expected %03d, found %03d", ErrSequenceGap, expected, sequences[i])
		}
	}

	return nil
}
