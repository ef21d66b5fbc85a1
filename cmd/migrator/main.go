// Package main provides the warehouse schema migration CLI.
//
// Migrations are embedded in the binary; MIGRATIONS_PATH points the tool at a
// directory of .sql files instead.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/salesdw/salesdw/internal/config"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "migrator"
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	var (
		configHelp  = flag.Bool("help", false, "Show help information")
		showVersion = flag.Bool("version", false, "Show version information")
		assumeYes   = flag.Bool("yes", false, "Skip the confirmation prompt of drop")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if *configHelp || flag.NArg() < 1 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	command := flag.Arg(0)
	logger := config.NewLogger()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner, err := NewMigrationRunner(cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("Failed to create migration runner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = executeCommand(command, runner, confirm(os.Stdin, os.Stdout, *assumeYes))

	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("Failed to close migration runner", slog.String("error", closeErr.Error()))
	}

	if err != nil {
		logger.Error("Migration failed", slog.String("command", command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// executeCommand runs the specified migration command. confirmed is asked before drop.
func executeCommand(command string, runner MigrationRunner, confirmed func(prompt string) bool) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "status":
		return runner.Status()
	case "version":
		return runner.Version()
	case "drop":
		if !confirmed("WARNING: This will drop all warehouse tables. Are you sure? (y/N): ") {
			fmt.Println("Operation cancelled.")

			return nil
		}

		return runner.Drop()
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

// confirm returns a prompt function answering from in, or always yes when assumeYes is set.
func confirm(in io.Reader, out io.Writer, assumeYes bool) func(string) bool {
	return func(prompt string) bool {
		if assumeYes {
			return true
		}

		_, _ = fmt.Fprint(out, prompt)

		line, _ := bufio.NewReader(in).ReadString('\n')
		answer := strings.TrimSpace(line)

		return answer == "y" || answer == "Y"
	}
}

// printUsage displays usage information.
func printUsage(out io.Writer) {
	_, _ = fmt.Fprintf(out, `%s v%s - Warehouse schema migration tool

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    up      Apply all pending migrations
    down    Rollback the last migration
    status  Show migration status
    version Show current migration version
    drop    Drop all tables (requires confirmation)

OPTIONS:
    -help     Show this help message
    -version  Show version information
    -yes      Do not ask for confirmation before drop

ENVIRONMENT VARIABLES:
    DATABASE_URL     PostgreSQL connection string (REQUIRED)
    MIGRATIONS_PATH  Directory of .sql migrations (default: embedded)
    MIGRATION_TABLE  Migration tracking table (default: schema_migrations)
    LOG_LEVEL        debug, info, warn or error (default: info)

EXAMPLES:
    %s up
    %s status
    %s -yes drop
`, name, version, name, name, name, name)
}
