// Package main provides the entry point for the linkvault command.
//
// linkvault is a self-hosted personal bookmark manager backed by a single
// SQLite database file. It provides tagging, trigram full-text search with
// highlighting, favorites, CSV export, and a deduplicating bulk importer.
//
// # Command Lifecycle
//
// Every invocation follows the same sequence:
//
//  1. Flag parsing: flags must precede the command so tag arguments like
//     "-done" pass through untouched
//  2. Configuration loading: reads environment variables and validates
//     write access to the database directory
//  3. Database initialization: opens the SQLite database with FTS5
//     full-text search and ensures the schema exists
//  4. Metrics (optional): starts the Prometheus stats collector and
//     scrape endpoint when a metrics address is configured
//  5. Command dispatch: runs the requested subcommand and prints its
//     result to stdout
//
// # Environment Variables
//
//   - LINKVAULT_DB: Path to the database file (default: linkvault.db)
//   - METRICS_ADDR: Prometheus listen address; metrics are disabled when
//     unset
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - DEBUG: Shorthand for LOG_LEVEL=debug when set to "true"
//
// # Build Requirements
//
// The binary requires CGO for SQLite, and the full-text schema requires
// the driver to be compiled with FTS5 support, which mattn/go-sqlite3
// only includes under a build tag:
//
//	go build -tags 'fts5' -o linkvault ./cmd/linkvault
//
// The same tag is required for go test; without it, opening the database
// fails at schema initialization with "no such module: fts5".
package main
