package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"linkvault/internal/logging"
	"linkvault/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// schemaVersion is recorded in the metadata table on first initialization.
const schemaVersion = "1"

// Database manages all bookmark store operations. Mutating operations take
// the write lock and run inside one transaction; reads take the read lock.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the bookmark database at dbPath and ensures the
// schema exists. dbPath must be the full path to the database file and its
// parent directory must already exist and be writable; use
// startup.LoadConfig() to validate that before calling this.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Database path: %s", dbPath)

	// WAL mode for concurrent readers, busy_timeout to ride out writer
	// contention, foreign keys for the tags -> bookmarks cascade.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized at %s", dbPath)
	return d, nil
}

// initialize creates tables, indexes and triggers. Safe to run against an
// existing, populated database.
func (d *Database) initialize(ctx context.Context) error {
	done := observeQuery("initialize_schema")

	schema := `
	-- Bookmark table
	CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE CHECK(url <> ''),
		description TEXT NOT NULL DEFAULT '',
		creation_time INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_creation_time ON bookmarks(creation_time);

	-- Tag relation, pair-unique
	CREATE TABLE IF NOT EXISTS tags (
		tag_name TEXT NOT NULL CHECK(tag_name <> ''),
		bookmark_id INTEGER NOT NULL REFERENCES bookmarks(id) ON DELETE CASCADE,
		UNIQUE(tag_name, bookmark_id)
	);

	CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(tag_name);
	CREATE INDEX IF NOT EXISTS idx_tags_bookmark ON tags(bookmark_id);

	-- Adding a done tag clears any todo tag on the same bookmark,
	-- atomically with the insert.
	CREATE TRIGGER IF NOT EXISTS tags_done_clears_todo AFTER INSERT ON tags
	WHEN new.tag_name = 'done' BEGIN
		DELETE FROM tags WHERE bookmark_id = new.bookmark_id AND tag_name = 'todo';
	END;

	-- Favorites: a flat unique path set
	CREATE TABLE IF NOT EXISTS favorites (
		path TEXT NOT NULL UNIQUE
	);

	-- Full-text search over name/url/description with trigram tokens so
	-- partial-word queries match. creation_time is carried for retrieval.
	CREATE VIRTUAL TABLE IF NOT EXISTS bookmarks_fts USING fts5(
		name,
		url,
		creation_time UNINDEXED,
		description,
		content='bookmarks',
		content_rowid='id',
		tokenize='trigram'
	);

	CREATE TRIGGER IF NOT EXISTS bookmarks_ai AFTER INSERT ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(rowid, name, url, creation_time, description)
		VALUES (new.id, new.name, new.url, new.creation_time, new.description);
	END;

	CREATE TRIGGER IF NOT EXISTS bookmarks_ad AFTER DELETE ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(bookmarks_fts, rowid, name, url, creation_time, description)
		VALUES ('delete', old.id, old.name, old.url, old.creation_time, old.description);
	END;

	CREATE TRIGGER IF NOT EXISTS bookmarks_au AFTER UPDATE ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(bookmarks_fts, rowid, name, url, creation_time, description)
		VALUES ('delete', old.id, old.name, old.url, old.creation_time, old.description);
		INSERT INTO bookmarks_fts(rowid, name, url, creation_time, description)
		VALUES (new.id, new.name, new.url, new.creation_time, new.description);
	END;

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := d.db.ExecContext(ctx, schema)
	if err != nil {
		done(err)
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO NOTHING
	`, schemaVersion)
	done(err)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database file.
func (d *Database) Vacuum(ctx context.Context) error {
	done := observeQuery("vacuum")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "VACUUM")
	done(err)
	return err
}

// GetStats returns current store totals for the metrics collector.
// Failures degrade to zero values; stats are advisory.
func (d *Database) GetStats() metrics.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT count(*) FROM bookmarks WHERE " + notPrivate("id"), &stats.TotalBookmarks},
		{"SELECT count(DISTINCT tag_name) FROM tags", &stats.TotalTags},
		{"SELECT count(*) FROM favorites", &stats.TotalFavorites},
	}
	for _, q := range queries {
		if err := d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			logging.Error("stats query failed: %v", err)
		}
	}

	metrics.DBConnectionsOpen.Set(float64(d.db.Stats().OpenConnections))
	return stats
}

// observeQuery starts a metric observation for one store operation and
// returns the completion callback.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// endTx commits the transaction when err is nil and rolls it back
// otherwise, recording the transaction duration either way.
func endTx(tx *sql.Tx, started time.Time, err error) error {
	duration := time.Since(started).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// querier lets bookmark scans run against either the pooled handle or an
// open transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// notPrivate builds the privacy exclusion predicate for the given bookmark
// id column: any bookmark carrying a tag whose name starts with "private"
// is hidden from default listings, counts and search.
func notPrivate(idColumn string) string {
	return idColumn + ` NOT IN (SELECT DISTINCT bookmark_id FROM tags WHERE tag_name LIKE 'private%')`
}

// bookmarkSelect is the canonical bookmark projection: scalar columns plus
// a denormalized comma-joined tag list.
const bookmarkSelect = `
	SELECT b.id, b.name, b.url, b.description, b.creation_time, bt.tags
	FROM bookmarks b LEFT JOIN
		(SELECT bookmark_id, group_concat(tag_name) AS tags FROM tags GROUP BY bookmark_id) bt
	ON b.id = bt.bookmark_id`

// splitTags turns a group_concat tag column into a sorted, deduplicated
// tag slice.
func splitTags(concat sql.NullString) []string {
	if !concat.Valid || concat.String == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, tag := range strings.Split(concat.String, ",") {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// scanBookmark reads one row of the canonical bookmark projection.
func scanBookmark(row interface{ Scan(...interface{}) error }) (*Bookmark, error) {
	var b Bookmark
	var tags sql.NullString

	if err := row.Scan(&b.ID, &b.Name, &b.URL, &b.Description, &b.CreationTime, &tags); err != nil {
		return nil, err
	}
	b.Tags = splitTags(tags)
	return &b, nil
}

// collectBookmarks drains a canonical-projection result set.
func collectBookmarks(rows *sql.Rows) ([]Bookmark, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var bookmarks []Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		bookmarks = append(bookmarks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return bookmarks, nil
}
