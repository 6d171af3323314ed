package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"linkvault/internal/logging"
	"linkvault/internal/metrics"
)

// DupTag is the synthetic tag attached to bookmarks returned from a
// deduplicated insert. It is never written to the database.
const DupTag = "dup"

// InsertOne stores a single bookmark. A duplicate URL is not an error: the
// requested tags are attached to the already-stored bookmark, which is
// returned carrying the synthetic "dup" tag. The creation time is assigned
// by the store.
func (d *Database) InsertOne(ctx context.Context, name, url, description string, tags []string) (*Bookmark, error) {
	done := observeQuery("insert_one")

	url = strings.TrimSpace(url)
	if url == "" {
		done(ErrEmptyURL)
		return nil, ErrEmptyURL
	}

	draft := Draft{Name: name, URL: url, Description: description, Tags: tags}

	id, duplicate, err := d.runInsertTx(ctx, func(txCtx context.Context, tx *sql.Tx) (int64, bool, error) {
		return insertDraft(txCtx, tx, draft)
	})
	if err != nil {
		done(err)
		return nil, err
	}

	if duplicate {
		b, err := d.GetByURL(ctx, url)
		if err != nil {
			done(err)
			return nil, err
		}
		b.Tags = withDupTag(b.Tags)
		done(nil)
		return b, nil
	}

	b, err := d.GetByID(ctx, id)
	done(err)
	return b, err
}

// runInsertTx runs fn under the writer lock inside one transaction.
func (d *Database) runInsertTx(ctx context.Context, fn func(context.Context, *sql.Tx) (int64, bool, error)) (int64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	txCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(txCtx, nil)
	if err != nil {
		return 0, false, err
	}
	started := time.Now()

	id, duplicate, err := fn(txCtx, tx)
	if err := endTx(tx, started, err); err != nil {
		return 0, false, err
	}
	return id, duplicate, nil
}

// InsertMany stores a batch of drafts in a single transaction. Existence
// checks and row inserts are atomic as a set; a failing tag insert within a
// row is logged and the row still counts (best-effort, so one bad tag does
// not abort a multi-hundred-line import). Every draft ends up in the
// result: freshly inserted, duplicate-marked, or skipped for failing
// validation.
func (d *Database) InsertMany(ctx context.Context, drafts []Draft) (*ImportResult, error) {
	done := observeQuery("insert_many")

	d.mu.Lock()

	txCtx, cancel := context.WithTimeout(ctx, 30*time.Second)

	tx, err := d.db.BeginTx(txCtx, nil)
	if err != nil {
		cancel()
		d.mu.Unlock()
		done(err)
		return nil, err
	}
	started := time.Now()

	var insertedIDs []int64
	var duplicateURLs []string
	var skipped []Draft

	for _, draft := range drafts {
		draft.URL = strings.TrimSpace(draft.URL)
		if draft.URL == "" {
			logging.Warn("Skipping import draft with empty URL (name %q)", draft.Name)
			skipped = append(skipped, draft)
			continue
		}

		id, duplicate, insErr := insertDraft(txCtx, tx, draft)
		if insErr != nil {
			err = fmt.Errorf("insert %s: %w", draft.URL, insErr)
			break
		}
		if duplicate {
			logging.Info("Already stored: %s", draft.URL)
			duplicateURLs = append(duplicateURLs, draft.URL)
		} else {
			logging.Info("Inserted: %s", draft.URL)
			insertedIDs = append(insertedIDs, id)
		}
	}

	err = endTx(tx, started, err)
	cancel()
	d.mu.Unlock()

	if err != nil {
		done(err)
		return nil, err
	}

	result := &ImportResult{Skipped: skipped}
	for range skipped {
		metrics.ImportBookmarksTotal.WithLabelValues("skipped").Inc()
	}
	for _, id := range insertedIDs {
		b, err := d.GetByID(ctx, id)
		if err != nil {
			done(err)
			return nil, err
		}
		result.Inserted = append(result.Inserted, *b)
		metrics.ImportBookmarksTotal.WithLabelValues("inserted").Inc()
	}
	for _, url := range duplicateURLs {
		b, err := d.GetByURL(ctx, url)
		if err != nil {
			done(err)
			return nil, err
		}
		b.Tags = withDupTag(b.Tags)
		result.Duplicates = append(result.Duplicates, *b)
		metrics.ImportBookmarksTotal.WithLabelValues("duplicate").Inc()
	}

	done(nil)
	return result, nil
}

// insertDraft inserts one bookmark row and its tags inside tx. A unique
// violation on the URL reports a duplicate instead of an error; the
// requested tags are attached to the existing row so a retried insert never
// loses tag intent.
func insertDraft(ctx context.Context, tx *sql.Tx, draft Draft) (id int64, duplicate bool, err error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		name = draft.URL
	}
	name = escapeName(name)

	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookmarks (name, url, description) VALUES (?, ?, ?)",
		name, draft.URL, draft.Description,
	)
	if err != nil {
		if !isUniqueViolation(err) {
			return 0, false, err
		}
		for _, tag := range normalizeTags(draft.Tags) {
			if _, tagErr := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO tags (tag_name, bookmark_id) SELECT ?, id FROM bookmarks WHERE url = ?",
				tag, draft.URL,
			); tagErr != nil {
				logging.Warn("Tag %q not attached to existing %s: %v", tag, draft.URL, tagErr)
			}
		}
		return 0, true, nil
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	for _, tag := range normalizeTags(draft.Tags) {
		if _, tagErr := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO tags (tag_name, bookmark_id) VALUES (?, ?)",
			tag, id,
		); tagErr != nil {
			logging.Warn("Tag %q not attached to %s: %v", tag, draft.URL, tagErr)
		}
	}
	return id, false, nil
}

// UpdateBookmark replaces the scalar fields of the bookmark identified by
// new.ID and reconciles its tag set by difference, so unchanged tags are
// not churned. Returns the bookmark as stored after reconciliation.
func (d *Database) UpdateBookmark(ctx context.Context, new *Bookmark) (*Bookmark, error) {
	done := observeQuery("update_bookmark")

	url := strings.TrimSpace(new.URL)
	if url == "" {
		done(ErrEmptyURL)
		return nil, ErrEmptyURL
	}
	name := strings.TrimSpace(new.Name)
	if name == "" {
		name = url
	}

	d.mu.Lock()

	txCtx, cancel := context.WithTimeout(ctx, defaultTimeout)

	err := func() error {
		tx, err := d.db.BeginTx(txCtx, nil)
		if err != nil {
			return err
		}
		started := time.Now()

		err = func() error {
			res, err := tx.ExecContext(txCtx,
				"UPDATE bookmarks SET name = ?, url = ?, description = ? WHERE id = ?",
				name, url, new.Description, new.ID,
			)
			if err != nil {
				return err
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return ErrNotFound
			}

			current, err := bookmarkTags(txCtx, tx, new.ID)
			if err != nil {
				return err
			}
			toAdd, toRemove := diffTags(current, normalizeTags(new.Tags))

			for _, tag := range toRemove {
				if _, err := tx.ExecContext(txCtx,
					"DELETE FROM tags WHERE tag_name = ? AND bookmark_id = ?", tag, new.ID,
				); err != nil {
					return err
				}
			}
			for _, tag := range toAdd {
				if _, err := tx.ExecContext(txCtx,
					"INSERT OR IGNORE INTO tags (tag_name, bookmark_id) VALUES (?, ?)", tag, new.ID,
				); err != nil {
					return err
				}
			}
			return nil
		}()

		return endTx(tx, started, err)
	}()

	cancel()
	d.mu.Unlock()

	if err != nil {
		done(err)
		return nil, err
	}

	b, err := d.GetByID(ctx, new.ID)
	done(err)
	return b, err
}

// DeleteBookmarks removes the given bookmarks and returns each one as it
// existed immediately before deletion. A missing id is reported through the
// returned error but does not stop deletion of the remaining ids. Tag rows
// and full-text entries go with the bookmark.
func (d *Database) DeleteBookmarks(ctx context.Context, ids []int64) ([]Bookmark, error) {
	done := observeQuery("delete_bookmarks")

	d.mu.Lock()

	txCtx, cancel := context.WithTimeout(ctx, defaultTimeout)

	var deleted []Bookmark
	var perID []error
	var fatal error

	tx, err := d.db.BeginTx(txCtx, nil)
	if err != nil {
		cancel()
		d.mu.Unlock()
		done(err)
		return nil, err
	}
	started := time.Now()

	for _, id := range ids {
		b, err := getBookmarkByID(txCtx, tx, id)
		if errors.Is(err, ErrNotFound) {
			perID = append(perID, fmt.Errorf("delete bookmark %d: %w", id, ErrNotFound))
			continue
		}
		if err != nil {
			fatal = err
			break
		}

		// Tag rows cascade; the FTS delete trigger mirrors the removal.
		if _, err := tx.ExecContext(txCtx, "DELETE FROM bookmarks WHERE id = ?", id); err != nil {
			fatal = err
			break
		}
		deleted = append(deleted, *b)
	}

	fatal = endTx(tx, started, fatal)
	cancel()
	d.mu.Unlock()

	if fatal != nil {
		done(fatal)
		return nil, fatal
	}

	err = errors.Join(perID...)
	// A batch that deleted anything counts as a successful query even
	// when some ids were missing; the per-id errors still go to the
	// caller.
	if len(deleted) > 0 {
		done(nil)
	} else {
		done(err)
	}
	return deleted, err
}

// GetByID returns the bookmark with the given id, or ErrNotFound.
func (d *Database) GetByID(ctx context.Context, id int64) (*Bookmark, error) {
	done := observeQuery("get_by_id")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	b, err := getBookmarkByID(ctx, d.db, id)
	done(err)
	return b, err
}

// GetByURL returns the bookmark with the given URL, or ErrNotFound.
func (d *Database) GetByURL(ctx context.Context, url string) (*Bookmark, error) {
	done := observeQuery("get_by_url")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, bookmarkSelect+" WHERE b.url = ?", url)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	done(err)
	return b, err
}

func getBookmarkByID(ctx context.Context, q querier, id int64) (*Bookmark, error) {
	row := q.QueryRowContext(ctx, bookmarkSelect+" WHERE b.id = ?", id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListPage returns one page of bookmarks, newest first by default,
// excluding bookmarks carrying a private tag. Sort expressions are mapped
// from the ListOptions enums, never interpolated from caller input.
func (d *Database) ListPage(ctx context.Context, opts ListOptions) ([]Bookmark, error) {
	done := observeQuery("list_page")

	if opts.Limit < 1 {
		opts.Limit = 200
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}
	if opts.Page < 0 {
		opts.Page = 0
	}

	sortColumn := "creation_time"
	sortDir := "DESC"
	switch opts.SortField {
	case SortByName:
		sortColumn = "name COLLATE NOCASE"
		sortDir = "ASC"
	case SortByURL:
		sortColumn = "url"
		sortDir = "ASC"
	}
	switch opts.SortOrder {
	case SortAsc:
		sortDir = "ASC"
	case SortDesc:
		sortDir = "DESC"
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY b.%s %s LIMIT ? OFFSET ?",
		bookmarkSelect, notPrivate("b.id"), sortColumn, sortDir)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, opts.Limit, opts.Page*opts.Limit)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("list query failed: %w", err)
	}

	bookmarks, err := collectBookmarks(rows)
	done(err)
	return bookmarks, err
}

// CountAll returns the number of bookmarks visible in default listings,
// applying the same privacy exclusion as ListPage so page counts stay
// consistent with what is listed.
func (d *Database) CountAll(ctx context.Context) (int, error) {
	done := observeQuery("count_all")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT count(*) FROM bookmarks WHERE "+notPrivate("id"),
	).Scan(&count)
	done(err)
	return count, err
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure, the dedup signal for bookmark URLs.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// escapeName stores angle brackets as entities; names are rendered into
// HTML contexts downstream.
func escapeName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "<", "&lt"), ">", "&gt")
}

// normalizeTags trims, lowercases and deduplicates tag names, dropping
// empties. Tag names are case-insensitive by convention; storage is always
// lowercase.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// diffTags computes the set difference between the current and desired tag
// sets.
func diffTags(current, desired []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]struct{}, len(current))
	for _, tag := range current {
		currentSet[tag] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, tag := range desired {
		desiredSet[tag] = struct{}{}
	}

	for _, tag := range desired {
		if _, ok := currentSet[tag]; !ok {
			toAdd = append(toAdd, tag)
		}
	}
	for _, tag := range current {
		if _, ok := desiredSet[tag]; !ok {
			toRemove = append(toRemove, tag)
		}
	}
	return toAdd, toRemove
}

// bookmarkTags reads the stored tag names for one bookmark.
func bookmarkTags(ctx context.Context, q querier, id int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT tag_name FROM tags WHERE bookmark_id = ? ORDER BY tag_name", id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// withDupTag marks an in-memory bookmark tag set as a duplicate result.
func withDupTag(tags []string) []string {
	for _, tag := range tags {
		if tag == DupTag {
			return tags
		}
	}
	tags = append(tags, DupTag)
	sort.Strings(tags)
	return tags
}
