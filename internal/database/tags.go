package database

import (
	"context"
	"strings"
	"time"

	"linkvault/internal/logging"
)

// SetTag attaches a tag to a bookmark and returns the bookmark as stored
// afterwards. Attaching an already-present tag is a no-op. A name starting
// with "-" removes the tag instead (shorthand used by the edit surface).
// Adding "done" clears any "todo" tag on the same bookmark atomically with
// the insert (schema trigger).
func (d *Database) SetTag(ctx context.Context, bookmarkID int64, name string) (*Bookmark, error) {
	done := observeQuery("set_tag")

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "-" {
		done(ErrEmptyTag)
		return nil, ErrEmptyTag
	}

	if removed, ok := strings.CutPrefix(name, "-"); ok {
		if err := d.RemoveTagFromBookmark(ctx, bookmarkID, removed); err != nil {
			done(err)
			return nil, err
		}
		b, err := d.GetByID(ctx, bookmarkID)
		done(err)
		return b, err
	}

	err := func() error {
		d.mu.Lock()
		defer d.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		_, err := d.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO tags (tag_name, bookmark_id) VALUES (?, ?)",
			name, bookmarkID,
		)
		return err
	}()
	if err != nil {
		done(err)
		return nil, err
	}

	b, err := d.GetByID(ctx, bookmarkID)
	done(err)
	return b, err
}

// RemoveTagFromBookmark deletes one tag pair. Removing an absent pair is
// not an error.
func (d *Database) RemoveTagFromBookmark(ctx context.Context, bookmarkID int64, name string) error {
	done := observeQuery("remove_tag")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		"DELETE FROM tags WHERE tag_name = ? AND bookmark_id = ?",
		strings.ToLower(strings.TrimSpace(name)), bookmarkID,
	)
	done(err)
	return err
}

// RenameTag relabels every occurrence of old to new across all bookmarks
// in one transaction. A bookmark already carrying both names keeps a
// single pair (merge). Returns the number of bookmarks affected.
func (d *Database) RenameTag(ctx context.Context, old, new string) (int64, error) {
	done := observeQuery("rename_tag")

	old = strings.ToLower(strings.TrimSpace(old))
	new = strings.ToLower(strings.TrimSpace(new))
	if old == "" || new == "" {
		done(ErrEmptyTag)
		return 0, ErrEmptyTag
	}
	if old == new {
		done(nil)
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return 0, err
	}
	started := time.Now()

	var affected int64
	err = func() error {
		// Insert-then-delete instead of UPDATE so renaming onto a name the
		// bookmark already carries merges rather than violating the pair
		// uniqueness constraint.
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO tags (tag_name, bookmark_id)
			SELECT ?, bookmark_id FROM tags WHERE tag_name = ?
		`, new, old); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE tag_name = ?", old)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}()

	if err := endTx(tx, started, err); err != nil {
		done(err)
		return 0, err
	}

	logging.Info("Renamed tag %q to %q on %d bookmarks", old, new, affected)
	done(nil)
	return affected, nil
}

// DeleteTagEverywhere removes the tag from every bookmark that has it and
// returns the number of pairs removed.
func (d *Database) DeleteTagEverywhere(ctx context.Context, name string) (int64, error) {
	done := observeQuery("delete_tag")

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		done(ErrEmptyTag)
		return 0, ErrEmptyTag
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM tags WHERE tag_name = ?", name)
	if err != nil {
		done(err)
		return 0, err
	}

	affected, err := res.RowsAffected()
	done(err)
	return affected, err
}

// ListTags returns every distinct tag name with the count of bookmarks
// carrying it. Tags appearing only on private bookmarks are excluded, and
// private bookmarks never contribute to a count.
func (d *Database) ListTags(ctx context.Context) ([]Tag, error) {
	done := observeQuery("list_tags")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT tag_name, count(bookmark_id) AS bookmarks_count
		FROM tags
		WHERE `+notPrivate("bookmark_id")+`
		GROUP BY tag_name
		ORDER BY tag_name
	`)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.Name, &tag.BookmarksCount); err != nil {
			done(err)
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return tags, nil
}

// GetBookmarksByTag returns the bookmarks carrying the named tag, newest
// first. Requesting a private-prefixed tag by name opts into seeing those
// bookmarks; otherwise the privacy exclusion applies.
func (d *Database) GetBookmarksByTag(ctx context.Context, name string) ([]Bookmark, error) {
	done := observeQuery("get_by_tag")

	name = strings.ToLower(strings.TrimSpace(name))

	query := bookmarkSelect + " WHERE b.id IN (SELECT bookmark_id FROM tags WHERE tag_name = ?)"
	if !strings.HasPrefix(name, "private") {
		query += " AND " + notPrivate("b.id")
	}
	query += " ORDER BY b.creation_time DESC"

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, name)
	if err != nil {
		done(err)
		return nil, err
	}

	bookmarks, err := collectBookmarks(rows)
	done(err)
	return bookmarks, err
}
