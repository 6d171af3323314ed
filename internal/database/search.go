package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"linkvault/internal/logging"
	"linkvault/internal/metrics"
)

// Tag-intersection query markers. A query starting with either marker is
// split on whitespace into tag names and answered with the bookmarks
// carrying every one of them.
const (
	tagQueryHashPrefix = "# "
	tagQueryWordPrefix = "tags:"
)

// Search answers a single query string by trying three modes in order,
// first success wins:
//
//  1. Tag intersection, when the query starts with "# " or "tags:". No
//     implicit privacy filter: naming a private tag opts in.
//  2. Ranked trigram full-text match over name/url/description, bm25
//     ordered, with matched spans wrapped in <mark>…</mark>. Queries the
//     tokenizer rejects count as zero rows.
//  3. Case-insensitive substring match, newest first.
//
// Modes 2 and 3 exclude bookmarks carrying a private tag.
func (d *Database) Search(ctx context.Context, query string) ([]Bookmark, error) {
	done := observeQuery("search")

	if names, ok := tagQueryNames(query); ok {
		bookmarks, err := d.searchByTags(ctx, names)
		if err == nil {
			metrics.SearchQueriesTotal.WithLabelValues("tags").Inc()
		}
		done(err)
		return bookmarks, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		done(nil)
		return nil, nil
	}

	bookmarks, err := d.searchFullText(ctx, query)
	if err != nil {
		done(err)
		return nil, err
	}
	if len(bookmarks) > 0 {
		metrics.SearchQueriesTotal.WithLabelValues("fulltext").Inc()
		done(nil)
		return bookmarks, nil
	}

	bookmarks, err = d.searchSubstring(ctx, query)
	if err == nil {
		metrics.SearchQueriesTotal.WithLabelValues("substring").Inc()
	}
	done(err)
	return bookmarks, err
}

// tagQueryNames extracts the tag names of a tag-intersection query, or
// reports that the query is not one.
func tagQueryNames(query string) ([]string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(query, tagQueryHashPrefix):
		rest = query[len(tagQueryHashPrefix):]
	case strings.HasPrefix(query, tagQueryWordPrefix):
		rest = query[len(tagQueryWordPrefix):]
	default:
		return nil, false
	}
	return normalizeTags(strings.Fields(rest)), true
}

// searchByTags returns the bookmarks carrying every named tag, newest
// first. The candidate sets are intersected with parameterized per-tag
// selects; tag names are never interpolated into the statement.
func (d *Database) searchByTags(ctx context.Context, names []string) ([]Bookmark, error) {
	if len(names) == 0 {
		return nil, nil
	}

	subqueries := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		subqueries[i] = "SELECT bookmark_id FROM tags WHERE tag_name = ?"
		args[i] = name
	}

	query := bookmarkSelect +
		" WHERE b.id IN (" + strings.Join(subqueries, " INTERSECT ") + ")" +
		" ORDER BY b.creation_time DESC"

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectBookmarks(rows)
}

// searchFullText runs the ranked trigram match. Matched substrings in the
// name and description are wrapped in <mark> delimiters by the index
// itself.
func (d *Database) searchFullText(ctx context.Context, query string) ([]Bookmark, error) {
	matchQuery := `
		SELECT bookmarks_fts.rowid,
		       highlight(bookmarks_fts, 0, '<mark>', '</mark>') AS name,
		       bookmarks_fts.url,
		       highlight(bookmarks_fts, 3, '<mark>', '</mark>') AS description,
		       bookmarks_fts.creation_time,
		       bt.tags
		FROM bookmarks_fts LEFT JOIN
			(SELECT bookmark_id, group_concat(tag_name) AS tags FROM tags GROUP BY bookmark_id) bt
		ON bookmarks_fts.rowid = bt.bookmark_id
		WHERE bookmarks_fts MATCH ?
			AND ` + notPrivate("bookmarks_fts.rowid") + `
		ORDER BY rank`

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, matchQuery, prepareMatchTerm(query))
	if err != nil {
		if !isMatchRejection(err) {
			return nil, err
		}
		// The trigram tokenizer rejects sub-3-character terms and some
		// punctuation; treat that as zero rows and let the substring
		// fallback answer.
		logging.Debug("Full-text query rejected (%q): %v", query, err)
		return nil, nil
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		var tags sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &b.URL, &b.Description, &b.CreationTime, &tags); err != nil {
			return nil, err
		}
		b.Tags = splitTags(tags)
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// searchSubstring is the fallback contains-match across url, name and
// description.
func (d *Database) searchSubstring(ctx context.Context, query string) ([]Bookmark, error) {
	likeQuery := bookmarkSelect + `
		WHERE (b.url LIKE '%' || ?1 || '%'
			OR b.name LIKE '%' || ?1 || '%'
			OR b.description LIKE '%' || ?1 || '%')
			AND ` + notPrivate("b.id") + `
		ORDER BY b.creation_time DESC`

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, likeQuery, query)
	if err != nil {
		return nil, err
	}
	return collectBookmarks(rows)
}

// GetBookmarksByDate returns the non-private bookmarks created on the
// given local calendar day (YYYY-MM-DD), newest first.
func (d *Database) GetBookmarksByDate(ctx context.Context, date string) ([]Bookmark, error) {
	done := observeQuery("get_by_date")

	if _, err := time.ParseInLocation("2006-01-02", date, time.Local); err != nil {
		done(err)
		return nil, err
	}

	query := bookmarkSelect + `
		WHERE date(b.creation_time, 'unixepoch', 'localtime') = ?
			AND ` + notPrivate("b.id") + `
		ORDER BY b.creation_time DESC`

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, date)
	if err != nil {
		done(err)
		return nil, err
	}

	bookmarks, err := collectBookmarks(rows)
	done(err)
	return bookmarks, err
}

// isMatchRejection reports whether err is the query parser refusing a
// MATCH term (SQLITE_ERROR, the generic logic-error code) rather than a
// storage failure such as a corrupt index or an I/O error, which must be
// surfaced instead of triggering the substring fallback.
func isMatchRejection(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrError
}

// prepareMatchTerm prepares a query for the FTS5 trigram tokenizer:
// internal quotes are escaped and the whole term is quoted so punctuation
// is matched as part of the phrase rather than parsed as syntax.
func prepareMatchTerm(query string) string {
	query = strings.ReplaceAll(strings.TrimSpace(query), `"`, `""`)
	return `"` + query + `"`
}
