// Package database implements the bookmark storage and retrieval engine
// behind linkvault.
//
// It owns a single SQLite database file and provides:
//   - Bookmark CRUD with a deduplicating insert protocol (inserting an
//     already-stored URL attaches the requested tags to the existing row
//     and reports it as a duplicate instead of failing)
//   - A many-to-many tag index with engine-level tag semantics: tags whose
//     name starts with "private" hide a bookmark from default listings and
//     search, and adding a "done" tag clears any "todo" tag on the same
//     bookmark
//   - Trigram full-text search with bm25 ranking and <mark> highlighting,
//     a tag-intersection query mode, and a substring fallback
//   - Favorites (a flat set of saved paths) and CSV export
//
// The full-text index is an FTS5 external-content table kept in sync with
// the bookmark table by triggers, so it can never diverge from the primary
// rows. All mutating operations are funneled through one writer lock and
// run inside a single transaction.
//
// The schema requires an FTS5-enabled SQLite build: compile (and test)
// with -tags fts5 so mattn/go-sqlite3 includes the module.
package database
