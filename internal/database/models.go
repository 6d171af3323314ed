package database

import "errors"

// Sentinel errors surfaced by the store.
var (
	// ErrNotFound is returned by point lookups that match nothing.
	ErrNotFound = errors.New("bookmark not found")
	// ErrEmptyURL is returned when an insert or update carries no URL.
	ErrEmptyURL = errors.New("bookmark URL cannot be empty")
	// ErrEmptyTag is returned when a tag operation carries no tag name.
	ErrEmptyTag = errors.New("tag name cannot be empty")
)

// Bookmark is a stored URL with its display name, free-text description,
// creation timestamp (seconds since epoch) and tag set.
//
// Tags are lowercase, sorted and deduplicated. The synthetic "dup" tag may
// appear on bookmarks returned from a deduplicated insert; it is never
// persisted.
type Bookmark struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	CreationTime int64    `json:"creation_time"`
	Tags         []string `json:"tags,omitempty"`
}

// Tag pairs a tag name with the number of bookmarks carrying it.
type Tag struct {
	Name           string `json:"tag_name"`
	BookmarksCount int64  `json:"bookmarks_count"`
}

// Draft is a bookmark candidate for batch insertion.
type Draft struct {
	Name        string
	URL         string
	Description string
	Tags        []string
}

// ImportResult is the structured outcome of a batch insert: every draft
// ends up in exactly one of the three lists. Skipped holds drafts that
// failed validation (empty URL) and were never attempted.
type ImportResult struct {
	Inserted   []Bookmark `json:"inserted"`
	Duplicates []Bookmark `json:"duplicates"`
	Skipped    []Draft    `json:"skipped"`
}

// SortField selects the column a listing is ordered by.
type SortField string

// SortOrder selects the listing direction.
type SortOrder string

const (
	SortByCreated SortField = "created"
	SortByName    SortField = "name"
	SortByURL     SortField = "url"
	SortAsc       SortOrder = "asc"
	SortDesc      SortOrder = "desc"
)

// ListOptions controls pagination and ordering of bookmark listings.
// The zero value lists the newest bookmarks first.
type ListOptions struct {
	Page      int // zero-based page index
	Limit     int
	SortField SortField
	SortOrder SortOrder
}
