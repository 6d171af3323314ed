package database

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"linkvault/internal/metrics"
)

func TestInsertOneRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	inserted, err := db.InsertOne(ctx, "Go Blog", "https://go.dev/blog", "release notes", []string{"Go", "reading"})
	if err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if inserted.ID <= 0 {
		t.Fatalf("expected positive id, got %d", inserted.ID)
	}
	if inserted.CreationTime == 0 {
		t.Error("creation time was not assigned")
	}

	got, err := db.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Go Blog" || got.URL != "https://go.dev/blog" || got.Description != "release notes" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"go", "reading"}) {
		t.Errorf("tags = %v, want lowercased [go reading]", got.Tags)
	}
}

func TestInsertOneEmptyNameDefaultsToURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)

	b, err := db.InsertOne(context.Background(), "", "http://example.com", "", nil)
	if err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if b.Name != "http://example.com" {
		t.Errorf("name = %q, want the URL", b.Name)
	}
}

func TestInsertOneEmptyURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)

	if _, err := db.InsertOne(context.Background(), "name", "  ", "", nil); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("expected ErrEmptyURL, got %v", err)
	}
}

func TestInsertOneDuplicateURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.InsertOne(ctx, "Original", "http://example.com", "", []string{"old"})
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	second, err := db.InsertOne(ctx, "Other name", "http://example.com", "", []string{"fresh"})
	if err != nil {
		t.Fatalf("duplicate insert must not fail: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("duplicate returned id %d, want original %d", second.ID, first.ID)
	}
	if !hasTag(second.Tags, DupTag) {
		t.Errorf("duplicate result missing %q marker: %v", DupTag, second.Tags)
	}
	if !hasTag(second.Tags, "fresh") {
		t.Errorf("requested tags were lost on dedup: %v", second.Tags)
	}
	if second.Name != "Original" {
		t.Errorf("duplicate must return the stored bookmark, got name %q", second.Name)
	}

	// The dup marker is never persisted.
	stored, err := db.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if hasTag(stored.Tags, DupTag) {
		t.Errorf("dup marker leaked into storage: %v", stored.Tags)
	}
	if !hasTag(stored.Tags, "fresh") || !hasTag(stored.Tags, "old") {
		t.Errorf("stored tags = %v, want old and fresh", stored.Tags)
	}
}

func TestInsertManyMixedBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertOne(ctx, "Existing", "http://existing.example", "", nil); err != nil {
		t.Fatal(err)
	}

	result, err := db.InsertMany(ctx, []Draft{
		{Name: "One", URL: "http://one.example", Tags: []string{"a"}},
		{Name: "Again", URL: "http://existing.example", Tags: []string{"retry"}},
		{Name: "Two", URL: "http://two.example"},
	})
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	if len(result.Inserted) != 2 {
		t.Errorf("inserted = %d, want 2", len(result.Inserted))
	}
	if len(result.Duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(result.Duplicates))
	}
	dup := result.Duplicates[0]
	if dup.Name != "Existing" || !hasTag(dup.Tags, DupTag) {
		t.Errorf("duplicate entry wrong: %+v", dup)
	}

	// Tag intent from the duplicate draft lands on the existing bookmark.
	stored, err := db.GetByURL(ctx, "http://existing.example")
	if err != nil {
		t.Fatal(err)
	}
	if !hasTag(stored.Tags, "retry") {
		t.Errorf("duplicate draft tags were dropped: %v", stored.Tags)
	}
}

func TestInsertManySkipsEmptyURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)

	result, err := db.InsertMany(context.Background(), []Draft{
		{Name: "no url"},
		{Name: "ok", URL: "http://ok.example"},
		{Name: "blank url", URL: "   "},
	})
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if len(result.Inserted) != 1 || len(result.Duplicates) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	// Invalid drafts are accounted for, not silently dropped.
	if len(result.Skipped) != 2 {
		t.Fatalf("got %d skipped drafts, want 2: %+v", len(result.Skipped), result.Skipped)
	}
	if result.Skipped[0].Name != "no url" || result.Skipped[1].Name != "blank url" {
		t.Errorf("skipped drafts out of order: %+v", result.Skipped)
	}
}

func TestUpdateBookmarkReconcilesTags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	b, err := db.InsertOne(ctx, "Old", "http://old.example", "old desc", []string{"keep", "drop"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := db.UpdateBookmark(ctx, &Bookmark{
		ID:          b.ID,
		Name:        "New",
		URL:         "http://new.example",
		Description: "new desc",
		Tags:        []string{"keep", "added"},
	})
	if err != nil {
		t.Fatalf("UpdateBookmark failed: %v", err)
	}

	if updated.Name != "New" || updated.URL != "http://new.example" || updated.Description != "new desc" {
		t.Errorf("scalar fields not replaced: %+v", updated)
	}
	if !reflect.DeepEqual(updated.Tags, []string{"added", "keep"}) {
		t.Errorf("tags = %v, want [added keep]", updated.Tags)
	}
}

func TestUpdateBookmarkNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)

	_, err := db.UpdateBookmark(context.Background(), &Bookmark{ID: 999, URL: "http://x.example"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBookmarks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	b, err := db.InsertOne(ctx, "Doomed", "http://doomed.example", "", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteBookmarks(ctx, []int64{b.ID})
	if err != nil {
		t.Fatalf("DeleteBookmarks failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0].URL != "http://doomed.example" {
		t.Fatalf("pre-image missing: %+v", deleted)
	}
	if !hasTag(deleted[0].Tags, "x") {
		t.Errorf("pre-image lost its tags: %v", deleted[0].Tags)
	}

	if _, err := db.GetByID(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bookmark still retrievable after delete: %v", err)
	}

	// The tag is gone from listings too.
	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range tags {
		if tag.Name == "x" {
			t.Error("tag row survived bookmark deletion")
		}
	}

	// Re-deleting reports NotFound for that id.
	if _, err := db.DeleteBookmarks(ctx, []int64{b.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on re-delete, got %v", err)
	}
}

func TestDeleteBookmarksPartial(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	b, err := db.InsertOne(ctx, "Survivor set", "http://keepgoing.example", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	successBefore := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("delete_bookmarks", "success"))
	errorBefore := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("delete_bookmarks", "error"))

	deleted, err := db.DeleteBookmarks(ctx, []int64{999, b.ID})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id must surface ErrNotFound, got %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != b.ID {
		t.Errorf("valid ids must still be deleted: %+v", deleted)
	}

	// A batch that deleted rows counts as a successful query.
	if got := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("delete_bookmarks", "success")); got != successBefore+1 {
		t.Errorf("success count = %v, want %v", got, successBefore+1)
	}
	if got := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("delete_bookmarks", "error")); got != errorBefore {
		t.Errorf("error count = %v, want %v", got, errorBefore)
	}

	// A batch where nothing was deleted does not.
	if _, err := db.DeleteBookmarks(ctx, []int64{999}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id must surface ErrNotFound, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("delete_bookmarks", "error")); got != errorBefore+1 {
		t.Errorf("error count = %v, want %v", got, errorBefore+1)
	}
}

func TestListPageExcludesPrivate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertOne(ctx, "Public", "http://public.example", "", []string{"web"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertOne(ctx, "Hidden", "http://hidden.example", "", []string{"private"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertOne(ctx, "Notes", "http://notes.example", "", []string{"private-notes"}); err != nil {
		t.Fatal(err)
	}

	bookmarks, err := db.ListPage(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if len(bookmarks) != 1 || bookmarks[0].URL != "http://public.example" {
		t.Errorf("private-tagged bookmarks leaked into listing: %+v", bookmarks)
	}

	count, err := db.CountAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountAll = %d, want 1 (same exclusion as ListPage)", count)
	}
}

func TestListPagePagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	urls := []string{"http://a.example", "http://b.example", "http://c.example"}
	for _, url := range urls {
		if _, err := db.InsertOne(ctx, "", url, "", nil); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListPage(ctx, ListOptions{Limit: 2, SortField: SortByURL})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].URL != "http://a.example" || page[1].URL != "http://b.example" {
		t.Errorf("first page wrong: %+v", page)
	}

	page, err = db.ListPage(ctx, ListOptions{Page: 1, Limit: 2, SortField: SortByURL})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].URL != "http://c.example" {
		t.Errorf("second page wrong: %+v", page)
	}
}

func TestGetByURLNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)

	if _, err := db.GetByURL(context.Background(), "http://nope.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEscapeName(t *testing.T) {
	t.Parallel()

	if got := escapeName("<script>x"); got != "&ltscript&gtx" {
		t.Errorf("escapeName = %q", got)
	}
	if got := escapeName("plain"); got != "plain" {
		t.Errorf("escapeName = %q", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := normalizeTags([]string{" Go ", "go", "", "WEB"})
	if !reflect.DeepEqual(got, []string{"go", "web"}) {
		t.Errorf("normalizeTags = %v", got)
	}
}

func TestDiffTags(t *testing.T) {
	t.Parallel()

	toAdd, toRemove := diffTags([]string{"a", "b"}, []string{"b", "c"})
	if !reflect.DeepEqual(toAdd, []string{"c"}) {
		t.Errorf("toAdd = %v, want [c]", toAdd)
	}
	if !reflect.DeepEqual(toRemove, []string{"a"}) {
		t.Errorf("toRemove = %v, want [a]", toRemove)
	}
}

func hasTag(tags []string, name string) bool {
	for _, tag := range tags {
		if tag == name {
			return true
		}
	}
	return false
}
