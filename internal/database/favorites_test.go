package database

import (
	"context"
	"reflect"
	"testing"
)

func TestFavorites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	for _, path := range []string{"search:# work", "date:2026-08-31", "search:# work"} {
		if err := db.SetFavorite(ctx, path); err != nil {
			t.Fatalf("SetFavorite(%q) failed: %v", path, err)
		}
	}

	got, err := db.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	want := []string{"search:# work", "date:2026-08-31"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFavorites = %v, want %v (deduplicated, insertion order)", got, want)
	}
}

func TestSetFavoriteBlankPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SetFavorite(ctx, "   "); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}

	got, err := db.ListFavorites(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("blank path must not be stored, got %v", got)
	}
}
