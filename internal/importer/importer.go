// Package importer parses the line-oriented bulk import format and feeds
// the parsed drafts to the store's batch insert.
//
// Input is one bookmark per pair of lines: the first line is the display
// name (may be empty, in which case the URL is used), the second is the
// URL optionally followed by space-separated inline tags. A trailing
// unpaired line is discarded.
package importer

import (
	"context"
	"strings"

	"linkvault/internal/database"
	"linkvault/internal/logging"
)

// Parse turns raw import text into bookmark drafts. tagsForAll is unioned
// onto every draft's own inline tags.
func Parse(input string, tagsForAll []string) []database.Draft {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	if len(lines)%2 != 0 {
		// Malformed trailing input: drop the odd final line.
		lines = lines[:len(lines)-1]
	}

	var drafts []database.Draft
	for i := 0; i+1 < len(lines); i += 2 {
		name := strings.TrimSpace(lines[i])
		url, inlineTags, _ := strings.Cut(strings.TrimSpace(lines[i+1]), " ")

		tags := append(strings.Fields(inlineTags), tagsForAll...)

		drafts = append(drafts, database.Draft{
			Name: name,
			URL:  url,
			Tags: tags,
		})
	}
	return drafts
}

// Run parses input and inserts the drafts as one deduplicating batch.
func Run(ctx context.Context, db *database.Database, input string, tagsForAll []string) (*database.ImportResult, error) {
	drafts := Parse(input, tagsForAll)
	if len(drafts) == 0 {
		logging.Debug("Import input held no complete name/URL pairs")
		return &database.ImportResult{}, nil
	}
	return db.InsertMany(ctx, drafts)
}
