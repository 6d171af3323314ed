package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// csvHeader is the fixed export column order. The excerpt, cover and
// highlights columns are always empty; they exist for compatibility with
// richer export schemas.
const csvHeader = "title,note,excerpt,url,tags,created,cover,highlights"

// ExportCSV writes every bookmark, private ones included, as one CSV row
// per bookmark. The note column is always quoted.
func (d *Database) ExportCSV(ctx context.Context, w io.Writer) error {
	done := observeQuery("export_csv")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, bookmarkSelect+" ORDER BY b.id")
	if err != nil {
		done(err)
		return err
	}

	bookmarks, err := collectBookmarks(rows)
	if err != nil {
		done(err)
		return err
	}

	buf := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(buf, csvHeader); err != nil {
		done(err)
		return err
	}
	for _, b := range bookmarks {
		row := strings.Join([]string{
			b.Name,
			`"` + b.Description + `"`,
			"",
			b.URL,
			strings.Join(b.Tags, ","),
			fmt.Sprintf("%d", b.CreationTime),
			"",
			"",
		}, ",")
		if _, err := fmt.Fprintln(buf, row); err != nil {
			done(err)
			return err
		}
	}

	err = buf.Flush()
	done(err)
	return err
}
