package database

import (
	"context"
	"strings"

	"linkvault/internal/logging"
)

// SetFavorite saves a navigation path. Saving the same path twice is a
// no-op.
func (d *Database) SetFavorite(ctx context.Context, path string) error {
	done := observeQuery("set_favorite")

	path = strings.TrimSpace(path)
	if path == "" {
		done(nil)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		"INSERT INTO favorites (path) VALUES (?) ON CONFLICT(path) DO NOTHING",
		path,
	)
	done(err)
	return err
}

// ListFavorites returns all saved paths in insertion order.
func (d *Database) ListFavorites(ctx context.Context) ([]string, error) {
	done := observeQuery("list_favorites")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT path FROM favorites ORDER BY rowid")
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			done(err)
			return nil, err
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return paths, nil
}
