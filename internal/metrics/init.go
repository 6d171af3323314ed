package metrics

// InitializeMetrics pre-populates the expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	ops := []string{
		"initialize_schema", "insert_one", "insert_many", "update_bookmark",
		"delete_bookmarks", "get_by_id", "get_by_url", "list_page", "count_all",
		"search", "get_by_tag", "get_by_date", "set_tag", "remove_tag",
		"rename_tag", "delete_tag", "list_tags", "set_favorite", "list_favorites",
		"export_csv",
	}
	for _, op := range ops {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, outcome := range []string{"inserted", "duplicate", "skipped"} {
		ImportBookmarksTotal.WithLabelValues(outcome)
	}

	for _, mode := range []string{"tags", "fulltext", "substring"} {
		SearchQueriesTotal.WithLabelValues(mode)
	}
}
