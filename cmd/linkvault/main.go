// Command linkvault manages a personal bookmark store kept in a single
// SQLite database file.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"linkvault/internal/database"
	"linkvault/internal/importer"
	"linkvault/internal/logging"
	"linkvault/internal/metrics"
	"linkvault/internal/startup"
)

const usage = `usage: linkvault [flags] <command> [args]

commands:
  add <url> [name]       store one bookmark (--desc, --tags)
  import <file>          bulk import line pairs; "-" reads stdin (--tags)
  list                   list bookmarks (--page, --limit, --sort, --order)
  search <query>         search; "# a b" and "tags:a b" intersect tags
  date <YYYY-MM-DD>      bookmarks created on a local calendar day
  get <id>               show one bookmark
  rm <id...>             delete bookmarks
  tag <id> <name>        attach a tag ("-name" detaches)
  tags                   list tags with counts
  rename-tag <old> <new> relabel a tag everywhere
  delete-tag <name>      remove a tag everywhere
  fav [path]             save a favorite path, or list them
  export [file]          CSV export; default stdout
  vacuum                 compact the database file
  version                print build information
`

func main() {
	var (
		dbPath      = flag.String("db", "", "database file (overrides LINKVAULT_DB)")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus listen address (overrides METRICS_ADDR)")
		tags        = flag.StringSlice("tags", nil, "tags to apply (comma-separated or repeated)")
		desc        = flag.String("desc", "", "bookmark description")
		page        = flag.Int("page", 0, "zero-based page index")
		limit       = flag.Int("limit", 200, "page size")
		sortBy      = flag.String("sort", "created", "sort field: created, name, url")
		order       = flag.String("order", "", "sort order: asc, desc")
		version     = flag.Bool("version", false, "print build information")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	// Stop flag parsing at the command so tag names like "-done" pass
	// through as arguments.
	flag.CommandLine.SetInterspersed(false)
	flag.Parse()

	if *version || flag.Arg(0) == "version" {
		info := startup.GetBuildInfo()
		fmt.Printf("linkvault %s (%s, %s, %s/%s)\n",
			info.Version, info.Commit, info.GoVersion, info.OS, info.Arch)
		return
	}

	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}
	if *dbPath != "" {
		config.DatabasePath = *dbPath
	}
	if *metricsAddr != "" {
		config.MetricsAddr = *metricsAddr
		config.MetricsEnabled = true
	}

	ctx := context.Background()

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error("Failed to close database: %v", err)
		}
	}()

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		collector := metrics.NewCollector(db, 15*time.Second)
		collector.Start()
		defer collector.Stop()

		go func() {
			logging.Info("Metrics listening on %s", config.MetricsAddr)
			if err := http.ListenAndServe(config.MetricsAddr, promhttp.Handler()); err != nil {
				logging.Error("Metrics listener failed: %v", err)
			}
		}()
	}

	if err := run(ctx, db, command, flag.Args()[1:], options{
		tags:   *tags,
		desc:   *desc,
		page:   *page,
		limit:  *limit,
		sortBy: *sortBy,
		order:  *order,
	}); err != nil {
		logging.Fatal("%v", err)
	}
}

type options struct {
	tags   []string
	desc   string
	page   int
	limit  int
	sortBy string
	order  string
}

func run(ctx context.Context, db *database.Database, command string, args []string, opts options) error {
	switch command {
	case "add":
		if len(args) < 1 {
			return fmt.Errorf("add: URL required")
		}
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		b, err := db.InsertOne(ctx, name, args[0], opts.desc, opts.tags)
		if err != nil {
			return err
		}
		printBookmarks(*b)
		return nil

	case "import":
		if len(args) < 1 {
			return fmt.Errorf("import: input file required (\"-\" for stdin)")
		}
		input, err := readInput(args[0])
		if err != nil {
			return err
		}
		result, err := importer.Run(ctx, db, input, opts.tags)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d, %d duplicates\n", len(result.Inserted), len(result.Duplicates))
		if len(result.Skipped) > 0 {
			fmt.Printf("Skipped %d drafts with no URL\n", len(result.Skipped))
		}
		printBookmarks(result.Duplicates...)
		return nil

	case "list":
		bookmarks, err := db.ListPage(ctx, database.ListOptions{
			Page:      opts.page,
			Limit:     opts.limit,
			SortField: database.SortField(opts.sortBy),
			SortOrder: database.SortOrder(opts.order),
		})
		if err != nil {
			return err
		}
		total, err := db.CountAll(ctx)
		if err != nil {
			return err
		}
		printBookmarks(bookmarks...)
		fmt.Printf("%d bookmarks total\n", total)
		return nil

	case "search":
		if len(args) < 1 {
			return fmt.Errorf("search: query required")
		}
		bookmarks, err := db.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printBookmarks(bookmarks...)
		return nil

	case "date":
		if len(args) < 1 {
			return fmt.Errorf("date: YYYY-MM-DD required")
		}
		bookmarks, err := db.GetBookmarksByDate(ctx, args[0])
		if err != nil {
			return err
		}
		printBookmarks(bookmarks...)
		return nil

	case "get":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		b, err := db.GetByID(ctx, id)
		if err != nil {
			return err
		}
		printBookmarks(*b)
		return nil

	case "rm":
		if len(args) < 1 {
			return fmt.Errorf("rm: at least one id required")
		}
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("rm: invalid id %q", arg)
			}
			ids = append(ids, id)
		}
		deleted, err := db.DeleteBookmarks(ctx, ids)
		for _, b := range deleted {
			fmt.Printf("Removed %s (%s)\n", b.Name, b.URL)
		}
		return err

	case "tag":
		if len(args) < 2 {
			return fmt.Errorf("tag: id and tag name required")
		}
		id, err := parseID(args)
		if err != nil {
			return err
		}
		b, err := db.SetTag(ctx, id, args[1])
		if err != nil {
			return err
		}
		printBookmarks(*b)
		return nil

	case "tags":
		tags, err := db.ListTags(ctx)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			fmt.Printf("%s\t%d\n", tag.Name, tag.BookmarksCount)
		}
		return nil

	case "rename-tag":
		if len(args) < 2 {
			return fmt.Errorf("rename-tag: old and new names required")
		}
		affected, err := db.RenameTag(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed on %d bookmarks\n", affected)
		return nil

	case "delete-tag":
		if len(args) < 1 {
			return fmt.Errorf("delete-tag: tag name required")
		}
		affected, err := db.DeleteTagEverywhere(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed from %d bookmarks\n", affected)
		return nil

	case "fav":
		if len(args) > 0 {
			return db.SetFavorite(ctx, args[0])
		}
		paths, err := db.ListFavorites(ctx)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println(path)
		}
		return nil

	case "export":
		out := io.Writer(os.Stdout)
		if len(args) > 0 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return db.ExportCSV(ctx, out)

	case "vacuum":
		return db.Vacuum(ctx)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("bookmark id required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bookmark id %q", args[0])
	}
	return id, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printBookmarks(bookmarks ...database.Bookmark) {
	for _, b := range bookmarks {
		created := time.Unix(b.CreationTime, 0).Format("2006-01-02")
		line := fmt.Sprintf("#%d\t%s\t%s\t%s", b.ID, created, b.Name, b.URL)
		if len(b.Tags) > 0 {
			line += "\t[" + strings.Join(b.Tags, " ") + "]"
		}
		fmt.Println(line)
	}
}
