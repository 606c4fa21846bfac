// Command erpctl lists code books from a running console over its JSON API.
//
//	erpctl -addr http://localhost:8080 -user admin@example.com books
//	erpctl -user admin@example.com list yarn-codes -sort count -desc -filter color=navy -page 2
//	erpctl -user admin@example.com export fabric-codes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"github.com/loomworks/erpconsole/internal/apiclient"
	"github.com/loomworks/erpconsole/internal/masterdata/businesses"
	"github.com/loomworks/erpconsole/internal/masterdata/clients"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/masterdata/fabrics"
	"github.com/loomworks/erpconsole/internal/masterdata/items"
	"github.com/loomworks/erpconsole/internal/masterdata/staff"
	"github.com/loomworks/erpconsole/internal/masterdata/yarns"
	"github.com/loomworks/erpconsole/internal/table"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type listOptions struct {
	page    int
	size    int
	sort    string
	desc    bool
	search  string
	filters map[string]string
}

type command func(ctx context.Context, c *apiclient.Client, opts listOptions, out io.Writer) error

type book struct {
	title  string
	list   command
	export command
}

var books = map[string]book{
	yarns.Definition.Key:      bookFor(yarns.Definition),
	fabrics.Definition.Key:    bookFor(fabrics.Definition),
	items.Definition.Key:      bookFor(items.Definition),
	businesses.Definition.Key: bookFor(businesses.Definition),
	clients.Definition.Key:    bookFor(clients.Definition),
	staff.Definition.Key:      bookFor(staff.Definition),
}

func bookFor[T any](def *codebook.Definition[T]) book {
	return book{
		title: def.Title,
		list: func(ctx context.Context, c *apiclient.Client, opts listOptions, out io.Writer) error {
			return listBook(ctx, apiclient.NewBook[T](c, def.Key), def, opts, out)
		},
		export: func(ctx context.Context, c *apiclient.Client, _ listOptions, out io.Writer) error {
			id, err := apiclient.NewBook[T](c, def.Key).Export(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "export queued: %s\n", id)
			return err
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	global := flag.NewFlagSet("erpctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	addr := global.String("addr", envOr("ERPCTL_ADDR", "http://localhost:8080"), "console base URL")
	user := global.String("user", os.Getenv("ERPCTL_USER"), "login email")
	password := global.String("password", os.Getenv("ERPCTL_PASSWORD"), "login password")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: erpctl [flags] books | list BOOK [list flags] | export BOOK")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	if rest[0] == "books" {
		printBooks(stdout)
		return 0
	}
	if (rest[0] != "list" && rest[0] != "export") || len(rest) < 2 {
		global.Usage()
		return 2
	}
	b, ok := books[rest[1]]
	if !ok {
		fmt.Fprintf(stderr, "unknown book %q; run \"erpctl books\"\n", rest[1])
		return 2
	}

	opts := listOptions{filters: map[string]string{}}
	if rest[0] == "list" {
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.IntVar(&opts.page, "page", 1, "page number, starting at 1")
		fs.IntVar(&opts.size, "size", 20, "rows per page")
		fs.StringVar(&opts.sort, "sort", "", "column to sort by")
		fs.BoolVar(&opts.desc, "desc", false, "sort descending")
		fs.StringVar(&opts.search, "search", "", "free-text search")
		fs.Func("filter", "column filter col=value, repeatable", func(raw string) error {
			col, value, ok := strings.Cut(raw, "=")
			if !ok || strings.TrimSpace(col) == "" {
				return fmt.Errorf("filter %q: want col=value", raw)
			}
			opts.filters[strings.TrimSpace(col)] = value
			return nil
		})
		if err := fs.Parse(rest[2:]); err != nil {
			return 2
		}
	}

	client := apiclient.New(*addr, apiclient.OnUnauthorized(func() {
		logger.Warn("session rejected by server", slog.String("addr", *addr))
	}))
	if _, err := client.Login(ctx, *user, *password); err != nil {
		reportError(stderr, "login", err)
		return 1
	}
	defer func() {
		if err := client.Logout(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("logout", slog.Any("error", err))
		}
	}()

	cmd := b.list
	if rest[0] == "export" {
		cmd = b.export
	}
	if err := cmd(ctx, client, opts, stdout); err != nil {
		reportError(stderr, rest[0]+" "+rest[1], err)
		return 1
	}
	return 0
}

func listBook[T any](ctx context.Context, b *apiclient.Book[T], def *codebook.Definition[T], opts listOptions, out io.Writer) error {
	snap, err := b.Source().Fetch(ctx, table.Query{Search: opts.search, Filters: opts.filters})
	if err != nil {
		return err
	}

	view, _ := table.NewView(def.Schema(), table.WithKey(def.RowKey), table.WithPageSize[T](opts.size))
	view.Sync(snap)
	if opts.sort != "" {
		dir := table.Ascending
		if opts.desc {
			dir = table.Descending
		}
		if !def.Schema().CanSort(opts.sort) {
			return fmt.Errorf("column %q cannot be sorted", opts.sort)
		}
		view.SetSort(table.SortBy(opts.sort, dir))
	}
	view.SetPage(opts.page - 1)
	return render(out, view.Result())
}

func render[T any](out io.Writer, res table.Result[T]) error {
	tw := tablewriter.NewWriter(out)
	header := make([]any, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col.Header
	}
	tw.Header(header...)
	for _, row := range res.Rows {
		cells := make([]any, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.Display
		}
		if err := tw.Append(cells...); err != nil {
			return err
		}
	}
	if err := tw.Render(); err != nil {
		return err
	}

	if res.Empty {
		_, err := fmt.Fprintln(out, "no records")
		return err
	}
	current := res.PageIndex + 1
	_, err := fmt.Fprintf(out, "Page %d of %d (%d rows)  %s\n", current, res.TotalPages, res.TotalRows,
		pageStrip(table.ComputeWindow(current, res.TotalPages, 1, table.DefaultMaxVisible), current))
	return err
}

// pageStrip renders a window like "1 2 [3] 4 5".
func pageStrip(w table.Window, current int) string {
	parts := make([]string, 0, len(w.Pages))
	for _, p := range w.Pages {
		if p == current {
			parts = append(parts, fmt.Sprintf("[%d]", p))
			continue
		}
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, " ")
}

func printBooks(out io.Writer) {
	keys := make([]string, 0, len(books))
	for k := range books {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-16s %s\n", k, books[k].title)
	}
}

func reportError(w io.Writer, what string, err error) {
	var verrs apiclient.ValidationErrors
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &verrs):
		fmt.Fprintf(w, "%s: %v\n", what, verrs)
	case errors.Is(err, apiclient.ErrUnauthorized):
		fmt.Fprintf(w, "%s: not authorized\n", what)
	case errors.Is(err, apiclient.ErrNetwork):
		fmt.Fprintf(w, "%s: server unreachable: %v\n", what, err)
	case errors.As(err, &apiErr):
		fmt.Fprintf(w, "%s: %s\n", what, apiErr.Error())
	default:
		fmt.Fprintf(w, "%s: %v\n", what, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
