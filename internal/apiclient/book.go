package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	mdshared "github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/table"
)

// fetchParallelism bounds concurrent page requests in All.
const fetchParallelism = 4

// Book is a typed handle on one code book endpoint, e.g. "yarn-codes".
type Book[T any] struct {
	client *Client
	key    string
}

// NewBook returns a handle on the book mounted at /api/v1/<key>.
func NewBook[T any](c *Client, key string) *Book[T] {
	return &Book[T]{client: c, key: key}
}

// Key returns the book key.
func (b *Book[T]) Key() string { return b.key }

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	TotalPages int
}

// EncodeQuery renders q as API list parameters.
func EncodeQuery(q table.Query) url.Values {
	f := mdshared.ListFilters{
		Page:    q.Page,
		Limit:   q.PageSize,
		Search:  q.Search,
		Columns: q.Filters,
	}
	if key, ok := q.Sort.Active(); ok {
		f.SortBy = key.Column
		f.SortDir = key.Direction.String()
	}
	return f.Encode()
}

// List fetches one server-side page.
func (b *Book[T]) List(ctx context.Context, q table.Query) (Page[T], error) {
	env, err := b.client.do(ctx, http.MethodGet, b.path(""), EncodeQuery(q), nil, nil)
	if err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Items: []T{}}
	if len(env.DataList) > 0 {
		if err := json.Unmarshal(env.DataList, &page.Items); err != nil {
			return Page[T]{}, fmt.Errorf("apiclient: %s: decode list: %w", b.key, err)
		}
	}
	if env.Total != nil {
		page.Total = *env.Total
	}
	if env.CurrentPage != nil {
		page.Page = *env.CurrentPage
	}
	if env.TotalPages != nil {
		page.TotalPages = *env.TotalPages
	}
	return page, nil
}

// All fetches every record matching the search, filters and sort of q,
// ignoring its paging. Pages after the first are requested concurrently.
func (b *Book[T]) All(ctx context.Context, q table.Query) ([]T, error) {
	q.Page, q.PageSize = 1, shared.MaxPageSize
	first, err := b.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	pages := make([][]T, first.TotalPages)
	pages[0] = first.Items
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i := 1; i < first.TotalPages; i++ {
		i := i
		pq := q
		pq.Page = i + 1
		g.Go(func() error {
			p, err := b.List(gctx, pq)
			if err != nil {
				return err
			}
			pages[i] = p.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]T, 0, first.Total)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out, nil
}

// Fetcher adapts the book to a table record source; the table engine does
// paging locally.
func (b *Book[T]) Fetcher() table.Fetcher[T] {
	return func(ctx context.Context, q table.Query) ([]T, error) {
		return b.All(ctx, q)
	}
}

// Source returns a record source backed by the book.
func (b *Book[T]) Source() *table.Source[T] {
	return table.NewSource(b.Fetcher())
}

// Get fetches one record.
func (b *Book[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	_, err := b.client.do(ctx, http.MethodGet, b.path(idSegment(id)), nil, nil, &out)
	return out, err
}

// Create validates rec locally and creates it.
func (b *Book[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	if err := b.client.check(rec); err != nil {
		return out, err
	}
	_, err := b.client.do(ctx, http.MethodPost, b.path(""), nil, rec, &out)
	return out, err
}

// Update validates rec locally and replaces record id.
func (b *Book[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	var out T
	if err := b.client.check(rec); err != nil {
		return out, err
	}
	_, err := b.client.do(ctx, http.MethodPut, b.path(idSegment(id)), nil, rec, &out)
	return out, err
}

// Delete removes record id.
func (b *Book[T]) Delete(ctx context.Context, id int64) error {
	_, err := b.client.do(ctx, http.MethodDelete, b.path(idSegment(id)), nil, nil, nil)
	return err
}

// Duplicate copies record id under a fresh code and returns the copy.
func (b *Book[T]) Duplicate(ctx context.Context, id int64) (T, error) {
	var out T
	_, err := b.client.do(ctx, http.MethodPost, b.path(idSegment(id)+"/duplicate"), nil, nil, &out)
	return out, err
}

// BulkDelete removes ids and returns how many were deleted.
func (b *Book[T]) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ValidationErrors{"ids": "is required"}
	}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	_, err := b.client.do(ctx, http.MethodPost, b.path("/bulk-delete"), nil, map[string][]int64{"ids": ids}, &out)
	return out.Deleted, err
}

// Export queues a CSV export and returns the job id.
func (b *Book[T]) Export(ctx context.Context) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	_, err := b.client.do(ctx, http.MethodPost, b.path("/export"), nil, nil, &out)
	return out.JobID, err
}

func (b *Book[T]) path(suffix string) string {
	return "/" + b.key + suffix
}

func idSegment(id int64) string {
	return "/" + strconv.FormatInt(id, 10)
}
