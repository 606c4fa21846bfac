package shared

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/loomworks/erpconsole/internal/table"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Column filters keyed by field name; values match case-insensitively.
	Columns map[string]string
}

// Desc reports whether the sort direction is descending.
func (f ListFilters) Desc() bool {
	return table.ParseDirection(f.SortDir) == table.Descending
}

// ParseListFilters reads page, pageSize, search, sort, dir and
// filter[<field>] from an API query string.
func ParseListFilters(q url.Values) ListFilters {
	f := ListFilters{
		Page:    atoiDefault(q.Get("page"), DefaultPage),
		Limit:   atoiDefault(q.Get("pageSize"), DefaultLimit),
		Search:  strings.TrimSpace(q.Get("search")),
		SortBy:  strings.TrimSpace(q.Get("sort")),
		SortDir: SortAsc,
	}
	if strings.EqualFold(q.Get("dir"), SortDesc) {
		f.SortDir = SortDesc
	}
	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		name := key[len("filter[") : len(key)-1]
		value := strings.TrimSpace(values[0])
		if name == "" || value == "" {
			continue
		}
		if f.Columns == nil {
			f.Columns = make(map[string]string)
		}
		f.Columns[name] = value
	}
	return f
}

// Encode is the inverse of ParseListFilters.
func (f ListFilters) Encode() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("pageSize", strconv.Itoa(f.Limit))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.SortBy != "" {
		q.Set("sort", f.SortBy)
		dir := SortAsc
		if f.Desc() {
			dir = SortDesc
		}
		q.Set("dir", dir)
	}
	for k, v := range f.Columns {
		q.Set("filter["+k+"]", v)
	}
	return q
}

func atoiDefault(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
