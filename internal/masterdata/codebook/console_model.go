package codebook

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/loomworks/erpconsole/internal/table"
)

// Console list query parameters. Pages are 1-based in URLs.
const (
	paramPage        = "page"
	paramWindowStart = "ws"
	paramSize        = "size"
	paramSort        = "sort"
	paramDir         = "dir"
	paramSearch      = "q"
	filterPrefix     = "f_"
)

var pageSizes = []int{10, 25, 50, 100}

const maxConsolePageSize = 100

// listState is the list screen state carried in the query string.
type listState struct {
	Page        int
	WindowStart int
	Size        int
	Sort        string
	Desc        bool
	Search      string
	Filters     map[string]string
}

func parseListState(q url.Values, defaultSize int) listState {
	st := listState{
		Page:        atoiMin(q.Get(paramPage), 1),
		WindowStart: atoiMin(q.Get(paramWindowStart), 1),
		Size:        atoiMin(q.Get(paramSize), defaultSize),
		Sort:        strings.TrimSpace(q.Get(paramSort)),
		Desc:        q.Get(paramDir) == "desc",
		Search:      strings.TrimSpace(q.Get(paramSearch)),
		Filters:     map[string]string{},
	}
	if st.Size > maxConsolePageSize {
		st.Size = maxConsolePageSize
	}
	for key, values := range q {
		if !strings.HasPrefix(key, filterPrefix) || len(values) == 0 {
			continue
		}
		if v := strings.TrimSpace(values[0]); v != "" {
			st.Filters[strings.TrimPrefix(key, filterPrefix)] = v
		}
	}
	return st
}

func (st listState) values() url.Values {
	q := url.Values{}
	if st.Page > 1 {
		q.Set(paramPage, strconv.Itoa(st.Page))
	}
	if st.WindowStart > 1 {
		q.Set(paramWindowStart, strconv.Itoa(st.WindowStart))
	}
	if st.Size > 0 {
		q.Set(paramSize, strconv.Itoa(st.Size))
	}
	if st.Sort != "" {
		q.Set(paramSort, st.Sort)
		if st.Desc {
			q.Set(paramDir, "desc")
		} else {
			q.Set(paramDir, "asc")
		}
	}
	if st.Search != "" {
		q.Set(paramSearch, st.Search)
	}
	for k, v := range st.Filters {
		q.Set(filterPrefix+k, v)
	}
	return q
}

// sortSpec converts the state into a table sort spec.
func (st listState) sortSpec() table.SortSpec {
	if st.Sort == "" {
		return nil
	}
	dir := table.Ascending
	if st.Desc {
		dir = table.Descending
	}
	return table.SortBy(st.Sort, dir)
}

// withSortToggled applies the header click semantics of the table engine
// and resets paging, as any sort change does.
func (st listState) withSortToggled(key string) listState {
	next := table.ToggleSort(st.sortSpec(), key)
	out := st.clone()
	out.Sort = next[0].Column
	out.Desc = next[0].Direction == table.Descending
	out.Page, out.WindowStart = 1, 1
	return out
}

func (st listState) withPage(page, windowStart int) listState {
	out := st.clone()
	out.Page, out.WindowStart = page, windowStart
	return out
}

func (st listState) clone() listState {
	out := st
	out.Filters = make(map[string]string, len(st.Filters))
	for k, v := range st.Filters {
		out.Filters[k] = v
	}
	return out
}

// headerView is one column header on the list screen.
type headerView struct {
	Key         string
	Label       string
	Sortable    bool
	Filterable  bool
	Sorted      bool
	Desc        bool
	SortURL     string
	FilterValue string
}

type actionView struct {
	Kind        string
	Label       string
	Destructive bool
}

type rowView struct {
	ID       string
	Cells    []string
	Selected bool
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagerView struct {
	Links       []pageLink
	PrevURL     string
	NextURL     string
	FirstURL    string
	LastURL     string
	TotalPages  int
	CurrentPage int
	From, To    int
	TotalRows   int
}

// listView is the template model of the list screen.
type listView struct {
	Key        string
	Title      string
	Singular   string
	BasePath   string
	Headers    []headerView
	Rows       []rowView
	Actions    []actionView
	Empty      bool
	Loading    bool
	Skeleton   []int
	ColSpan    int
	Error      string
	Pager      pagerView
	Generation int64
	Search     string
	State      url.Values
	Return     string
	PageSizes  []int
	PageSize   int
	CanEdit    bool
	CanExport  bool
}

func atoiMin(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
