package table

import (
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Cell is one rendered field of a row.
type Cell struct {
	Key     string
	Value   any
	Display string
}

// Row is a materialized record. ID identifies the record within the source
// snapshot it came from and is only stable for that snapshot.
type Row[R any] struct {
	ID       string
	Index    int
	Record   R
	Cells    []Cell
	Selected bool
}

// HeaderCell describes a column header for rendering.
type HeaderCell struct {
	Key        string
	Header     string
	Sortable   bool
	Filterable bool
	Sorted     bool
	Direction  Direction
}

// Result is one materialized page.
type Result[R any] struct {
	Columns    []HeaderCell
	Rows       []Row[R]
	TotalRows  int
	TotalPages int
	PageIndex  int
	PageSize   int
	Loading    bool
	Empty      bool
}

// CanPreviousPage reports whether a previous page exists.
func (r Result[R]) CanPreviousPage() bool {
	return !r.Loading && r.PageIndex > 0
}

// CanNextPage reports whether a following page exists.
func (r Result[R]) CanNextPage() bool {
	return !r.Loading && r.PageIndex+1 < r.TotalPages
}

// CanPage reports whether there is more than one page.
func (r Result[R]) CanPage() bool {
	return r.TotalPages > 1
}

// ColumnCount is the number of columns a full-width row has to span.
func (r Result[R]) ColumnCount() int {
	return len(r.Columns)
}

// SkeletonRows returns how many placeholder rows to draw while loading.
// The requested count wins; otherwise one page worth of rows is used.
func (r Result[R]) SkeletonRows(requested int) int {
	if !r.Loading {
		return 0
	}
	if requested > 0 {
		return requested
	}
	if r.PageSize > 0 {
		return r.PageSize
	}
	return 10
}

// Engine materializes pages of records described by a schema.
type Engine[R any] struct {
	Schema *Schema[R]
	// Key gives records a stable identity. Positional identity is used when nil.
	Key func(R) string
	// Language drives string collation. Undetermined when zero.
	Language language.Tag
}

// Materialize runs records through the schema with no stable key.
func Materialize[R any](records []R, schema *Schema[R], sortSpec SortSpec, filter FilterSpec, page PageSpec) Result[R] {
	return Engine[R]{Schema: schema}.Materialize(records, sortSpec, filter, page)
}

type candidate[R any] struct {
	index  int
	record R
	cells  []Cell
}

// Materialize filters, sorts and slices the records. An out of range page
// index is clamped to the nearest valid page.
func (e Engine[R]) Materialize(records []R, sortSpec SortSpec, filter FilterSpec, page PageSpec) Result[R] {
	res := Result[R]{
		Columns:  e.headers(sortSpec),
		PageSize: page.Size,
	}
	if e.Schema == nil {
		res.Empty = true
		return res
	}

	candidates := make([]candidate[R], 0, len(records))
	for i, rec := range records {
		cells := e.cells(rec)
		if !e.matches(cells, filter) {
			continue
		}
		candidates = append(candidates, candidate[R]{index: i, record: rec, cells: cells})
	}

	e.sort(candidates, sortSpec)

	res.TotalRows = len(candidates)
	res.Empty = res.TotalRows == 0
	start, end := res.window(page)
	res.Rows = make([]Row[R], 0, end-start)
	for _, c := range candidates[start:end] {
		res.Rows = append(res.Rows, Row[R]{
			ID:     e.identity(c.index, c.record),
			Index:  c.index,
			Record: c.record,
			Cells:  c.cells,
		})
	}
	return res
}

// window computes page bounds and clamps the page index in place.
func (r *Result[R]) window(page PageSpec) (int, int) {
	if r.TotalRows == 0 {
		r.TotalPages = 0
		r.PageIndex = 0
		return 0, 0
	}
	if page.Size <= 0 {
		r.TotalPages = 1
		r.PageIndex = 0
		return 0, r.TotalRows
	}
	r.TotalPages = (r.TotalRows + page.Size - 1) / page.Size
	idx := page.Index
	if idx >= r.TotalPages {
		idx = r.TotalPages - 1
	}
	if idx < 0 {
		idx = 0
	}
	r.PageIndex = idx
	start := idx * page.Size
	end := start + page.Size
	if end > r.TotalRows {
		end = r.TotalRows
	}
	return start, end
}

func (e Engine[R]) headers(sortSpec SortSpec) []HeaderCell {
	if e.Schema == nil {
		return nil
	}
	active, sorted := sortSpec.Active()
	out := make([]HeaderCell, 0, e.Schema.Len())
	for _, col := range e.Schema.columns {
		h := HeaderCell{
			Key:        col.Key,
			Header:     col.Header,
			Sortable:   col.Sortable,
			Filterable: col.Filterable,
		}
		if sorted && col.Sortable && active.Column == col.Key {
			h.Sorted = true
			h.Direction = active.Direction
		}
		out = append(out, h)
	}
	return out
}

func (e Engine[R]) cells(rec R) []Cell {
	cells := make([]Cell, len(e.Schema.columns))
	for i, col := range e.Schema.columns {
		v := col.Accessor(rec)
		cells[i] = Cell{Key: col.Key, Value: v, Display: col.display(v)}
	}
	return cells
}

func (e Engine[R]) matches(cells []Cell, filter FilterSpec) bool {
	for key, f := range filter {
		if f == nil {
			continue
		}
		i, ok := e.Schema.index[key]
		if !ok || !e.Schema.columns[i].Filterable {
			continue
		}
		if !f.Match(cells[i].Value, cells[i].Display) {
			return false
		}
	}
	return true
}

func (e Engine[R]) sort(candidates []candidate[R], sortSpec SortSpec) {
	active, ok := sortSpec.Active()
	if !ok {
		return
	}
	i, found := e.Schema.index[active.Column]
	if !found || !e.Schema.columns[i].Sortable {
		return
	}
	coll := collate.New(e.Language)
	sort.SliceStable(candidates, func(a, b int) bool {
		c := compareValues(coll, candidates[a].cells[i], candidates[b].cells[i])
		if active.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
}

func (e Engine[R]) identity(index int, rec R) string {
	if e.Key != nil {
		return e.Key(rec)
	}
	return strconv.Itoa(index)
}

// compareValues orders nil first, then numbers, times and bools by value and
// everything else by collated display text.
func compareValues(coll *collate.Collator, a, b Cell) int {
	if a.Value == nil || b.Value == nil {
		switch {
		case a.Value == nil && b.Value == nil:
			return 0
		case a.Value == nil:
			return -1
		default:
			return 1
		}
	}
	if x, ok := asFloat(a.Value); ok {
		if y, ok := asFloat(b.Value); ok {
			return cmpOrdered(x, y)
		}
	}
	if x, ok := a.Value.(time.Time); ok {
		if y, ok := b.Value.(time.Time); ok {
			return x.Compare(y)
		}
	}
	if x, ok := a.Value.(bool); ok {
		if y, ok := b.Value.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	if x, ok := a.Value.(string); ok {
		if y, ok := b.Value.(string); ok {
			return coll.CompareString(x, y)
		}
	}
	return coll.CompareString(a.Display, b.Display)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cmpOrdered(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
