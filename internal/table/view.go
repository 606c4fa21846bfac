package table

import (
	"strconv"

	"golang.org/x/text/language"
)

// ViewOption configures a View.
type ViewOption[R any] func(*View[R])

// WithKey gives records a stable identity instead of their position.
func WithKey[R any](key func(R) string) ViewOption[R] {
	return func(v *View[R]) { v.engine.Key = key }
}

// WithPageSize sets the initial page size.
func WithPageSize[R any](size int) ViewOption[R] {
	return func(v *View[R]) { v.page.Size = size }
}

// WithLanguage sets the collation language for string sorting.
func WithLanguage[R any](tag language.Tag) ViewOption[R] {
	return func(v *View[R]) { v.engine.Language = tag }
}

// View holds the sort, filter, page and selection state of one table and
// recomputes the visible page on demand.
type View[R any] struct {
	engine     Engine[R]
	records    []R
	byID       map[string]int
	generation uint64
	loading    bool
	err        error

	sort   SortSpec
	filter FilterSpec
	page   PageSpec

	selection *Selection[R]
}

// NewView builds a view and the handle its owner uses to reach the selection.
func NewView[R any](schema *Schema[R], opts ...ViewOption[R]) (*View[R], *Handle[R]) {
	v := &View[R]{
		engine: Engine[R]{Schema: schema},
		filter: FilterSpec{},
		byID:   map[string]int{},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.selection = NewSelection(v.resolve)
	return v, &Handle[R]{view: v}
}

// SetRecords installs a new record snapshot. A different generation resets
// the selection and returns to the first page.
func (v *View[R]) SetRecords(records []R, generation uint64) {
	if records == nil {
		records = []R{}
	}
	if generation != v.generation {
		v.selection.Clear()
		v.page.Index = 0
	}
	v.records = records
	v.generation = generation
	v.loading = false
	v.err = nil
	v.byID = make(map[string]int, len(records))
	for i, rec := range records {
		v.byID[v.engine.identity(i, rec)] = i
	}
}

// Sync applies a source snapshot.
func (v *View[R]) Sync(snap Snapshot[R]) {
	if snap.State == StateLoading {
		v.loading = true
		return
	}
	v.SetRecords(snap.Records, snap.Generation)
	v.err = snap.Err
}

// SetLoading flags the view as waiting for its source.
func (v *View[R]) SetLoading(loading bool) {
	v.loading = loading
}

// Err returns the error of the last failed fetch.
func (v *View[R]) Err() error {
	return v.err
}

// Generation returns the generation of the current records.
func (v *View[R]) Generation() uint64 {
	return v.generation
}

// Sort returns the current sort spec.
func (v *View[R]) Sort() SortSpec {
	return v.sort
}

// SetSort replaces the sort spec. Entries on unusable columns are dropped.
func (v *View[R]) SetSort(spec SortSpec) {
	kept := make(SortSpec, 0, len(spec))
	for _, key := range spec {
		if v.engine.Schema.CanSort(key.Column) {
			kept = append(kept, key)
		}
	}
	v.sort = kept
}

// ToggleSort flips the sort on a column and reports whether it applied.
func (v *View[R]) ToggleSort(column string) bool {
	if !v.engine.Schema.CanSort(column) {
		return false
	}
	v.sort = ToggleSort(v.sort, column)
	return true
}

// ClearSort restores insertion order.
func (v *View[R]) ClearSort() {
	v.sort = nil
}

// SetFilter constrains a column. A nil filter removes the constraint.
func (v *View[R]) SetFilter(column string, f Filter) bool {
	if !v.engine.Schema.CanFilter(column) {
		return false
	}
	if f == nil {
		delete(v.filter, column)
		return true
	}
	v.filter[column] = f
	return true
}

// ClearFilters removes every filter.
func (v *View[R]) ClearFilters() {
	v.filter = FilterSpec{}
}

// Filters returns a copy of the filter spec.
func (v *View[R]) Filters() FilterSpec {
	out := make(FilterSpec, len(v.filter))
	for k, f := range v.filter {
		out[k] = f
	}
	return out
}

// SetPage selects a zero-based page. It is clamped on the next Result.
func (v *View[R]) SetPage(index int) {
	v.page.Index = index
}

// SetPageSize changes the rows per page and returns to the first page.
func (v *View[R]) SetPageSize(size int) {
	v.page.Size = size
	v.page.Index = 0
}

// Page returns the current page spec.
func (v *View[R]) Page() PageSpec {
	return v.page
}

// Toggle flips the selection of a row.
func (v *View[R]) Toggle(id string) bool {
	return v.selection.Toggle(id)
}

// Select marks rows selected.
func (v *View[R]) Select(ids ...string) {
	for _, id := range ids {
		v.selection.Select(id)
	}
}

// Selection exposes the selection tracker.
func (v *View[R]) Selection() *Selection[R] {
	return v.selection
}

// Result materializes the current page. The stored page index is clamped to
// the result so later navigation starts from a valid page.
func (v *View[R]) Result() Result[R] {
	if v.loading {
		return Result[R]{
			Columns:  v.engine.headers(v.sort),
			PageSize: v.page.Size,
			Loading:  true,
		}
	}
	res := v.engine.Materialize(v.records, v.sort, v.filter, v.page)
	v.page.Index = res.PageIndex
	for i := range res.Rows {
		res.Rows[i].Selected = v.selection.IsSelected(res.Rows[i].ID)
	}
	return res
}

func (v *View[R]) resolve(id string) (R, int, bool) {
	i, ok := v.byID[id]
	if !ok {
		var zero R
		return zero, 0, false
	}
	return v.records[i], i, true
}

// PositionalID is the identity assigned to the record at index when no key
// function is set.
func PositionalID(index int) string {
	return strconv.Itoa(index)
}
