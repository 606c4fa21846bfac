package table

import (
	"strings"

	"golang.org/x/text/cases"
)

// Direction is a sort direction.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = iota
	// Descending sorts largest first.
	Descending
)

// String returns the query form of the direction.
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection reads "desc" as Descending and anything else as Ascending.
func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), "desc") {
		return Descending
	}
	return Ascending
}

// SortKey orders rows by one column.
type SortKey struct {
	Column    string
	Direction Direction
}

// SortSpec is an ordered list of sort keys. Only the first one is applied;
// an empty spec keeps insertion order.
type SortSpec []SortKey

// Active returns the sort key in effect.
func (s SortSpec) Active() (SortKey, bool) {
	if len(s) == 0 {
		return SortKey{}, false
	}
	return s[0], true
}

// SortBy returns a single-column spec.
func SortBy(column string, dir Direction) SortSpec {
	if column == "" {
		return nil
	}
	return SortSpec{{Column: column, Direction: dir}}
}

// ToggleSort cycles a column between ascending and descending. A click on a
// column that is not the active one starts ascending. There is no way back
// to unsorted through toggling; use an empty spec for that.
func ToggleSort(spec SortSpec, column string) SortSpec {
	if active, ok := spec.Active(); ok && active.Column == column {
		dir := Descending
		if active.Direction == Descending {
			dir = Ascending
		}
		return SortBy(column, dir)
	}
	return SortBy(column, Ascending)
}

// Filter decides whether a cell passes. It receives the accessor value and
// the rendered text of the cell.
type Filter interface {
	Match(value any, display string) bool
}

// FilterSpec maps column keys to filters. Columns without an entry are
// unconstrained.
type FilterSpec map[string]Filter

// Predicate adapts a function over the raw cell value.
type Predicate func(value any) bool

// Match implements Filter.
func (p Predicate) Match(value any, _ string) bool {
	if p == nil {
		return true
	}
	return p(value)
}

// Contains matches cells whose rendered text contains the needle, ignoring
// case. An empty needle matches everything.
type Contains string

// Match implements Filter.
func (c Contains) Match(_ any, display string) bool {
	needle := strings.TrimSpace(string(c))
	if needle == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(display), fold.String(needle))
}

// Equals matches cells whose rendered text equals the value, ignoring case.
type Equals string

// Match implements Filter.
func (e Equals) Match(_ any, display string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(display)) == fold.String(strings.TrimSpace(string(e)))
}

// PageSpec selects one page. Index is zero-based; a Size of zero or less
// puts every row on a single page.
type PageSpec struct {
	Index int
	Size  int
}
