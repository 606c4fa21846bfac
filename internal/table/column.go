// Package table materializes pages of arbitrary records for list screens:
// filtering, sorting, pagination, selection and row actions.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDuplicateColumn is returned when two columns share a key.
	ErrDuplicateColumn = errors.New("table: duplicate column key")
	// ErrInvalidColumn is returned when a column has no key or accessor.
	ErrInvalidColumn = errors.New("table: invalid column")
	// ErrUnknownColumn is returned when a spec references a missing column.
	ErrUnknownColumn = errors.New("table: unknown column")
	// ErrNotSortable is returned when sorting on a column that forbids it.
	ErrNotSortable = errors.New("table: column not sortable")
	// ErrNotFilterable is returned when filtering on a column that forbids it.
	ErrNotFilterable = errors.New("table: column not filterable")
)

// Column declares how to read and render one field of a record.
type Column[R any] struct {
	Key        string
	Header     string
	Sortable   bool
	Filterable bool
	// Accessor must be pure: same record, same value.
	Accessor func(R) any
	// Render formats a cell value. FormatValue is used when nil.
	Render func(any) string
}

func (c Column[R]) display(value any) string {
	if c.Render != nil {
		return c.Render(value)
	}
	return FormatValue(value)
}

// Schema is an ordered set of columns with unique keys.
type Schema[R any] struct {
	columns []Column[R]
	index   map[string]int
}

// NewSchema validates the columns and builds a Schema.
func NewSchema[R any](columns ...Column[R]) (*Schema[R], error) {
	s := &Schema[R]{
		columns: make([]Column[R], 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		col.Key = strings.TrimSpace(col.Key)
		if col.Key == "" {
			return nil, fmt.Errorf("%w: column %d has no key", ErrInvalidColumn, i)
		}
		if col.Accessor == nil {
			return nil, fmt.Errorf("%w: column %q has no accessor", ErrInvalidColumn, col.Key)
		}
		if _, exists := s.index[col.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Key)
		}
		if col.Header == "" {
			col.Header = col.Key
		}
		s.index[col.Key] = len(s.columns)
		s.columns = append(s.columns, col)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on invalid definitions.
func MustSchema[R any](columns ...Column[R]) *Schema[R] {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the column definitions in order.
func (s *Schema[R]) Columns() []Column[R] {
	out := make([]Column[R], len(s.columns))
	copy(out, s.columns)
	return out
}

// Len reports the number of columns.
func (s *Schema[R]) Len() int {
	return len(s.columns)
}

// Column looks up a column by key.
func (s *Schema[R]) Column(key string) (Column[R], bool) {
	i, ok := s.index[key]
	if !ok {
		return Column[R]{}, false
	}
	return s.columns[i], true
}

// CanSort reports whether key names a sortable column.
func (s *Schema[R]) CanSort(key string) bool {
	col, ok := s.Column(key)
	return ok && col.Sortable
}

// CanFilter reports whether key names a filterable column.
func (s *Schema[R]) CanFilter(key string) bool {
	col, ok := s.Column(key)
	return ok && col.Filterable
}

// Validate checks that sort and filter specs only reference usable columns.
func (s *Schema[R]) Validate(sort SortSpec, filter FilterSpec) error {
	for _, key := range sort {
		col, ok := s.Column(key.Column)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, key.Column)
		}
		if !col.Sortable {
			return fmt.Errorf("%w: %q", ErrNotSortable, key.Column)
		}
	}
	for key := range filter {
		col, ok := s.Column(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, key)
		}
		if !col.Filterable {
			return fmt.Errorf("%w: %q", ErrNotFilterable, key)
		}
	}
	return nil
}

// FormatValue is the default cell renderer.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("02 Jan 2006")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
