package codebook

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/table"
)

// MemoryStore keeps a book in process memory. It backs the console when no
// database is configured and serves as the store in tests. Listing runs the
// table engine, so it filters and sorts exactly like the list screen.
type MemoryStore[T any] struct {
	def *Definition[T]

	mu      sync.RWMutex
	records []T
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore returns a store seeded with records. Records without an
// id are assigned one.
func NewMemoryStore[T any](def *Definition[T], seed ...T) *MemoryStore[T] {
	s := &MemoryStore[T]{def: def, now: time.Now}
	for _, rec := range seed {
		b := def.Base(&rec)
		if b.ID == 0 {
			s.nextID++
			b.ID = s.nextID
		} else if b.ID > s.nextID {
			s.nextID = b.ID
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = s.now()
			b.UpdatedAt = b.CreatedAt
		}
		s.records = append(s.records, rec)
	}
	return s
}

func (s *MemoryStore[T]) List(_ context.Context, filters shared.ListFilters) ([]T, int, error) {
	s.mu.RLock()
	records := slices.Clone(s.records)
	s.mu.RUnlock()

	if filters.Search != "" {
		records = searchRecords(s.def, records, filters.Search)
	}
	spec := table.FilterSpec{}
	for name, value := range filters.Columns {
		spec[name] = table.Contains(value)
	}
	var sort table.SortSpec
	if filters.SortBy != "" {
		dir := table.Ascending
		if filters.Desc() {
			dir = table.Descending
		}
		sort = table.SortBy(filters.SortBy, dir)
	}
	page := table.PageSpec{Index: filters.Page - 1, Size: filters.Limit}

	res := table.Materialize(records, s.def.Schema(), sort, spec, page)
	out := make([]T, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = row.Record
	}
	// Past the last page the engine clamps; a server listing returns nothing.
	if filters.Limit > 0 && filters.Page-1 > res.PageIndex {
		out = []T{}
	}
	return out, res.TotalRows, nil
}

// searchRecords keeps the records where any searchable field contains
// needle, ignoring case.
func searchRecords[T any](def *Definition[T], records []T, needle string) []T {
	match := table.Contains(needle)
	var out []T
	for _, rec := range records {
		for _, f := range def.AllFields() {
			if !f.Searchable {
				continue
			}
			v := deref(f.Ptr(&rec))
			if match.Match(v, table.FormatValue(v)) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func (s *MemoryStore[T]) All(context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *MemoryStore[T]) Get(_ context.Context, id int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.records[i], nil
	}
	var zero T
	return zero, shared.ErrNotFound
}

func (s *MemoryStore[T]) Create(_ context.Context, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.def.Code(rec)
	if s.codeIndex(code) >= 0 {
		var zero T
		return zero, shared.ErrDuplicate
	}
	s.nextID++
	b := s.def.Base(&rec)
	b.ID = s.nextID
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *MemoryStore[T]) Update(_ context.Context, id int64, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		var zero T
		return zero, shared.ErrNotFound
	}
	if j := s.codeIndex(s.def.Code(rec)); j >= 0 && j != i {
		var zero T
		return zero, shared.ErrDuplicate
	}
	prev := s.def.Base(&s.records[i])
	b := s.def.Base(&rec)
	b.ID = id
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = s.now()
	s.records[i] = rec
	return rec, nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return shared.ErrNotFound
	}
	s.records = slices.Delete(s.records, i, i+1)
	return nil
}

func (s *MemoryStore[T]) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, shared.ErrNoSelection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(rec T) bool {
		return slices.Contains(ids, s.def.ID(rec))
	})
	return int64(before - len(s.records)), nil
}

func (s *MemoryStore[T]) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeIndex(code) >= 0, nil
}

func (s *MemoryStore[T]) index(id int64) int {
	return slices.IndexFunc(s.records, func(rec T) bool { return s.def.ID(rec) == id })
}

func (s *MemoryStore[T]) codeIndex(code string) int {
	return slices.IndexFunc(s.records, func(rec T) bool { return strings.EqualFold(s.def.Code(rec), code) })
}
