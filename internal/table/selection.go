package table

import "sort"

// Resolver maps a row identity to the record and its position in the
// current source snapshot.
type Resolver[R any] func(id string) (R, int, bool)

// Selection tracks selected row identities for one source snapshot.
type Selection[R any] struct {
	ids     map[string]struct{}
	resolve Resolver[R]
}

// NewSelection builds an empty selection over the given resolver.
func NewSelection[R any](resolve Resolver[R]) *Selection[R] {
	return &Selection[R]{ids: make(map[string]struct{}), resolve: resolve}
}

// Toggle flips the selection of a row and reports whether it is now
// selected. Unknown rows are ignored.
func (s *Selection[R]) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	return s.Select(id)
}

// Select marks a row selected.
func (s *Selection[R]) Select(id string) bool {
	if s.resolve != nil {
		if _, _, ok := s.resolve(id); !ok {
			return false
		}
	}
	s.ids[id] = struct{}{}
	return true
}

// Deselect unmarks a row.
func (s *Selection[R]) Deselect(id string) {
	delete(s.ids, id)
}

// IsSelected reports whether a row is selected.
func (s *Selection[R]) IsSelected(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected rows.
func (s *Selection[R]) Len() int {
	return len(s.ids)
}

// SelectedIDs returns the selected identities in source order.
func (s *Selection[R]) SelectedIDs() []string {
	type entry struct {
		id  string
		pos int
	}
	entries := make([]entry, 0, len(s.ids))
	for id := range s.ids {
		pos := 0
		if s.resolve != nil {
			_, p, ok := s.resolve(id)
			if !ok {
				continue
			}
			pos = p
		}
		entries = append(entries, entry{id: id, pos: pos})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pos != entries[j].pos {
			return entries[i].pos < entries[j].pos
		}
		return entries[i].id < entries[j].id
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// GetSelected returns the original records for every selected row.
func (s *Selection[R]) GetSelected() []R {
	out := make([]R, 0, len(s.ids))
	if s.resolve == nil {
		return out
	}
	for _, id := range s.SelectedIDs() {
		if rec, _, ok := s.resolve(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Clear drops every selected row.
func (s *Selection[R]) Clear() {
	clear(s.ids)
}

// Handle lets the owning screen query and clear the selection of a view.
type Handle[R any] struct {
	view *View[R]
}

// GetSelectedRows returns the selected records.
func (h *Handle[R]) GetSelectedRows() []R {
	if h == nil || h.view == nil {
		return nil
	}
	return h.view.selection.GetSelected()
}

// ClearSelection empties the selection.
func (h *Handle[R]) ClearSelection() {
	if h == nil || h.view == nil {
		return
	}
	h.view.selection.Clear()
}
