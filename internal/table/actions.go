package table

import (
	"errors"
	"fmt"
)

// ErrActionUnavailable is returned when dispatching an action that was not
// configured.
var ErrActionUnavailable = errors.New("table: action unavailable")

// ActionKind names a row action.
type ActionKind string

const (
	ActionEdit      ActionKind = "edit"
	ActionDelete    ActionKind = "delete"
	ActionDuplicate ActionKind = "duplicate"
)

// MenuItem is one entry of a row action menu.
type MenuItem struct {
	Kind        ActionKind
	Label       string
	Destructive bool
}

// Actions forwards a row's record to caller supplied callbacks. Only the
// callbacks that are set show up in the menu.
type Actions[R any] struct {
	OnEdit      func(R) error
	OnDelete    func(R) error
	OnDuplicate func(R) error
}

// Items lists the available menu entries in display order.
func (a Actions[R]) Items() []MenuItem {
	items := make([]MenuItem, 0, 3)
	if a.OnEdit != nil {
		items = append(items, MenuItem{Kind: ActionEdit, Label: "Edit"})
	}
	if a.OnDuplicate != nil {
		items = append(items, MenuItem{Kind: ActionDuplicate, Label: "Duplicate"})
	}
	if a.OnDelete != nil {
		items = append(items, MenuItem{Kind: ActionDelete, Label: "Delete", Destructive: true})
	}
	return items
}

// Has reports whether kind is in the menu.
func (a Actions[R]) Has(kind ActionKind) bool {
	return a.callback(kind) != nil
}

// Dispatch hands record to the callback for kind.
func (a Actions[R]) Dispatch(kind ActionKind, record R) error {
	fn := a.callback(kind)
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrActionUnavailable, kind)
	}
	return fn(record)
}

func (a Actions[R]) callback(kind ActionKind) func(R) error {
	switch kind {
	case ActionEdit:
		return a.OnEdit
	case ActionDelete:
		return a.OnDelete
	case ActionDuplicate:
		return a.OnDuplicate
	default:
		return nil
	}
}
