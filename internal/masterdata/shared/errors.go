package shared

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/platform/httpx"
)

var (
	ErrNotFound       = fmt.Errorf("record %w", httpx.ErrNotFound)
	ErrDuplicate      = fmt.Errorf("code already in use: %w", httpx.ErrDuplicate)
	ErrInvalidID      = fmt.Errorf("invalid ID: %w", httpx.ErrValidation)
	ErrNoSelection    = fmt.Errorf("no records selected: %w", httpx.ErrValidation)
	ErrStaleSelection = fmt.Errorf("list changed since selection: %w", httpx.ErrValidation)
)
