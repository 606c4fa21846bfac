package codebook

import (
	"context"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
)

// Store persists the records of one code book.
type Store[T any] interface {
	List(ctx context.Context, filters shared.ListFilters) ([]T, int, error)
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id int64, rec T) (T, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Page is one page of a server side listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}
