// Package audit reads back the change history written for code book
// mutations.
package audit

import (
	"context"
	"errors"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// ErrNotConfigured is returned when no history store is wired.
var ErrNotConfigured = errors.New("audit: repository not configured")

// Repository reads history. Window returns entries newest first; a limit of
// zero returns everything after offset.
type Repository interface {
	Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error)
}

// Service coordinates history lookups.
type Service struct {
	repo Repository
}

// NewService creates a history service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries. One extra row is requested to learn
// whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, ErrNotConfigured
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	entries, err := s.repo.Window(ctx, bounded(filters), (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	paging := Paging{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// Export returns every matching entry.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, ErrNotConfigured
	}
	return s.repo.Window(ctx, bounded(filters), 0, 0)
}

// bounded turns the inclusive To date into an exclusive instant.
func bounded(f Filters) Filters {
	if !f.To.IsZero() {
		f.To = f.To.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	return f
}
