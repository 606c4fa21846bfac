package codebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/cache"
	appshared "github.com/loomworks/erpconsole/internal/shared"
)

// ErrExportUnavailable is returned when no job queue is configured.
var ErrExportUnavailable = errors.New("codebook: export queue not configured")

const maxCopyAttempts = 1000

// Auditor records mutations.
type Auditor interface {
	Record(ctx context.Context, log appshared.AuditLog) error
}

// Recorder counts mutations.
type Recorder interface {
	RecordMutation(book, action string)
}

// Exporter hands a book export to the background worker.
type Exporter interface {
	EnqueueExport(ctx context.Context, book string, requestedBy int64) (string, error)
}

// ServiceDeps are the optional collaborators of a Service.
type ServiceDeps struct {
	Logger   *slog.Logger
	Cache    *cache.Versioned
	Audit    Auditor
	Metrics  Recorder
	Exporter Exporter
	Validate *validator.Validate
}

// Service holds the business rules of one code book.
type Service[T any] struct {
	def      *Definition[T]
	store    Store[T]
	logger   *slog.Logger
	cache    *cache.Versioned
	audit    Auditor
	metrics  Recorder
	exporter Exporter
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService[T any](def *Definition[T], store Store[T], deps ServiceDeps) *Service[T] {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validate == nil {
		deps.Validate = NewValidator()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewVersioned(nil, "", 0)
	}
	return &Service[T]{
		def:      def,
		store:    store,
		logger:   deps.Logger.With(slog.String("book", def.Key)),
		cache:    deps.Cache,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		exporter: deps.Exporter,
		validate: deps.Validate,
	}
}

// Definition returns the book definition.
func (s *Service[T]) Definition() *Definition[T] { return s.def }

// List returns one page of records for the API.
func (s *Service[T]) List(ctx context.Context, filters shared.ListFilters) (Page[T], error) {
	if filters.Page <= 0 {
		filters.Page = shared.DefaultPage
	}
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	pagination := appshared.NewPagination(filters.Page, filters.Limit, 0)
	filters.Limit = pagination.PerPage

	key, _, err := s.cache.BuildKey(ctx, s.def.Key, "list", filters.Encode().Encode())
	if err != nil {
		return Page[T]{}, fmt.Errorf("codebook: %s: cache key: %w", s.def.Key, err)
	}
	var page Page[T]
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		items, total, err := s.store.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		p := appshared.NewPagination(filters.Page, filters.Limit, total)
		return Page[T]{Items: items, Total: total, Page: filters.Page, PageSize: p.PerPage, TotalPages: p.TotalPages}, nil
	})
	if err != nil {
		return Page[T]{}, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// All returns every record together with the generation of the snapshot.
// The generation changes whenever the book is mutated.
func (s *Service[T]) All(ctx context.Context) ([]T, int64, error) {
	key, gen, err := s.cache.BuildKey(ctx, s.def.Key, "all")
	if err != nil {
		return nil, 0, fmt.Errorf("codebook: %s: cache key: %w", s.def.Key, err)
	}
	var records []T
	err = s.cache.FetchJSON(ctx, key, &records, func(ctx context.Context) (any, error) {
		return s.store.All(ctx)
	})
	if err != nil {
		return nil, 0, err
	}
	return records, gen, nil
}

// Generation returns the current snapshot generation without loading.
func (s *Service[T]) Generation(ctx context.Context) (int64, error) {
	return s.cache.Version(ctx, s.def.Key)
}

// Get fetches one record.
func (s *Service[T]) Get(ctx context.Context, id int64) (T, error) {
	if id <= 0 {
		var zero T
		return zero, shared.ErrInvalidID
	}
	return s.store.Get(ctx, id)
}

// Validate checks rec against the struct rules of its type.
func (s *Service[T]) Validate(rec T) error {
	return ValidateRecord(s.validate, rec)
}

// Create validates and stores a new record.
func (s *Service[T]) Create(ctx context.Context, actor int64, rec T) (T, error) {
	if err := s.Validate(rec); err != nil {
		var zero T
		return zero, err
	}
	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return created, err
	}
	s.mutated(ctx, actor, "create", created, nil)
	return created, nil
}

// Update validates and overwrites record id.
func (s *Service[T]) Update(ctx context.Context, actor, id int64, rec T) (T, error) {
	if id <= 0 {
		var zero T
		return zero, shared.ErrInvalidID
	}
	if err := s.Validate(rec); err != nil {
		var zero T
		return zero, err
	}
	updated, err := s.store.Update(ctx, id, rec)
	if err != nil {
		return updated, err
	}
	s.mutated(ctx, actor, "update", updated, nil)
	return updated, nil
}

// Delete removes record id.
func (s *Service[T]) Delete(ctx context.Context, actor, id int64) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.mutated(ctx, actor, "delete", rec, nil)
	return nil
}

// Duplicate copies record id under the first free code of the form
// CODE-COPY, CODE-COPY2, CODE-COPY3 and so on.
func (s *Service[T]) Duplicate(ctx context.Context, actor, id int64) (T, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return src, err
	}
	code, err := s.freeCopyCode(ctx, s.def.Code(src))
	if err != nil {
		var zero T
		return zero, err
	}
	b := s.def.Base(&src)
	b.ID = 0
	b.Code = code
	created, err := s.Create(ctx, actor, src)
	if err != nil {
		return created, err
	}
	s.logger.Debug("record duplicated", slog.Int64("source_id", id), slog.String("code", code))
	return created, nil
}

func (s *Service[T]) freeCopyCode(ctx context.Context, code string) (string, error) {
	base := code + shared.CopySuffix
	for n := 1; n <= maxCopyAttempts; n++ {
		candidate := base
		if n > 1 {
			candidate = base + strconv.Itoa(n)
		}
		exists, err := s.store.CodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("codebook: %s: no free copy code for %q: %w", s.def.Key, code, shared.ErrDuplicate)
}

// BulkDelete removes the listed records and returns how many were deleted.
func (s *Service[T]) BulkDelete(ctx context.Context, actor int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, shared.ErrNoSelection
	}
	for _, id := range ids {
		if id <= 0 {
			return 0, shared.ErrInvalidID
		}
	}
	n, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.bump(ctx)
		s.record(ctx, actor, "bulk_delete", "bulk", map[string]any{"ids": ids, "deleted": n})
	}
	return n, nil
}

// Export enqueues a CSV export and returns the job id.
func (s *Service[T]) Export(ctx context.Context, actor int64) (string, error) {
	if s.exporter == nil {
		return "", ErrExportUnavailable
	}
	id, err := s.exporter.EnqueueExport(ctx, s.def.Key, actor)
	if err != nil {
		return "", fmt.Errorf("codebook: %s: enqueue export: %w", s.def.Key, err)
	}
	s.record(ctx, actor, "export", "all", map[string]any{"job_id": id})
	return id, nil
}

func (s *Service[T]) mutated(ctx context.Context, actor int64, action string, rec T, meta map[string]any) {
	s.bump(ctx)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["code"] = s.def.Code(rec)
	s.record(ctx, actor, action, strconv.FormatInt(s.def.ID(rec), 10), meta)
}

func (s *Service[T]) bump(ctx context.Context) {
	if _, err := s.cache.Bump(ctx, s.def.Key); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func (s *Service[T]) record(ctx context.Context, actor int64, action, entityID string, meta map[string]any) {
	if s.metrics != nil {
		s.metrics.RecordMutation(s.def.Key, action)
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, appshared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   s.def.Key,
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
