package codebook

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomworks/erpconsole/internal/masterdata/shared"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/rbac"
	appshared "github.com/loomworks/erpconsole/internal/shared"
)

// APIHandler serves the JSON REST endpoints of one book.
type APIHandler[T any] struct {
	svc    *Service[T]
	logger *slog.Logger
	rbac   rbac.Middleware
}

// NewAPIHandler builds APIHandler instance. Denials are answered with
// envelopes regardless of how guard was configured.
func NewAPIHandler[T any](svc *Service[T], logger *slog.Logger, guard rbac.Middleware) *APIHandler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler[T]{svc: svc, logger: logger, rbac: guard.ForAPI()}
}

// MountRoutes registers the endpoints relative to the book mount point.
func (h *APIHandler[T]) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(appshared.PermCodesView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(appshared.PermCodesEdit))
		r.Post("/", h.create)
		r.Post("/bulk-delete", h.bulkDelete)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/duplicate", h.duplicate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(appshared.PermCodesExport))
		r.Post("/export", h.export)
	})
}

func (h *APIHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	page, err := h.svc.List(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	httpx.List(w, fmt.Sprintf("%s retrieved", h.svc.def.Title), page.Items, page.Total, page.Page, page.TotalPages)
}

func (h *APIHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	httpx.OK(w, http.StatusOK, h.svc.def.Singular+" retrieved", rec)
}

func (h *APIHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	var rec T
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		h.fail(w, r, "create", fmt.Errorf("invalid JSON body: %w", httpx.ErrValidation))
		return
	}
	created, err := h.svc.Create(r.Context(), h.actor(r), rec)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	httpx.OK(w, http.StatusCreated, h.svc.def.Singular+" created", created)
}

func (h *APIHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	var rec T
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		h.fail(w, r, "update", fmt.Errorf("invalid JSON body: %w", httpx.ErrValidation))
		return
	}
	updated, err := h.svc.Update(r.Context(), h.actor(r), id, rec)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	httpx.OK(w, http.StatusOK, h.svc.def.Singular+" updated", updated)
}

func (h *APIHandler[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	if err := h.svc.Delete(r.Context(), h.actor(r), id); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	httpx.OK(w, http.StatusOK, h.svc.def.Singular+" deleted", nil)
}

func (h *APIHandler[T]) duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "duplicate", err)
		return
	}
	created, err := h.svc.Duplicate(r.Context(), h.actor(r), id)
	if err != nil {
		h.fail(w, r, "duplicate", err)
		return
	}
	httpx.OK(w, http.StatusCreated, h.svc.def.Singular+" duplicated", created)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *APIHandler[T]) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "bulk delete", fmt.Errorf("invalid JSON body: %w", httpx.ErrValidation))
		return
	}
	n, err := h.svc.BulkDelete(r.Context(), h.actor(r), req.IDs)
	if err != nil {
		h.fail(w, r, "bulk delete", err)
		return
	}
	httpx.OK(w, http.StatusOK, fmt.Sprintf("%d records deleted", n), bulkDeleteResponse{Deleted: n})
}

type exportResponse struct {
	JobID string `json:"job_id"`
}

func (h *APIHandler[T]) export(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Export(r.Context(), h.actor(r))
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}
	httpx.OK(w, http.StatusAccepted, "export queued", exportResponse{JobID: id})
}

func (h *APIHandler[T]) actor(r *http.Request) int64 {
	id, _ := rbac.CurrentUserID(r.Context(), h.logger)
	return id
}

func (h *APIHandler[T]) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, ErrExportUnavailable) {
		httpx.Fail(w, http.StatusServiceUnavailable, "export queue unavailable")
		return
	}
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("api "+op+" failed", slog.String("book", h.svc.def.Key), slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondEnvelopeError(w, err)
}
