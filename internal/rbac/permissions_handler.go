package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/view"
)

// PermissionsHandler shows which roles grant each permission.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	layout    *view.Layout
	rbac      Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, templates *view.Engine, layout *view.Layout, rbac Middleware) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, service: service, templates: templates, layout: layout, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCodesView))
		r.Get("/", h.listPermissions)
	})
}

type permissionsPage struct {
	Grants []Grant
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.ListGrants(r.Context())
	status := http.StatusOK
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		view.Flash(r, "error", "Permissions could not be loaded")
		status = http.StatusInternalServerError
	}
	td := h.layout.Data(r, "Permissions", permissionsPage{Grants: grants})
	if err := h.templates.RenderStatus(w, status, "pages/permissions.html", td); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
