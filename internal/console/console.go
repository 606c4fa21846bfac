// Package console assembles the code books into the navigable admin shell:
// the sidebar, the dashboard and the book registry.
package console

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/loomworks/erpconsole/internal/masterdata/businesses"
	"github.com/loomworks/erpconsole/internal/masterdata/clients"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/masterdata/fabrics"
	"github.com/loomworks/erpconsole/internal/masterdata/items"
	"github.com/loomworks/erpconsole/internal/masterdata/staff"
	"github.com/loomworks/erpconsole/internal/masterdata/yarns"
	"github.com/loomworks/erpconsole/internal/rbac"
	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/view"
)

// BasePath is where the book screens are mounted.
const BasePath = "/console"

// NewRegistry builds every code book in sidebar order.
func NewRegistry(deps codebook.Deps) (*codebook.Registry, error) {
	if deps.Console.BasePath == "" {
		deps.Console.BasePath = BasePath
	}
	return codebook.NewRegistry(
		yarns.New(deps),
		items.New(deps),
		fabrics.New(deps),
		staff.New(deps),
		businesses.New(deps),
		clients.New(deps),
	)
}

// Nav returns the sidebar entries for reg.
func Nav(reg *codebook.Registry) []view.NavItem {
	items := []view.NavItem{{Title: "Dashboard", Path: "/"}}
	for _, b := range reg.Books() {
		items = append(items, view.NavItem{Title: b.Title(), Path: BasePath + "/" + b.Key()})
	}
	return append(items,
		view.NavItem{Title: "Change History", Path: "/audit"},
		view.NavItem{Title: "Permissions", Path: "/permissions"},
	)
}

// Handler serves the dashboard.
type Handler struct {
	logger    *slog.Logger
	registry  *codebook.Registry
	templates *view.Engine
	layout    *view.Layout
	rbac      rbac.Middleware
	env       string
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, registry *codebook.Registry, templates *view.Engine, layout *view.Layout, guard rbac.Middleware, env string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, templates: templates, layout: layout, rbac: guard, env: env}
}

// MountRoutes registers the dashboard at the router root.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireLogin).Get("/", h.dashboard)
}

type bookCard struct {
	Key   string
	Title string
	Path  string
	Count int
}

type dashboardPage struct {
	Books []bookCard
	Env   string
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	page := dashboardPage{Env: h.env}
	if h.rbac.Can(r, shared.PermCodesView) {
		cards, err := h.cards(r.Context())
		if err != nil {
			h.logger.Error("dashboard counts", slog.Any("error", err))
			view.Flash(r, "error", "Some record counts could not be loaded")
		}
		page.Books = cards
	}
	td := h.layout.Data(r, "Dashboard", page)
	if err := h.templates.Render(w, "pages/home.html", td); err != nil {
		h.logger.Error("render home", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// cards counts every book concurrently. A failed count leaves zero and the
// first error is returned alongside the cards.
func (h *Handler) cards(ctx context.Context) ([]bookCard, error) {
	books := h.registry.Books()
	cards := make([]bookCard, len(books))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range books {
		i, b := i, b
		cards[i] = bookCard{Key: b.Key(), Title: b.Title(), Path: BasePath + "/" + b.Key()}
		g.Go(func() error {
			n, err := b.Count(gctx)
			if err != nil {
				return err
			}
			cards[i].Count = n
			return nil
		})
	}
	return cards, g.Wait()
}
