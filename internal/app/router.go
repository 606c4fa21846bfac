package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/loomworks/erpconsole/internal/audit/http"
	"github.com/loomworks/erpconsole/internal/auth"
	"github.com/loomworks/erpconsole/internal/console"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/observability"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/rbac"
	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/jobs"
	"github.com/loomworks/erpconsole/web"
)

// APIPrefix is the mount point of the JSON API.
const APIPrefix = "/api/v1"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	Activity           *shared.Activity
	AuthHandler        *auth.Handler
	AuthAPIHandler     *auth.APIHandler
	ConsoleHandler     *console.Handler
	Books              *codebook.Registry
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router serving the console and the API.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		Activity:       params.Activity,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(params.Logger, params.SessionManager))
		r.Use(CSRFMiddleware(params.Logger, params.CSRFManager))

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.ConsoleHandler != nil {
			params.ConsoleHandler.MountRoutes(r)
		}
		if params.Books != nil {
			r.Route(console.BasePath, params.Books.MountConsole)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(BearerSessionMiddleware(params.Logger, params.SessionManager))
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Fail(w, http.StatusNotFound, "resource not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Fail(w, http.StatusMethodNotAllowed, "method not allowed")
		})
		if params.AuthAPIHandler != nil {
			r.Route("/auth", params.AuthAPIHandler.MountRoutes)
		}
		if params.Books != nil {
			params.Books.MountAPI(r)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
