package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/shared"
)

// LoginPath is where unauthenticated console requests are redirected.
const LoginPath = "/auth/login"

// PermissionResolver returns the permission names granted to a user.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionResolver
	Logger  *slog.Logger
	// API switches denials to JSON envelopes instead of redirects.
	API bool
}

// ForAPI returns a copy of m that answers with API envelopes.
func (m Middleware) ForAPI() Middleware {
	m.API = true
	return m
}

// RequireLogin rejects requests whose session carries no user.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.currentUserID(r); !ok {
			m.unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require any", hasAnyPermission, perms)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require all", hasAllPermissions, perms)
}

func (m Middleware) require(op string, check func(granted, required []string) bool, perms []string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				m.unauthenticated(w, r)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				m.fail(w, http.StatusInternalServerError)
				return
			}
			if check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.fail(w, http.StatusForbidden)
		})
	}
}

// Can reports whether the current user holds perm. Errors count as denial.
func (m Middleware) Can(r *http.Request, perm string) bool {
	userID, ok := m.currentUserID(r)
	if !ok || m.Service == nil {
		return false
	}
	granted, err := m.Service.EffectivePermissions(r.Context(), userID)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]string{perm}))
}

func (m Middleware) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if m.API {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (m Middleware) fail(w http.ResponseWriter, status int) {
	if m.API {
		httpx.Fail(w, status, strings.ToLower(http.StatusText(status)))
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	return CurrentUserID(r.Context(), m.Logger)
}

// CurrentUserID parses the user id stored in the request session.
func CurrentUserID(ctx context.Context, logger *slog.Logger) (int64, bool) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if logger != nil {
			logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
