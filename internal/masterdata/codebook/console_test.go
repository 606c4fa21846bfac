package codebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/rbac"
	appshared "github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/view"
)

func newConsoleServer(t *testing.T, userID string, svc *Service[thread]) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewConsoleHandler(svc, ConsoleDeps{
		Templates: engine,
		Layout:    &view.Layout{CSRF: appshared.NewCSRFManager("csrf")},
		RBAC:      rbac.Middleware{Service: testPerms},
		PageSize:  10,
		Window:    5,
	})
	r := chi.NewRouter()
	r.Use(withUser(t, userID))
	r.Route("/console/thread-codes", h.MountRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestConsoleListFirstPage(t *testing.T) {
	svc, _, _ := newTestService(t, 48)
	rec := get(t, newConsoleServer(t, "1", svc), "/console/thread-codes")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "T001")
	assert.Contains(t, body, "T010")
	assert.NotContains(t, body, "T011")
	assert.Contains(t, body, "1–10 of 48")
	assert.Contains(t, body, "Page 1 of 5")
	assert.Contains(t, body, `name="ids"`)
}

func TestConsoleListClampsPastLastPage(t *testing.T) {
	svc, _, _ := newTestService(t, 48)
	rec := get(t, newConsoleServer(t, "1", svc), "/console/thread-codes?page=6")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Page 5 of 5")
	assert.Contains(t, body, "T048")
	assert.NotContains(t, body, "T040")
}

func TestConsoleListSortAndFilter(t *testing.T) {
	svc, _, _ := newTestService(t, 48)
	srv := newConsoleServer(t, "1", svc)

	body := get(t, srv, "/console/thread-codes?sort=code&dir=desc").Body.String()
	require.Contains(t, body, "T048")
	assert.Less(t, strings.Index(body, "T048"), strings.Index(body, "T047"))
	assert.Contains(t, body, `aria-sort="descending"`)

	body = get(t, srv, "/console/thread-codes?f_color=blue").Body.String()
	assert.Contains(t, body, "of 16")
	assert.NotContains(t, body, "<td>Red</td>")
}

func TestConsoleListEmptyState(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	body := get(t, newConsoleServer(t, "1", svc), "/console/thread-codes?q=nothing-matches").Body.String()
	assert.Contains(t, body, "No Thread Codes found.")
	assert.Contains(t, body, `colspan="7"`)
}

func TestConsoleViewerHasNoEditControls(t *testing.T) {
	svc, _, _ := newTestService(t, 3)
	srv := newConsoleServer(t, "2", svc)

	rec := get(t, srv, "/console/thread-codes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `name="ids"`)

	rec = postForm(t, srv, "/console/thread-codes/1/action", url.Values{"kind": {"delete"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConsoleRequiresLogin(t *testing.T) {
	svc, _, _ := newTestService(t, 3)
	rec := get(t, newConsoleServer(t, "", svc), "/console/thread-codes")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, rbac.LoginPath, rec.Header().Get("Location"))
}

func TestConsoleBulkDeleteRejectsStaleSelection(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	srv := newConsoleServer(t, "1", svc)
	ctx := context.Background()

	gen, err := svc.Generation(ctx)
	require.NoError(t, err)
	stale := strconv.FormatInt(gen+1, 10)

	rec := postForm(t, srv, "/console/thread-codes/bulk-delete", url.Values{"gen": {stale}, "ids": {"1", "2"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = svc.Get(ctx, 1)
	assert.NoError(t, err)

	rec = postForm(t, srv, "/console/thread-codes/bulk-delete", url.Values{
		"gen":    {strconv.FormatInt(gen, 10)},
		"ids":    {"1", "2", "404"},
		"return": {"page=1&size=25"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/console/thread-codes?size=25", rec.Header().Get("Location"))
	records, _, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestConsoleRowActions(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	srv := newConsoleServer(t, "1", svc)
	ctx := context.Background()

	rec := postForm(t, srv, "/console/thread-codes/1/action", url.Values{"kind": {"edit"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/console/thread-codes/1/edit", rec.Header().Get("Location"))

	rec = postForm(t, srv, "/console/thread-codes/1/action", url.Values{"kind": {"duplicate"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/console/thread-codes/3/edit", rec.Header().Get("Location"))
	dup, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "T001-COPY", dup.Code)

	rec = postForm(t, srv, "/console/thread-codes/2/action", url.Values{"kind": {"delete"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/console/thread-codes", rec.Header().Get("Location"))
	_, err = svc.Get(ctx, 2)
	assert.Error(t, err)
}

func TestConsoleFormShowsFieldErrors(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	srv := newConsoleServer(t, "1", svc)

	rec := get(t, srv, "/console/thread-codes/new")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="weight"`)

	rec = postForm(t, srv, "/console/thread-codes", url.Values{"name": {"No code"}, "weight": {"heavy"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a whole number")

	rec = postForm(t, srv, "/console/thread-codes", url.Values{"code": {"T001"}, "name": {"Clash"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "is already in use")

	rec = postForm(t, srv, "/console/thread-codes", url.Values{"code": {"T777"}, "name": {"Lucky"}, "active": {"true"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	created, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, created.Active)

	rec = get(t, srv, "/console/thread-codes/2/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="T777"`)
}
