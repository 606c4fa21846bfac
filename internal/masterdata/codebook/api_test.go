package codebook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/rbac"
	appshared "github.com/loomworks/erpconsole/internal/shared"
)

type permStub map[int64][]string

func (p permStub) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return p[userID], nil
}

var testPerms = permStub{
	1: {appshared.PermCodesView, appshared.PermCodesEdit, appshared.PermCodesExport},
	2: {appshared.PermCodesView},
}

// withUser attaches a session for userID; an empty id leaves the request
// anonymous.
func withUser(t *testing.T, userID string) func(http.Handler) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := appshared.NewSessionManager(client, "s", "secret", time.Hour, false)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			require.NoError(t, err)
			if userID != "" {
				sess.SetUser(userID)
			}
			next.ServeHTTP(w, r.WithContext(appshared.ContextWithSession(r.Context(), sess)))
		})
	}
}

func newAPIServer(t *testing.T, userID string, svc *Service[thread]) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(withUser(t, userID))
	h := NewAPIHandler(svc, nil, rbac.Middleware{Service: testPerms})
	r.Route("/api/v1/thread-codes", h.MountRoutes)
	return r
}

type envelope struct {
	Status      bool              `json:"status"`
	Message     string            `json:"message"`
	StatusCode  int               `json:"status_code"`
	Data        json.RawMessage   `json:"data"`
	DataList    []thread          `json:"dataList"`
	Total       *int              `json:"total"`
	CurrentPage *int              `json:"currentPage"`
	TotalPages  *int              `json:"totalPages"`
	Errors      map[string]string `json:"errors"`
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestAPIListPaginates(t *testing.T) {
	svc, _, _ := newTestService(t, 12)
	srv := newAPIServer(t, "2", svc)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/thread-codes?page=3&pageSize=5&sort=code&dir=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Status)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	require.NotNil(t, env.Total)
	assert.Equal(t, 12, *env.Total)
	assert.Equal(t, 3, *env.CurrentPage)
	assert.Equal(t, 3, *env.TotalPages)
	require.Len(t, env.DataList, 2)
	assert.Equal(t, "T002", env.DataList[0].Code)
}

func TestAPIRequiresSession(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	rec, env := do(t, newAPIServer(t, "", svc), http.MethodGet, "/api/v1/thread-codes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Status)
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
}

func TestAPIViewerCannotMutate(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	rec, env := do(t, newAPIServer(t, "2", svc), http.MethodDelete, "/api/v1/thread-codes/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, env.Status)
}

func TestAPICreateReportsFieldErrors(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	srv := newAPIServer(t, "1", svc)

	rec, env := do(t, srv, http.MethodPost, "/api/v1/thread-codes", map[string]any{"name": "No code", "weight": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "is required", env.Errors["code"])
	assert.Equal(t, "must be 0 or more", env.Errors["weight"])

	rec, env = do(t, srv, http.MethodPost, "/api/v1/thread-codes", map[string]any{"code": "T001", "name": "Clash"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Status)

	rec, env = do(t, srv, http.MethodPost, "/api/v1/thread-codes", map[string]any{"code": "T050", "name": "Fifty", "color": "Ecru"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created thread
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "T050", created.Code)
	assert.Positive(t, created.ID)
}

func TestAPIGetUpdateDelete(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	srv := newAPIServer(t, "1", svc)

	rec, _ := do(t, srv, http.MethodGet, "/api/v1/thread-codes/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/thread-codes/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := do(t, srv, http.MethodPut, "/api/v1/thread-codes/2", map[string]any{"code": "T002", "name": "Second", "weight": 40})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated thread
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 40, updated.Weight)

	rec, _ = do(t, srv, http.MethodDelete, "/api/v1/thread-codes/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, srv, http.MethodGet, "/api/v1/thread-codes/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIDuplicateAndBulkDelete(t *testing.T) {
	svc, _, _ := newTestService(t, 4)
	srv := newAPIServer(t, "1", svc)

	rec, env := do(t, srv, http.MethodPost, "/api/v1/thread-codes/1/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dup thread
	require.NoError(t, json.Unmarshal(env.Data, &dup))
	assert.Equal(t, "T001-COPY", dup.Code)

	rec, env = do(t, srv, http.MethodPost, "/api/v1/thread-codes/bulk-delete", map[string]any{"ids": []int64{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Status)

	rec, env = do(t, srv, http.MethodPost, "/api/v1/thread-codes/bulk-delete", map[string]any{"ids": []int64{1, 2, dup.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, string(env.Data))
}

func TestAPIExport(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	rec, env := do(t, newAPIServer(t, "1", svc), http.MethodPost, "/api/v1/thread-codes/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Status)

	svc = NewService(threadDef, NewMemoryStore(threadDef), ServiceDeps{Exporter: &exporterStub{}})
	rec, env = do(t, newAPIServer(t, "1", svc), http.MethodPost, "/api/v1/thread-codes/export", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"job-1"}`, string(env.Data))
}
