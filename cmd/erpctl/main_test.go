package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/masterdata/yarns"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/table"
)

func fakeConsole(t *testing.T) *httptest.Server {
	t.Helper()
	seed := yarns.Seed()
	for i := range seed {
		seed[i].ID = int64(i + 1)
	}

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Password != "correctpass" {
			httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		httpx.OK(w, http.StatusOK, "ok", map[string]any{"token": "tok", "user": map[string]any{"id": 1, "email": "admin@loom.local"}})
	})
	r.Post("/api/v1/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		httpx.OK(w, http.StatusOK, "logged out", nil)
	})
	r.Get("/api/v1/yarn-codes", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			httpx.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		httpx.List(w, "ok", seed, len(seed), 1, 1)
	})
	r.Post("/api/v1/yarn-codes/export", func(w http.ResponseWriter, _ *http.Request) {
		httpx.OK(w, http.StatusAccepted, "queued", map[string]string{"job_id": "job-42"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListRendersSortedPage(t *testing.T) {
	srv := fakeConsole(t)
	code, out, errOut := runCLI(t, "-addr", srv.URL, "-user", "admin@loom.local", "-password", "correctpass",
		"list", "yarn-codes", "-sort", "code", "-desc", "-size", "10", "-page", "2")
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "YRN-038")
	assert.Contains(t, out, "YRN-029")
	assert.NotContains(t, out, "YRN-039")
	assert.Contains(t, out, "Page 2 of 5 (48 rows)  1 [2] 3 4 5")
}

func TestListClampsPastLastPage(t *testing.T) {
	srv := fakeConsole(t)
	code, out, _ := runCLI(t, "-addr", srv.URL, "-user", "admin@loom.local", "-password", "correctpass",
		"list", "yarn-codes", "-size", "20", "-page", "9")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Page 3 of 3 (48 rows)")
	assert.Contains(t, out, "YRN-048")
}

func TestExportPrintsJobID(t *testing.T) {
	srv := fakeConsole(t)
	code, out, _ := runCLI(t, "-addr", srv.URL, "-user", "admin@loom.local", "-password", "correctpass", "export", "yarn-codes")
	require.Equal(t, 0, code)
	assert.Equal(t, "export queued: job-42\n", out)
}

func TestLoginFailures(t *testing.T) {
	srv := fakeConsole(t)

	code, _, errOut := runCLI(t, "-addr", srv.URL, "-user", "nobody", "-password", "x", "list", "yarn-codes")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "login: apiclient: invalid input")

	code, _, errOut = runCLI(t, "-addr", srv.URL, "-user", "admin@loom.local", "-password", "wrongpass", "list", "yarn-codes")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "login: not authorized")
}

func TestUsageErrors(t *testing.T) {
	code, _, _ := runCLI(t)
	assert.Equal(t, 2, code)

	code, _, errOut := runCLI(t, "list", "thread-codes")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown book "thread-codes"`)

	code, _, _ = runCLI(t, "list", "yarn-codes", "-filter", "novalue")
	assert.Equal(t, 2, code)
}

func TestBooksListsEveryKey(t *testing.T) {
	code, out, _ := runCLI(t, "books")
	require.Equal(t, 0, code)
	for key, b := range books {
		assert.Contains(t, out, fmt.Sprintf("%-16s %s", key, b.title))
	}
	assert.Len(t, books, 6)
}

func TestPageStrip(t *testing.T) {
	assert.Equal(t, "3 4 5 6 [7]", pageStrip(table.ComputeWindow(7, 9, 1, table.DefaultMaxVisible), 7))
	assert.Equal(t, "[1]", pageStrip(table.ComputeWindow(1, 1, 1, table.DefaultMaxVisible), 1))
}
