package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderStatusWritesNothingOnTemplateError(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.RenderStatus(rec, http.StatusOK, "pages/missing.html", TemplateData{})
	assert.Error(t, err)
	assert.Zero(t, rec.Body.Len())
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.RenderStatus(rec, http.StatusUnauthorized, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok",
		Data:      map[string]any{"Email": "a@b.c", "Errors": map[string]string{"general": "Invalid credentials"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="tok"`)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestLayoutData(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "s", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/console/yarn-codes/new", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.Set(SessionEmailKey, "admin@loom.local")
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Saved"})
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	layout := &Layout{
		CSRF: shared.NewCSRFManager("csrf"),
		Nav: []NavItem{
			{Title: "Dashboard", Path: "/"},
			{Title: "Yarn Codes", Path: "/console/yarn-codes"},
		},
	}
	td := layout.Data(req, "New Yarn Code", nil)

	assert.Equal(t, "admin@loom.local", td.UserEmail)
	require.NotNil(t, td.Flash)
	assert.Equal(t, "Saved", td.Flash.Message)
	assert.NotEmpty(t, td.CSRFToken)
	assert.False(t, td.Nav[0].Active)
	assert.True(t, td.Nav[1].Active)
	assert.False(t, layout.Nav[1].Active)
}
