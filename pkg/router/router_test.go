package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio-messageboard/backend/pkg/config"
	"portfolio-messageboard/backend/pkg/di"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Error        string            `json:"error"`
	Errors       map[string]string `json:"errors"`
	Data         json.RawMessage   `json:"data"`
	PublicCount  int               `json:"publicCount"`
	PrivateCount int               `json:"privateCount"`
	Stack        string            `json:"stack"`
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("GITHUB_TOKEN", "")

	cfg := config.Load()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.AdminBackend = config.BackendFile
	cfg.Store.Dir = t.TempDir()
	cfg.API.SchemaPath = "../../api/openapi.yaml"
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000

	container, err := di.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	r := New(container)
	r.SetupRoutes()
	return r
}

func do(t *testing.T, r *Router, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestSubmitValidationGate(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/messages", `{"name":"","email":"a@b.com","content":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	assert.Contains(t, env.Errors, "name")
	assert.NotContains(t, env.Errors, "email")
	assert.NotContains(t, env.Errors, "content")
	assert.Empty(t, env.Stack)
}

func TestSubmitValidationGateAuthorFields(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/messages", `{"author_name":"","author_email":"a@b.com","content":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	assert.Contains(t, env.Errors, "author_name")
	assert.NotContains(t, env.Errors, "author_email")
	assert.NotContains(t, env.Errors, "email")
	assert.NotContains(t, env.Errors, "content")

	w, env = do(t, r, http.MethodPost, "/api/messages", `{"author_name":"alice","author_email":"a@b.com","content":"hi","is_public":false}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "alice", created["name"])
	assert.Equal(t, false, created["isPublic"])
}

func TestStackHiddenOutsideDevelopment(t *testing.T) {
	for _, tt := range []struct {
		env       string
		wantStack bool
	}{
		{env: "staging", wantStack: false},
		{env: "production", wantStack: false},
		{env: "development", wantStack: true},
	} {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("GITHUB_TOKEN", "")
			gin.SetMode(gin.DebugMode)
			t.Cleanup(func() { gin.SetMode(gin.TestMode) })

			cfg := config.Load()
			cfg.Server.Env = tt.env
			cfg.Store.Backend = config.BackendFile
			cfg.Store.Dir = t.TempDir()
			cfg.API.ValidateRequests = false

			container, err := di.New(context.Background(), cfg, nil)
			require.NoError(t, err)
			r := New(container)
			r.SetupRoutes()

			w, env := do(t, r, http.MethodGet, "/api/admin/messages/nope", "")
			assert.Equal(t, http.StatusNotFound, w.Code)
			if tt.wantStack {
				assert.NotEmpty(t, env.Stack)
			} else {
				assert.Empty(t, env.Stack)
			}
		})
	}
}

func TestSubmitAndList(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/messages", `{"name":"alice","email":"a@b.com","content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = do(t, r, http.MethodPost, "/api/messages", `{"name":"bob","email":"b@b.com","content":"secret","isPublic":false}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var public []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &public))
	require.Len(t, public, 1)
	assert.Equal(t, "hello", public[0]["content"])

	w, env = do(t, r, http.MethodGet, "/api/admin/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.PublicCount)
	assert.Equal(t, 1, env.PrivateCount)
}

func TestAdminGetAndDelete(t *testing.T) {
	r := newTestRouter(t)

	_, env := do(t, r, http.MethodPost, "/api/messages", `{"name":"alice","email":"a@b.com","content":"hello"}`)
	var created struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	w, _ := do(t, r, http.MethodGet, "/api/admin/messages/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/admin/messages/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/admin/messages/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not found", env.Message)

	w, _ = do(t, r, http.MethodDelete, "/api/admin/messages/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaRejectsWrongTypes(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/messages", `{"name":"a","email":"a@b.com","content":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)
	r.Container.Health.RunChecks(context.Background())

	w, _ := do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "messageboard_store_operations_total")
}

func TestUnknownAPIRoute(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubmitRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("GITHUB_TOKEN", "")
	cfg := config.Load()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.Dir = t.TempDir()
	cfg.API.ValidateRequests = false
	cfg.Security.RateLimit = 0.001
	cfg.Security.RateLimitBurst = 1

	container, err := di.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	r := New(container)
	r.SetupRoutes()

	body := `{"name":"a","email":"a@b.com","content":"x"}`
	w, _ := do(t, r, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, r, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error)

	w, _ = do(t, r, http.MethodGet, "/api/messages", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReloadSchema(t *testing.T) {
	r := newTestRouter(t)
	require.NotNil(t, r.schema)
	assert.NoError(t, r.ReloadSchema())

	cfg := config.Load()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.Dir = t.TempDir()
	cfg.API.ValidateRequests = false
	container, err := di.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	unvalidated := New(container)
	unvalidated.SetupRoutes()
	assert.Nil(t, unvalidated.schema)
	assert.NoError(t, unvalidated.ReloadSchema())
}
