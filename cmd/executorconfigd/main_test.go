package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/pkg/executor"
)

func TestDefaultProfile(t *testing.T) {
	assert.Nil(t, defaultProfile(config.DefaultProfileConfig{}))

	ref := defaultProfile(config.DefaultProfileConfig{Executor: "claude-code"})
	require.NotNil(t, ref)
	assert.Equal(t, executor.ClaudeCode, ref.Executor)
	assert.True(t, ref.Variant.IsNull())

	ref = defaultProfile(config.DefaultProfileConfig{Executor: "CODEX", Variant: "HIGH"})
	assert.Equal(t, "HIGH", ref.Variant.ValueOr(""))
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	cfg, err := config.LoadWithPath(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "executorconfig.db")
	cfg.Metrics.Enabled = true

	log := logger.Nop()
	a, cleanups, err := provideApp(cfg, log)
	t.Cleanup(func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i]()
		}
	})
	require.NoError(t, err)

	router := newRouter(cfg, a, log)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"context_id":"ws-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/executor-config/sessions", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "open_sessions 1")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/executor-profiles", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
