package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.Mutation("set_executor")
	m.Mutation("set_executor")
	m.Mutation("set_overrides")
	m.PersistFailure()
	m.AutoReset()
	m.SetOpenSessions(3)
	m.CatalogReload(nil)
	m.CatalogReload(errors.New("bad"))
	m.ObserveOperation("submit", time.Now())

	body := scrape(t, reg)
	assert.Contains(t, body, `executorconfig_mutations_total{kind="set_executor"} 2`)
	assert.Contains(t, body, `executorconfig_mutations_total{kind="set_overrides"} 1`)
	assert.Contains(t, body, "executorconfig_persist_failures_total 1")
	assert.Contains(t, body, "executorconfig_auto_resets_total 1")
	assert.Contains(t, body, "executorconfig_open_sessions 3")
	assert.Contains(t, body, `executorconfig_catalog_reloads_total{result="error"} 1`)
	assert.Contains(t, body, `executorconfig_operation_duration_seconds_count{operation="submit"} 1`)
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.AutoReset()
	second.AutoReset()
	assert.Contains(t, scrape(t, reg), "executorconfig_auto_resets_total 2")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("x")
		m.PersistFailure()
		m.AutoReset()
		m.SetOpenSessions(1)
		m.CatalogReload(nil)
		m.ObserveOperation("x", time.Now())
	})
}
