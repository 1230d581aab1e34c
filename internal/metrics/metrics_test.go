package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	var m *Metrics = New(false)
	require.Nil(t, m)

	m.IncAction("reload")
	m.IncHeartbeat()
	m.IncDecodeError()
	m.IncActionError()
	m.IncConnectionError()
	m.SetConnected(true)
	m.IncToggle()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	m := New(true)
	m.IncAction("render-hud")
	m.IncAction("render-hud")
	m.IncDecodeError()
	m.SetConnected(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `livereload_actions_total{action="render-hud"} 2`)
	assert.Contains(t, string(body), "livereload_decode_errors_total 1")
	assert.Contains(t, string(body), "livereload_connected 1")
}
