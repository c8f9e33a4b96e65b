package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/index/indextest"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestServer(t *testing.T, watch bool) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, index.Save(path, indextest.Nameplate()))

	cfg := DefaultConfig()
	cfg.IndexPath = path
	cfg.Watch = watch
	logger := zerolog.Nop()
	srv, err := New(cfg, &logger, metrics.New())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Shutdown(t.Context()) })
	return srv, path
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	for _, target := range []string{"/health", "/api/v1/health", "/api/v1/ready"} {
		rec, env := get(t, h, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Nil(t, env.Error, target)
	}
}

func TestNotReady(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexPath = filepath.Join(t.TempDir(), "missing.json")
	logger := zerolog.Nop()
	srv, err := New(cfg, &logger, nil)
	require.NoError(t, err)
	h := srv.Handler()

	rec, env := get(t, h, "/api/v1/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	rec, _ = get(t, h, "/api/v1/templates")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTemplates(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	tests := []struct {
		target string
		want   []string
	}{
		{"/api/v1/templates", []string{"ext-asset-interfaces-mapping", "gh-carbon-footprint", "idta-02006-digital-nameplate"}},
		{"/api/v1/templates?status=published", []string{"idta-02006-digital-nameplate"}},
		{"/api/v1/templates?q=CARBON", []string{"gh-carbon-footprint"}},
		{"/api/v1/templates?q=02006", []string{"idta-02006-digital-nameplate"}},
		{"/api/v1/templates?status=unknown&q=nameplate", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, env := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			var data struct {
				Templates []index.Summary `json:"templates"`
				Count     int             `json:"count"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &data))
			ids := []string{}
			for _, s := range data.Templates {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), data.Count)
		})
	}

	t.Run("summary fields", func(t *testing.T) {
		_, env := get(t, h, "/api/v1/templates?q=nameplate")
		assert.Contains(t, string(env.Data), `"version_count":2`)
		assert.Contains(t, string(env.Data), `"latest_version":"2.0.0"`)
	})

	t.Run("bad status", func(t *testing.T) {
		rec, env := get(t, h, "/api/v1/templates?status=retired")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	})
}

func TestGetTemplate(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()

	rec, env := get(t, h, "/api/v1/templates/idta-02006-digital-nameplate")
	require.Equal(t, http.StatusOK, rec.Code)
	var tmpl index.Template
	require.NoError(t, json.Unmarshal(env.Data, &tmpl))
	assert.Equal(t, "02006", tmpl.RegistryNumber)
	require.Len(t, tmpl.Versions, 2)
	assert.True(t, tmpl.Versions[0].IsLatest)

	rec, env = get(t, h, "/api/v1/templates/gh-nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestIndexAndStats(t *testing.T) {
	srv, path := newTestServer(t, false)
	h := srv.Handler()

	rec, _ := get(t, h, "/api/v1/index")
	require.Equal(t, http.StatusOK, rec.Code)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), rec.Body.String())

	rec, env := get(t, h, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats index.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.TotalTemplates)
	assert.Equal(t, 3, stats.TotalVersions)
	assert.Equal(t, map[string]int{"ext": 1, "gh": 1, "idta": 1}, stats.ByPrefix)
	assert.Equal(t, 1, stats.ByStatus["Published"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)
	h := srv.Handler()
	get(t, h, "/api/v1/templates")

	rec, _ := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smtindex_http_requests_total{code="200",route="GET /api/v1/templates"} 1`)
	assert.Contains(t, rec.Body.String(), `smtindex_templates{status="Published"} 1`)
}

func TestReloadOnReplace(t *testing.T) {
	srv, path := newTestServer(t, true)
	h := srv.Handler()

	_, env := get(t, h, "/api/v1/templates")
	assert.Contains(t, string(env.Data), `"count":3`)

	next := indextest.Nameplate()
	next.Templates = next.Templates[2:]
	require.NoError(t, index.Save(path, next))

	assert.Eventually(t, func() bool {
		_, env := get(t, h, "/api/v1/templates")
		return containsCount(env.Data, 1)
	}, 3*time.Second, 25*time.Millisecond)
}

func containsCount(data json.RawMessage, n int) bool {
	var v struct {
		Count int `json:"count"`
	}
	return json.Unmarshal(data, &v) == nil && v.Count == n
}

func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	srv, path := newTestServer(t, false)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	require.Error(t, srv.Reload())
	idx, err := srv.Store().Index()
	require.NoError(t, err)
	assert.Len(t, idx.Templates, 3)
}
