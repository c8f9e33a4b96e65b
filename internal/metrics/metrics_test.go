package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/pkg/index/indextest"
)

func TestObserveBuild(t *testing.T) {
	m := metrics.New()
	m.ObserveBuild(2*time.Second, nil)
	m.ObserveBuild(time.Second, errors.New("registry unavailable"))
	m.ObserveBuild(time.Second, nil)

	n, err := testutil.GatherAndCount(m.Registry(), "smtindex_builds_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // success and failure series

	n, err = testutil.GatherAndCount(m.Registry(), "smtindex_build_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetIndex(t *testing.T) {
	m := metrics.New()
	idx := indextest.Nameplate()
	m.SetIndex(idx)

	n, err := testutil.GatherAndCount(m.Registry(), "smtindex_templates")
	require.NoError(t, err)
	assert.Positive(t, n)

	m.SetIndex(nil)
	n, err = testutil.GatherAndCount(m.Registry(), "smtindex_templates")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("/api/v1/templates", http.StatusOK, 3*time.Millisecond)
	m.SetSourceRecords("registry", 42)
	m.AddMergeWarning("name_mismatch")
	m.ObserveReload(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `smtindex_http_requests_total{code="200",route="/api/v1/templates"} 1`)
	assert.Contains(t, body, `smtindex_source_records{source="registry"} 42`)
	assert.Contains(t, body, `smtindex_merge_warnings_total{code="name_mismatch"} 1`)
	assert.Contains(t, body, `smtindex_index_reloads_total{result="success"} 1`)
}
