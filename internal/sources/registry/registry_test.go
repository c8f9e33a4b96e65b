package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/internal/sources/registry"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/sources"
)

const page = `<html><body>
<div class="parts__title">
  <div class="col-span-4">Digital Nameplate</div>
  <div class="col-span-2">02006</div>
  <div class="col-span-2">3.0</div>
  <div class="col-span-2">Published</div>
  <div class="col-span-2"><a href="/files/IDTA-02006-3-0.pdf">PDF</a></div>
</div>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "smtindex-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Coming soon</body></html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var fixed = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSource(urls ...string) *registry.Source {
	return registry.New(
		registry.WithURLs(urls...),
		registry.WithUserAgent("smtindex-test"),
		registry.WithTimeout(5*time.Second),
		registry.WithClock(func() time.Time { return fixed }),
	)
}

func TestFetch(t *testing.T) {
	srv := newServer(t)
	src := newSource(srv.URL+"/gone", srv.URL+"/empty", srv.URL+"/templates")

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sources.RegistryID, snap.Source)
	assert.Equal(t, srv.URL+"/templates", snap.Metadata.URL)
	assert.Equal(t, 1, snap.Metadata.RecordCount)
	assert.True(t, snap.Metadata.FetchedAt.Time.Equal(fixed))

	require.Len(t, snap.Registry, 1)
	rec := snap.Registry[0]
	assert.Equal(t, "02006", rec.RegistryNumber)
	require.Len(t, rec.Versions, 1)
	assert.Equal(t, srv.URL+"/files/IDTA-02006-3-0.pdf", rec.Versions[0].PDFURL)
}

func TestFetchEmpty(t *testing.T) {
	srv := newServer(t)
	snap, err := newSource(srv.URL+"/empty").Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.NotNil(t, snap.Registry)
	assert.Equal(t, srv.URL+"/empty", snap.Metadata.URL)
}

func TestFetchAllPagesFail(t *testing.T) {
	srv := newServer(t)
	_, err := newSource(srv.URL + "/gone").Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)

	var fetchErr *errors.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusGone, fetchErr.StatusCode)
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, sources.RegistryID, registry.New().ID())
}
