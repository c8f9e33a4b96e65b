package build_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/internal/build"
	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/internal/sources/local"
	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/export"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/index/indextest"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/sources"
)

// fakeSource returns a fixed snapshot, or blocks until canceled when wait
// is set.
type fakeSource struct {
	id   sources.ID
	snap *sources.Snapshot
	err  error
	wait bool
}

func (f *fakeSource) ID() sources.ID { return f.id }

func (f *fakeSource) Fetch(ctx context.Context) (*sources.Snapshot, error) {
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.snap, f.err
}

func fixedClock() time.Time { return indextest.Fixed.Time }

func registrySource(pdf string) *fakeSource {
	return &fakeSource{id: sources.RegistryID, snap: &sources.Snapshot{
		Source:   sources.RegistryID,
		Metadata: sources.Metadata{URL: constants.RegistryURL, FetchedAt: indextest.Fixed, RecordCount: 1},
		Registry: []sources.RegistryRecord{{
			RegistryNumber: "02006",
			Name:           "Digital Nameplate",
			StatusText:     "Published",
			Versions:       []sources.RegistryVersion{{Label: "3.0", PDFURL: pdf}},
		}},
	}}
}

func repositorySource() *fakeSource {
	return &fakeSource{id: sources.RepositoryID, snap: &sources.Snapshot{
		Source:   sources.RepositoryID,
		Metadata: sources.Metadata{URL: constants.RepositoryURL, FetchedAt: indextest.Fixed, RecordCount: 1},
		Repository: []sources.RepositoryRecord{{
			FolderPath:   "published/Digital Nameplate/3/0",
			Area:         "published",
			VersionLabel: "3.0",
			BrowseURL:    constants.RepositoryURL + "/tree/main/published/Digital%20Nameplate/3/0",
		}},
	}}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	b := build.New(registrySource("https://example.com/IDTA-02006-3-0.pdf"), repositorySource(), m)

	result, err := b.Build(context.Background(),
		build.WithOutputDir(dir),
		build.WithFormats(export.FormatJSON, export.FormatCSV, export.FormatYAML),
		build.WithSnapshotDir(filepath.Join(dir, "snapshots")),
		build.WithClock(fixedClock),
		build.WithToolVersion("1.2.3"),
		build.WithGitCommit("abc123"),
	)
	require.NoError(t, err)
	assert.Equal(t, "1 templates, 1 versions, 4 files written", result.Summary())
	assert.False(t, result.Validation.HasErrors())

	for _, name := range []string{constants.IndexJSONFile, constants.IndexCSVFile, constants.IndexYAMLFile, constants.ProvenanceFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	idx, err := index.Load(filepath.Join(dir, constants.IndexJSONFile))
	require.NoError(t, err)
	require.Len(t, idx.Templates, 1)
	assert.Equal(t, "idta-02006-digital-nameplate", idx.Templates[0].ID)
	require.NotNil(t, idx.Provenance)
	assert.Equal(t, "1.2.3", idx.Provenance.ToolVersion)
	assert.Equal(t, "abc123", idx.Provenance.GitCommit)

	report, err := provenance.Load(filepath.Join(dir, constants.ProvenanceFile))
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Resources)

	snap, err := local.Load(filepath.Join(dir, "snapshots", local.FileName(sources.RegistryID)))
	require.NoError(t, err)
	assert.Len(t, snap.Registry, 1)
}

func TestBuildDeterministic(t *testing.T) {
	run := func() []byte {
		dir := t.TempDir()
		_, err := build.New(registrySource("https://example.com/a.pdf"), repositorySource(), nil).
			Build(context.Background(), build.WithOutputDir(dir), build.WithClock(fixedClock))
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, constants.IndexJSONFile))
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestBuildDryRun(t *testing.T) {
	dir := t.TempDir()
	result, err := build.New(registrySource(""), repositorySource(), nil).
		Build(context.Background(), build.WithOutputDir(dir), build.WithDryRun(true), build.WithClock(fixedClock))
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.False(t, result.Written())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildStrictRefusesWarnings(t *testing.T) {
	dir := t.TempDir()
	// a relative PDF link is an invalid_url warning
	b := build.New(registrySource("files/IDTA-02006.pdf"), repositorySource(), nil)

	result, err := b.Build(context.Background(), build.WithOutputDir(dir), build.WithClock(fixedClock))
	require.NoError(t, err)
	assert.True(t, result.Validation.HasWarnings())

	result, err = b.Build(context.Background(), build.WithOutputDir(t.TempDir()), build.WithStrict(true), build.WithClock(fixedClock))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	require.NotNil(t, result)
	assert.False(t, result.Written())
}

func TestBuildFetchErrors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		failing := &fakeSource{id: sources.RegistryID, err: errors.NewFetchError("registry", "https://x", 503, "unavailable")}
		_, err := build.New(failing, repositorySource(), nil).
			Build(context.Background(), build.WithOutputDir(t.TempDir()))
		assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := &fakeSource{id: sources.RepositoryID, wait: true}
		_, err := build.New(registrySource(""), slow, nil).
			Build(context.Background(), build.WithOutputDir(t.TempDir()), build.WithTimeout(20*time.Millisecond))
		assert.True(t, errors.IsTimeout(err))
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := build.New(registrySource(""), repositorySource(), nil).
			Build(context.Background(), build.WithFormats())
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestClockFromEpoch(t *testing.T) {
	clock, err := build.ClockFromEpoch("1735689600")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), clock())

	clock, err = build.ClockFromEpoch("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), clock(), time.Minute)

	_, err = build.ClockFromEpoch("yesterday")
	assert.True(t, errors.IsValidationError(err))
}
