package index_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentstation/utc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/index/indextest"
	"github.com/agentstation/smtindex/pkg/status"
)

var timeComparer = cmp.Comparer(func(a, b utc.Time) bool { return a.Time.Equal(b.Time) })

func TestEncodeFieldNames(t *testing.T) {
	data, err := index.Marshal(indextest.Nameplate())
	require.NoError(t, err)
	out := string(data)

	for _, key := range []string{
		`"schema_version": "1.0"`,
		`"generated_at": "2025-06-01T12:00:00Z"`,
		`"idta_registered_templates"`,
		`"github_submodel_templates"`,
		`"idta_number": "02006"`,
		`"raw_status": "Published"`,
		`"is_latest": true`,
		`"pdf": "https://industrialdigitaltwin.org/wp-content/uploads/IDTA-02006-2-0.pdf"`,
		`"repo_path": "published/Digital nameplate/2/0"`,
		`"github_url"`,
		`"area": "published"`,
	} {
		assert.Contains(t, out, key)
	}

	assert.Contains(t, out, "Nameplate & marking <data>", "HTML must not be escaped")
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.NotContains(t, out, `"provenance"`)
	assert.Contains(t, out, `"versions": []`)
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := index.Marshal(indextest.Nameplate())
	require.NoError(t, err)
	b, err := index.Marshal(indextest.Nameplate())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		original := indextest.Index().Draw(rt, "index")

		data, err := index.Marshal(original)
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}
		decoded, err := index.Decode(bytes.NewReader(data))
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		if diff := cmp.Diff(original, decoded, timeComparer); diff != "" {
			rt.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist", "index.json")
	idx := indextest.Nameplate()
	idx.Provenance = &index.Provenance{
		BuildStartedAt:       indextest.Fixed,
		BuildCompletedAt:     indextest.Fixed,
		BuildDurationSeconds: 1.25,
		Sources: []index.SourceProvenance{
			{Name: "registry", URL: idx.Sources.Registry, FetchedAt: indextest.Fixed, RecordCount: 2},
		},
		ToolVersion: "dev",
	}

	require.NoError(t, index.Save(path, idx))
	loaded, err := index.Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(idx, loaded, timeComparer); diff != "" {
		t.Errorf("loaded index mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := index.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := index.Load(path)
	require.Error(t, err)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestMarshalYAML(t *testing.T) {
	data, err := index.MarshalYAML(indextest.Nameplate())
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "schema_version:")
	assert.Contains(t, out, "idta_number:")
	assert.Contains(t, out, "02006")
	assert.Contains(t, out, "repo_path: published/Digital nameplate/2/0")
	assert.Contains(t, out, "is_latest: true")
}

func TestFindAndLatest(t *testing.T) {
	idx := indextest.Nameplate()

	tmpl, ok := idx.Find("idta-02006-digital-nameplate")
	require.True(t, ok)
	latest, ok := tmpl.Latest()
	require.True(t, ok)
	assert.Equal(t, "2.0.0", latest.Version)

	empty, ok := idx.Find("ext-asset-interfaces-mapping")
	require.True(t, ok)
	_, ok = empty.Latest()
	assert.False(t, ok)

	_, ok = idx.Find("nope")
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	idx := indextest.Nameplate()

	tests := []struct {
		name   string
		filter index.Filter
		want   []string
	}{
		{"all", index.Filter{}, []string{"ext-asset-interfaces-mapping", "gh-carbon-footprint", "idta-02006-digital-nameplate"}},
		{"status", index.Filter{Status: "published"}, []string{"idta-02006-digital-nameplate"}},
		{"query by name", index.Filter{Query: "carbon"}, []string{"gh-carbon-footprint"}},
		{"query by number", index.Filter{Query: "02006"}, []string{"idta-02006-digital-nameplate"}},
		{"query by description", index.Filter{Query: "marking"}, []string{"idta-02006-digital-nameplate"}},
		{"status and query", index.Filter{Status: "In Review", Query: "carbon"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, s := range idx.Select(tt.filter) {
				got = append(got, s.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	summaries := idx.Select(index.Filter{Query: "nameplate"})
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].VersionCount)
	assert.Equal(t, "2.0.0", summaries[0].LatestVersion)
}

func TestStats(t *testing.T) {
	stats := indextest.Nameplate().Stats()
	assert.Equal(t, 3, stats.TotalTemplates)
	assert.Equal(t, 3, stats.TotalVersions)
	assert.Equal(t, map[string]int{"idta": 1, "ext": 1, "gh": 1}, stats.ByPrefix)
	assert.Equal(t, 1, stats.ByStatus[string(status.Published)])
	assert.Equal(t, 1, stats.ByStatus[string(status.Unknown)])
}
