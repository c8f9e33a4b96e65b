package repository

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/pkg/sources"
)

// archive builds an in-memory zip holding the named entries. Names ending
// in "/" become directory entries.
func archive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if name[len(name)-1] != '/' {
			_, err = w.Write([]byte("content"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func reader(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr
}

var testLayout = Layout{BaseURL: "https://github.com/admin-shell-io/submodel-templates", Branch: "main"}

func TestWalk(t *testing.T) {
	data := archive(t,
		"submodel-templates-main/",
		"submodel-templates-main/README.md",
		"submodel-templates-main/published/",
		"submodel-templates-main/published/Digital nameplate/",
		"submodel-templates-main/published/Digital nameplate/2/",
		"submodel-templates-main/published/Digital nameplate/2/0/",
		"submodel-templates-main/published/Digital nameplate/2/0/IDTA 02006-2-0.pdf",
		"submodel-templates-main/published/Digital nameplate/3/0/1/SMT.aasx",
		"submodel-templates-main/published/Digital nameplate/3/0/README.md",
		"submodel-templates-main/deprecated/Digital nameplate/1/0/docs/readme.md",
		"submodel-templates-main/published/Carbon Footprint/0/9/",
		"submodel-templates-main/published/Carbon Footprint/1/",
		"submodel-templates-main/documentation/1/0/guide.md",
	)

	got := Walk(reader(t, data), testLayout)
	want := []sources.RepositoryRecord{
		{
			FolderPath:   "deprecated/Digital nameplate/1/0",
			Area:         "deprecated",
			VersionLabel: "1.0",
			BrowseURL:    "https://github.com/admin-shell-io/submodel-templates/tree/main/deprecated/Digital%20nameplate/1/0",
		},
		{
			FolderPath:   "published/Carbon Footprint/0/9",
			Area:         "published",
			VersionLabel: "0.9",
			BrowseURL:    "https://github.com/admin-shell-io/submodel-templates/tree/main/published/Carbon%20Footprint/0/9",
		},
		{
			FolderPath:   "published/Digital nameplate/2/0",
			Area:         "published",
			VersionLabel: "2.0",
			BrowseURL:    "https://github.com/admin-shell-io/submodel-templates/tree/main/published/Digital%20nameplate/2/0",
		},
		{
			FolderPath:   "published/Digital nameplate/3/0/1",
			Area:         "published",
			VersionLabel: "3.0.1",
			BrowseURL:    "https://github.com/admin-shell-io/submodel-templates/tree/main/published/Digital%20nameplate/3/0/1",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkEmpty(t *testing.T) {
	got := Walk(reader(t, archive(t, "submodel-templates-main/README.md")), testLayout)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		want   string
		wantOK bool
	}{
		{"directory", "root/published/A/1/0/", "published/A/1/0", true},
		{"file inside", "root/published/A/1/0/x.json", "published/A/1/0", true},
		{"nested patch", "root/published/A/1/0/2/x.json", "published/A/1/0/2", true},
		{"numeric file name", "root/published/A/1/0/1", "published/A/1/0", true},
		{"single segment", "root/published/A/1/x.json", "", false},
		{"no area", "root/docs/A/1/0/x.json", "", false},
		{"area only", "root/published/", "", false},
		{"non numeric", "root/deprecated/A/v1/0/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEntry(tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.repoPath)
		})
	}
}

func TestBrowseURL(t *testing.T) {
	l := Layout{BaseURL: "https://github.com/org/repo/", Branch: "dev"}
	assert.Equal(t,
		"https://github.com/org/repo/tree/dev/published/Time%20Series%20Data%20%28TSD%29/1/1",
		l.BrowseURL("/published/Time Series Data (TSD)/1/1/"))
	assert.Equal(t,
		"https://github.com/org/repo/tree/dev/published/A%23B/1/0",
		l.BrowseURL("published/A#B/1/0"))
}
