package provenance_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/sources"
)

func sampleTracker() provenance.Tracker {
	tr := provenance.NewTracker(true)
	tr.Track(provenance.ResourceTypeTemplate, "idta-02006-digital-nameplate", "name", provenance.Provenance{
		Source:   sources.RegistryID,
		Value:    "Digital Nameplate",
		Reason:   "registry name preferred",
		Rejected: "Digital nameplate for industrial equipment",
	})
	tr.Track(provenance.ResourceTypeTemplate, "idta-02006-digital-nameplate", "status", provenance.Provenance{
		Source: sources.RegistryID,
		Value:  "Published",
	})
	tr.Track(provenance.ResourceTypeTemplate, "gh-carbon-footprint", "name", provenance.Provenance{
		Source: sources.RepositoryID,
		Value:  "Carbon Footprint",
	})
	return tr
}

func TestTracker(t *testing.T) {
	tr := sampleTracker()

	names := tr.FindByField(provenance.ResourceTypeTemplate, "idta-02006-digital-nameplate", "name")
	require.Len(t, names, 1)
	assert.Equal(t, "name", names[0].Field)
	assert.Equal(t, sources.RegistryID, names[0].Source)

	fields := tr.FindByResource(provenance.ResourceTypeTemplate, "idta-02006-digital-nameplate")
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "status")

	m := tr.Map()
	assert.Len(t, m, 3)
	delete(m, "template:gh-carbon-footprint:name")
	assert.Len(t, tr.Map(), 3, "Map returns a copy")

	tr.Clear()
	assert.Empty(t, tr.Map())
}

func TestDisabledTracker(t *testing.T) {
	tr := provenance.NewTracker(false)
	tr.Track(provenance.ResourceTypeTemplate, "x", "name", provenance.Provenance{Value: "X"})
	assert.Nil(t, tr.Map())
	assert.Nil(t, tr.FindByField(provenance.ResourceTypeTemplate, "x", "name"))
	assert.Nil(t, tr.FindByResource(provenance.ResourceTypeTemplate, "x"))
}

func TestGenerateReport(t *testing.T) {
	report := provenance.GenerateReport(sampleTracker().Map())

	require.Len(t, report.Resources, 2)
	assert.Equal(t, "gh-carbon-footprint", report.Resources[0].ID)
	nameplate := report.Resources[1]
	require.Len(t, nameplate.Fields, 2)
	assert.Equal(t, "name", nameplate.Fields[0].Name)
	assert.Equal(t, "status", nameplate.Fields[1].Name)
	require.Len(t, nameplate.Fields[0].Conflicts, 1)
	assert.Equal(t, sources.RegistryID, nameplate.Fields[0].Conflicts[0].SelectedSource)
	assert.Equal(t, 1, report.ConflictCount())

	text := report.String()
	assert.Contains(t, text, "template: idta-02006-digital-nameplate")
	assert.Contains(t, text, "Current: Digital Nameplate (from registry)")
}

func TestReportSaveAndLoad(t *testing.T) {
	report := provenance.GenerateReport(sampleTracker().Map())
	path := filepath.Join(t.TempDir(), "provenance.yaml")
	require.NoError(t, report.Save(path))

	loaded, err := provenance.Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Resources, 2)
	assert.Equal(t, "idta-02006-digital-nameplate", loaded.Resources[1].ID)
	assert.Equal(t, sources.RegistryID, loaded.Resources[1].Fields[0].Current.Source)

	var a, b bytes.Buffer
	require.NoError(t, report.Write(&a))
	require.NoError(t, provenance.GenerateReport(sampleTracker().Map()).Write(&b))
	assert.Equal(t, a.String(), b.String(), "reports are deterministic")
}

func TestReportResource(t *testing.T) {
	report := provenance.GenerateReport(sampleTracker().Map())

	res, ok := report.Resource(provenance.ResourceTypeTemplate, "idta-02006-digital-nameplate")
	require.True(t, ok)
	assert.Len(t, res.Fields, 2)

	_, ok = report.Resource(provenance.ResourceTypeTemplate, "gh-missing")
	assert.False(t, ok)
}

func TestLoadMissing(t *testing.T) {
	report, err := provenance.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.Nil(t, report)
}
