package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/index/indextest"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/sources"
	"github.com/agentstation/smtindex/pkg/validation"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"wide", FormatWide, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTemplatesTable(t *testing.T) {
	idx := indextest.Nameplate()
	data := TemplatesToTableData(idx.Select(index.Filter{}), false)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Status", "Versions", "Latest"}, data.Headers)
	assert.Equal(t, []string{"idta-02006-digital-nameplate", "Digital Nameplate", "Published", "2", "2.0.0"}, data.Rows[2])
	assert.Equal(t, "-", data.Rows[0][4])

	wide := TemplatesToTableData(idx.Select(index.Filter{}), true)
	assert.Len(t, wide.Headers, 6)
	assert.Equal(t, "02006", wide.Rows[2][5])

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
	assert.Contains(t, buf.String(), "idta-02006-digital-nameplate")
}

func TestVersionsTable(t *testing.T) {
	tmpl, ok := indextest.Nameplate().Find("idta-02006-digital-nameplate")
	require.True(t, ok)

	data := VersionsToTableData(tmpl.Versions, true)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "yes", data.Rows[0][1])
	assert.Equal(t, "published/Digital nameplate/2/0", data.Rows[0][4])
	assert.Equal(t, "-", data.Rows[1][3])
}

func TestTemplateTableTruncatesDescription(t *testing.T) {
	tmpl := &index.Template{ID: "ext-x", Name: "X", Description: strings.Repeat("a", 200)}
	data := TemplateToTableData(tmpl)
	for _, row := range data.Rows {
		if row[0] == "Description" {
			assert.Len(t, row[1], maxDescription)
			assert.True(t, strings.HasSuffix(row[1], "..."))
			return
		}
	}
	t.Fatal("description row missing")
}

func TestFindingsTable(t *testing.T) {
	report := validation.Validate(&index.Index{Templates: []index.Template{{ID: "ext-a", Name: "A", Status: "bogus"}}})
	data := FindingsToTableData(report.Findings)
	require.NotEmpty(t, data.Rows)
	assert.Equal(t, "ERROR", data.Rows[0][0])
	assert.Len(t, ReportSummaryToTableData(report.Summary).Rows, 7)
}

func TestProvenanceTable(t *testing.T) {
	res := provenance.ResourceProvenance{
		Type: provenance.ResourceTypeTemplate,
		ID:   "idta-02006-digital-nameplate",
		Fields: []provenance.Field{
			{
				Name:      "name",
				Current:   provenance.Provenance{Source: sources.RegistryID, Value: "Digital Nameplate", Reason: "registry name preferred"},
				Conflicts: []provenance.Conflict{{SelectedSource: sources.RegistryID}},
			},
			{Name: "status", Current: provenance.Provenance{Source: sources.RegistryID, Value: "Published"}},
		},
	}

	data := ProvenanceToTableData(res)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"name", "Digital Nameplate", "registry", "registry name preferred", "1"}, data.Rows[0])
	assert.Equal(t, "-", data.Rows[1][3])
}

func TestWrite(t *testing.T) {
	summaries := indextest.Nameplate().Select(index.Filter{Status: "published"})

	t.Run("json renders data", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatJSON, summaries, TemplatesToTableData(summaries, false)))
		var got []index.Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, summaries, got)
	})

	t.Run("yaml renders data", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatYAML, summaries, Data{}))
		assert.Contains(t, buf.String(), "id: idta-02006-digital-nameplate")
	})

	t.Run("table renders table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatTable, summaries, TemplatesToTableData(summaries, false)))
		assert.Contains(t, buf.String(), "Digital Nameplate")
		assert.NotContains(t, buf.String(), "version_count")
	})
}

func TestTableFormatterReflection(t *testing.T) {
	type row struct {
		ID    string `json:"template_id"`
		Count int    `json:"count,omitempty"`
	}

	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, []row{{"ext-a", 2}}))
	assert.Contains(t, strings.ToUpper(buf.String()), "TEMPLATE ID")
	assert.Contains(t, buf.String(), "ext-a")

	buf.Reset()
	require.NoError(t, (&TableFormatter{}).Format(&buf, map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
}
