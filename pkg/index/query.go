package index

import (
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/smtindex/pkg/status"
)

// Summary is the list view of a template.
type Summary struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	RegistryNumber string        `json:"idta_number,omitempty" yaml:"idta_number,omitempty"`
	Status         status.Status `json:"status" yaml:"status"`
	VersionCount   int           `json:"version_count" yaml:"version_count"`
	LatestVersion  string        `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
}

// Summarize returns the list view of t.
func (t *Template) Summarize() Summary {
	s := Summary{
		ID:             t.ID,
		Name:           t.Name,
		RegistryNumber: t.RegistryNumber,
		Status:         t.Status,
		VersionCount:   len(t.Versions),
	}
	if v, ok := t.Latest(); ok {
		s.LatestVersion = v.Version
	}
	return s
}

// Filter selects templates for a query.
type Filter struct {
	Status string // case-insensitive exact status
	Query  string // case-insensitive substring of name, description, id or registry number
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t *Template) bool {
	if f.Status != "" && !strings.EqualFold(string(t.Status), strings.TrimSpace(f.Status)) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.ID), q) ||
		(t.RegistryNumber != "" && strings.Contains(t.RegistryNumber, q))
}

// Select returns the summaries of templates matching f, in index order.
func (idx *Index) Select(f Filter) []Summary {
	out := []Summary{}
	for i := range idx.Templates {
		if f.Matches(&idx.Templates[i]) {
			out = append(out, idx.Templates[i].Summarize())
		}
	}
	return out
}

// Stats aggregates an index.
type Stats struct {
	SchemaVersion  string         `json:"schema_version" yaml:"schema_version"`
	GeneratedAt    utc.Time       `json:"generated_at" yaml:"generated_at"`
	TotalTemplates int            `json:"total_templates" yaml:"total_templates"`
	TotalVersions  int            `json:"total_versions" yaml:"total_versions"`
	ByStatus       map[string]int `json:"by_status" yaml:"by_status"`
	ByPrefix       map[string]int `json:"by_prefix" yaml:"by_prefix"`
}

// Stats counts templates by status and by id prefix.
func (idx *Index) Stats() Stats {
	s := Stats{
		SchemaVersion:  idx.SchemaVersion,
		GeneratedAt:    idx.GeneratedAt,
		TotalTemplates: len(idx.Templates),
		TotalVersions:  idx.VersionCount(),
		ByStatus:       map[string]int{},
		ByPrefix:       map[string]int{},
	}
	for _, t := range idx.Templates {
		s.ByStatus[string(t.Status)]++
		prefix, _, _ := strings.Cut(t.ID, "-")
		s.ByPrefix[prefix]++
	}
	return s
}
