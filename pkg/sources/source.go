// Package sources defines the raw records the two upstream sources hand to
// the merge engine, and the Source interface adapters implement to produce
// them.
//
// Raw records are ephemeral: the merger consumes them entirely and the built
// index never references them.
//
// Example usage:
//
//	snap, err := src.Fetch(ctx)
//	if err != nil {
//	    return err
//	}
//	log.Info().Int("records", snap.Metadata.RecordCount).Msg("fetched")
package sources

import (
	"context"
	"slices"

	"github.com/agentstation/utc"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Source identifiers.
const (
	RegistryID   ID = "registry"
	RepositoryID ID = "repository"
)

// IDs returns all source identifiers.
func IDs() []ID {
	return []ID{RegistryID, RepositoryID}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// Source retrieves one upstream record set.
type Source interface {
	// ID returns which upstream this source reads.
	ID() ID

	// Fetch retrieves the complete record set. An empty, error-free
	// snapshot is an explicit empty result.
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Metadata describes one fetch.
type Metadata struct {
	URL         string   `json:"url" yaml:"url"`
	FetchedAt   utc.Time `json:"fetched_at" yaml:"fetched_at"`
	RecordCount int      `json:"record_count" yaml:"record_count"`
}

// Snapshot is the result of a fetch. Exactly one of Registry or Repository
// is populated, according to Source.
type Snapshot struct {
	Source     ID                 `json:"source" yaml:"source"`
	Metadata   Metadata           `json:"metadata" yaml:"metadata"`
	Registry   []RegistryRecord   `json:"registry,omitempty" yaml:"registry,omitempty"`
	Repository []RepositoryRecord `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Registry) + len(s.Repository)
}

// RegistryRecord is one entry scraped from the registry.
type RegistryRecord struct {
	RegistryNumber string            `json:"registry_number,omitempty" yaml:"registry_number,omitempty"`
	Name           string            `json:"name" yaml:"name"`
	StatusText     string            `json:"status_text,omitempty" yaml:"status_text,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	PDFURL         string            `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	RepositoryURL  string            `json:"repository_url,omitempty" yaml:"repository_url,omitempty"` // repository link advertised by the registry
	Versions       []RegistryVersion `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// RegistryVersion is an informally labeled version listed by the registry.
type RegistryVersion struct {
	Label  string `json:"label" yaml:"label"`
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
}

// RepositoryRecord is one version folder found in the repository.
type RepositoryRecord struct {
	FolderPath   string `json:"folder_path" yaml:"folder_path"`
	Area         string `json:"area" yaml:"area"` // "published" or "deprecated"
	VersionLabel string `json:"version_label" yaml:"version_label"`
	BrowseURL    string `json:"browse_url" yaml:"browse_url"`
}
