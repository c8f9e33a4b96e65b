package reconciler

import (
	"fmt"

	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/sources"
)

// Input holds both fetched record sets and their metadata.
type Input struct {
	Registry           []sources.RegistryRecord
	Repository         []sources.RepositoryRecord
	RegistryMetadata   sources.Metadata
	RepositoryMetadata sources.Metadata
}

// InputFromSnapshots assembles an Input from one snapshot per source.
func InputFromSnapshots(snapshots ...*sources.Snapshot) (Input, error) {
	var in Input
	seen := map[sources.ID]bool{}
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if seen[snap.Source] {
			return Input{}, errors.NewInputError(string(snap.Source), "", "duplicate snapshot")
		}
		seen[snap.Source] = true
		switch snap.Source {
		case sources.RegistryID:
			in.Registry = snap.Registry
			in.RegistryMetadata = snap.Metadata
		case sources.RepositoryID:
			in.Repository = snap.Repository
			in.RepositoryMetadata = snap.Metadata
		default:
			return Input{}, errors.NewInputError(string(snap.Source), "", "unknown source")
		}
	}
	for _, id := range sources.IDs() {
		if !seen[id] {
			return Input{}, errors.NewInputError(string(id), "", "snapshot missing")
		}
	}
	return in, nil
}

// validate rejects inputs that cannot produce a trustworthy index.
func (in Input) validate() error {
	if len(in.Registry) == 0 && len(in.Repository) == 0 {
		return &errors.InputError{
			Message: "both sources are empty; refusing to build an empty index",
			Err:     errors.ErrNoSources,
		}
	}
	for _, m := range []struct {
		id   sources.ID
		meta sources.Metadata
	}{
		{sources.RegistryID, in.RegistryMetadata},
		{sources.RepositoryID, in.RepositoryMetadata},
	} {
		if m.meta.URL == "" {
			return errors.NewInputError(string(m.id), "url", "missing")
		}
		if m.meta.FetchedAt.IsZero() {
			return errors.NewInputError(string(m.id), "fetched_at", "missing")
		}
		if m.meta.RecordCount < 0 {
			return errors.NewInputError(string(m.id), "record_count", fmt.Sprintf("negative (%d)", m.meta.RecordCount))
		}
	}
	return nil
}
