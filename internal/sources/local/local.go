// Package local reads source snapshots saved to disk, for offline builds
// and fixtures. Files ending in .yaml or .yml are read as YAML, anything
// else as JSON.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/smtindex/internal/fsutil"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/sources"
)

// Source loads one snapshot file.
type Source struct {
	id   sources.ID
	path string
}

// New creates a local source reading the snapshot of source id from path.
func New(id sources.ID, path string) *Source {
	return &Source{id: id, path: path}
}

// ID returns the source the snapshot stands in for.
func (s *Source) ID() sources.ID {
	return s.id
}

// Fetch reads the snapshot. A missing fetch time defaults to the file's
// modification time and a missing record count to the number of records.
func (s *Source) Fetch(ctx context.Context) (*sources.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	if snap.Source == "" {
		snap.Source = s.id
	}
	if snap.Source != s.id {
		return nil, errors.NewInputError(s.id.String(), "source",
			"snapshot "+s.path+" belongs to "+snap.Source.String())
	}
	if snap.Metadata.FetchedAt.IsZero() {
		info, err := os.Stat(s.path)
		if err != nil {
			return nil, errors.WrapIO("stat", s.path, err)
		}
		snap.Metadata.FetchedAt = utc.New(info.ModTime())
	}
	if snap.Metadata.RecordCount == 0 {
		snap.Metadata.RecordCount = snap.Len()
	}

	logging.FromContext(logging.WithSource(ctx, s.id.String())).Info().
		Str("path", s.path).
		Int("records", snap.Len()).
		Msg("Loaded snapshot")
	return snap, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a snapshot file.
func Load(path string) (*sources.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("snapshot", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var snap sources.Snapshot
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, errors.WrapParse("json", path, err)
		}
	}
	return &snap, nil
}

// Save atomically writes snap to path, as YAML or JSON by extension.
func Save(path string, snap *sources.Snapshot) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		if isYAML(path) {
			data, err := yaml.MarshalWithOptions(snap, yaml.Indent(2), yaml.IndentSequence(false))
			if err != nil {
				return errors.WrapParse("yaml", path, err)
			}
			_, err = w.Write(data)
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(snap)
	})
}

// FileName returns the conventional snapshot file name for a source.
func FileName(id sources.ID) string {
	return id.String() + ".snapshot.json"
}
