package index

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/smtindex/internal/fsutil"
	"github.com/agentstation/smtindex/pkg/errors"
)

// Encode writes idx as JSON with a two-space indent, no HTML escaping and
// a trailing newline. Identical indexes encode to identical bytes. Nil
// collections are replaced with empty ones before encoding.
func Encode(w io.Writer, idx *Index) error {
	idx.normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(idx); err != nil {
		return errors.WrapParse("json", "", err)
	}
	return nil
}

// Marshal returns the JSON encoding of idx.
func Marshal(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, idx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a JSON index.
func Decode(r io.Reader) (*Index, error) {
	var idx Index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	idx.normalize()
	return &idx, nil
}

// MarshalYAML returns the YAML encoding of idx, using the same keys as JSON.
func MarshalYAML(idx *Index) ([]byte, error) {
	idx.normalize()
	data, err := yaml.MarshalWithOptions(idx, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	return data, nil
}

// Load reads a JSON index from path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("index", path)
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	idx, err := Decode(f)
	if err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return idx, nil
}

// Save atomically writes idx as JSON to path.
func Save(path string, idx *Index) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return Encode(w, idx)
	})
}
