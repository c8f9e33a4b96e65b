package export

import (
	"io"
	"strings"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
)

// Format is an artifact encoding.
type Format int

// Format constants.
const (
	FormatJSON Format = iota
	FormatYAML
	FormatCSV
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatCSV}
}

// IsValid checks if the format is valid.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCSV:
		return "csv"
	}
	return "unknown"
}

// FileName returns the conventional artifact name for the format.
func (f Format) FileName() string {
	switch f {
	case FormatYAML:
		return constants.IndexYAMLFile
	case FormatCSV:
		return constants.IndexCSVFile
	default:
		return constants.IndexJSONFile
	}
}

// ParseFormat converts a format name, case-insensitively. "yml" is
// accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, errors.NewValidationError("format", s, "must be one of json, yaml, csv")
}

// Options is the configuration for an export.
type Options struct {
	path   string
	writer io.Writer
	format Format
}

// Path returns the path for the export options.
func (o *Options) Path() string {
	return o.path
}

// Writer returns the writer for the export options.
func (o *Options) Writer() io.Writer {
	return o.writer
}

// Format returns the format for the export options.
func (o *Options) Format() Format {
	return o.format
}

// Defaults returns the default export options.
func Defaults() *Options {
	return &Options{format: FormatJSON}
}

// Apply applies the given options to the export options.
func (o *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(o)
	}
	return *o
}

// Option is a function that configures export options.
type Option func(*Options)

// WithFormat for a non-default encoding.
func WithFormat(f Format) Option {
	return func(o *Options) {
		o.format = f
	}
}

// WithPath for filesystem exports. Files are written atomically.
func WithPath(path string) Option {
	return func(o *Options) {
		o.path = path
	}
}

// WithWriter for custom outputs.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}
