package build

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/export"
)

// Options controls one build.
type Options struct {
	// Fetch control
	Timeout time.Duration // Bound on fetching both sources

	// Output control
	OutputDir   string          // Where artifacts are written
	Formats     []export.Format // Index formats to write
	Provenance  bool            // Also write the field provenance report
	SnapshotDir string          // Save fetched snapshots here (empty disables)
	DryRun      bool            // Fetch, merge and validate without writing
	Strict      bool            // Refuse to write on validator warnings too

	// Build metadata
	ToolVersion string           // Recorded in the index provenance
	GitCommit   string           // Recorded in the index provenance
	Clock       func() time.Time // Time source for generated_at and timings
}

// Defaults returns the default build options.
func Defaults() *Options {
	return &Options{
		Timeout:     constants.FetchTimeout,
		OutputDir:   "dist",
		Formats:     []export.Format{export.FormatJSON, export.FormatCSV},
		Provenance:  true,
		ToolVersion: "dev",
		Clock:       time.Now,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks if the build options are valid.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return &errors.ValidationError{Field: "Timeout", Value: o.Timeout, Message: "timeout must be non-negative"}
	}
	if !o.DryRun && o.OutputDir == "" {
		return &errors.ValidationError{Field: "OutputDir", Message: "output directory is required"}
	}
	if len(o.Formats) == 0 {
		return &errors.ValidationError{Field: "Formats", Message: "at least one format is required"}
	}
	for _, f := range o.Formats {
		if !f.IsValid() {
			return &errors.ValidationError{Field: "Formats", Value: f, Message: "unsupported format"}
		}
	}
	if o.Clock == nil {
		return &errors.ValidationError{Field: "Clock", Message: "cannot be nil"}
	}
	return nil
}

// Option is a function that configures build Options.
type Option func(*Options)

// WithTimeout bounds the fetch of both sources.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithOutputDir sets the artifact directory.
func WithOutputDir(dir string) Option {
	return func(o *Options) {
		o.OutputDir = dir
	}
}

// WithFormats sets the index formats to write.
func WithFormats(formats ...export.Format) Option {
	return func(o *Options) {
		o.Formats = formats
	}
}

// WithProvenance controls the field provenance report.
func WithProvenance(enabled bool) Option {
	return func(o *Options) {
		o.Provenance = enabled
	}
}

// WithSnapshotDir saves the fetched snapshots for offline rebuilds.
func WithSnapshotDir(dir string) Option {
	return func(o *Options) {
		o.SnapshotDir = dir
	}
}

// WithDryRun skips writing artifacts.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithStrict refuses to write when the validator reports warnings.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// WithToolVersion sets the tool version recorded in provenance.
func WithToolVersion(version string) Option {
	return func(o *Options) {
		if version != "" {
			o.ToolVersion = version
		}
	}
}

// WithGitCommit sets the revision recorded in provenance.
func WithGitCommit(commit string) Option {
	return func(o *Options) {
		o.GitCommit = commit
	}
}

// WithClock sets the build time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// ClockFromEpoch returns a clock frozen at a SOURCE_DATE_EPOCH value, in
// seconds since the Unix epoch. An empty value yields time.Now.
func ClockFromEpoch(value string) (func() time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now, nil
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil || secs < 0 {
		return nil, &errors.ValidationError{Field: "SOURCE_DATE_EPOCH", Value: value, Message: "must be a non-negative integer"}
	}
	t := time.Unix(secs, 0).UTC()
	return func() time.Time { return t }, nil
}
