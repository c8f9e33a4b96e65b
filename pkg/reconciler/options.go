package reconciler

import (
	"time"

	"github.com/agentstation/smtindex/pkg/errors"
)

type options struct {
	clock       func() time.Time
	buildStart  time.Time
	toolVersion string
	gitCommit   string
	provenance  bool
	tracking    bool
}

func defaultOptions() *options {
	return &options{
		clock:       time.Now,
		toolVersion: "dev",
		provenance:  true,
		tracking:    true,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithClock sets the time source used for generated_at and build timing.
// Builds with a fixed clock over identical inputs are byte-identical.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.clock = clock
		return nil
	}
}

// WithBuildStart records when the build began, typically before the
// sources were fetched. Defaults to the clock reading at merge start.
func WithBuildStart(t time.Time) Option {
	return func(o *options) error {
		o.buildStart = t
		return nil
	}
}

// WithToolVersion sets the tool version recorded in provenance.
func WithToolVersion(version string) Option {
	return func(o *options) error {
		if version == "" {
			return &errors.ValidationError{Field: "tool_version", Message: "cannot be empty"}
		}
		o.toolVersion = version
		return nil
	}
}

// WithGitCommit sets the source-control revision recorded in provenance.
func WithGitCommit(commit string) Option {
	return func(o *options) error {
		o.gitCommit = commit
		return nil
	}
}

// WithProvenance controls whether the index carries a provenance block.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}

// WithFieldTracking controls field-level provenance tracking in the Result.
func WithFieldTracking(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
		return nil
	}
}
