package build

import (
	"fmt"
	"time"

	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/reconciler"
	"github.com/agentstation/smtindex/pkg/validation"
)

// Result represents the outcome of a build. A build refused by the
// validator still carries its index and report.
type Result struct {
	Index      *index.Index
	Merge      *reconciler.Result
	Validation validation.Report

	Files    []string      // Artifacts written, in write order
	DryRun   bool          // Whether writing was skipped
	Duration time.Duration // Wall time of the whole build
}

// Written reports whether any artifact was written.
func (r *Result) Written() bool {
	return len(r.Files) > 0
}

// Summary returns a human-readable summary of the build.
func (r *Result) Summary() string {
	if r.Index == nil {
		return "No index built"
	}
	s := fmt.Sprintf("%d templates, %d versions", len(r.Index.Templates), r.Index.VersionCount())
	if r.Merge != nil && len(r.Merge.Warnings) > 0 {
		s += fmt.Sprintf(", %d merge warnings", len(r.Merge.Warnings))
	}
	switch {
	case r.DryRun:
		s += " (dry run)"
	case r.Written():
		s += fmt.Sprintf(", %d files written", len(r.Files))
	default:
		s += ", nothing written"
	}
	return s
}
