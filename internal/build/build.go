// Package build runs the index pipeline: fetch both sources, merge them,
// validate the result and write the artifacts.
package build

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/internal/sources/local"
	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/export"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/reconciler"
	"github.com/agentstation/smtindex/pkg/sources"
	"github.com/agentstation/smtindex/pkg/validation"
)

// Builder builds indexes from a registry and a repository source.
type Builder struct {
	registry   sources.Source
	repository sources.Source
	metrics    *metrics.Metrics
}

// New creates a Builder. m may be nil.
func New(registry, repository sources.Source, m *metrics.Metrics) *Builder {
	return &Builder{registry: registry, repository: repository, metrics: m}
}

// Build runs the pipeline. The artifacts are written only when the
// validator reports no errors (and, with Strict, no warnings); a refused
// build returns its Result together with the validation error.
func (b *Builder) Build(ctx context.Context, opts ...Option) (result *Result, err error) {
	// Step 0: Parse and validate options
	o := Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	ctx = logging.WithOperation(ctx, "build")
	logger := logging.FromContext(ctx)
	start := o.Clock()
	wall := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.ObserveBuild(time.Since(wall), err)
		}
	}()

	// Step 1: Fetch both sources in parallel
	registrySnap, repositorySnap, err := b.fetch(ctx, o.Timeout)
	if err != nil {
		return nil, err
	}

	// Step 2: Keep the snapshots for offline rebuilds
	if o.SnapshotDir != "" && !o.DryRun {
		for _, snap := range []*sources.Snapshot{registrySnap, repositorySnap} {
			path := filepath.Join(o.SnapshotDir, local.FileName(snap.Source))
			if err := local.Save(path, snap); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: Merge
	in, err := reconciler.InputFromSnapshots(registrySnap, repositorySnap)
	if err != nil {
		return nil, err
	}
	merged, err := reconciler.Merge(ctx, in,
		reconciler.WithClock(o.Clock),
		reconciler.WithBuildStart(start),
		reconciler.WithToolVersion(o.ToolVersion),
		reconciler.WithGitCommit(o.GitCommit),
		reconciler.WithFieldTracking(o.Provenance),
	)
	if err != nil {
		return nil, err
	}
	for _, w := range merged.Warnings {
		logger.Warn().Str("code", string(w.Code)).Str("template", w.TemplateID).Msg(w.Message)
		if b.metrics != nil {
			b.metrics.AddMergeWarning(string(w.Code))
		}
	}

	result = &Result{
		Index:  merged.Index,
		Merge:  merged,
		DryRun: o.DryRun,
	}
	defer func() { result.Duration = time.Since(wall) }()

	// Step 4: Validate; errors always refuse the write
	result.Validation = validation.Validate(merged.Index)
	logger.Info().
		Int("errors", result.Validation.Summary.Errors).
		Int("warnings", result.Validation.Summary.Warnings).
		Int("infos", result.Validation.Summary.Infos).
		Msg(result.Validation.String())
	if err := result.Validation.Err(o.Strict); err != nil {
		return result, err
	}

	if o.DryRun {
		logger.Info().Bool("dry_run", true).Msg("Dry run completed - nothing written")
		return result, nil
	}

	// Step 5: Write artifacts
	if err := write(o, result); err != nil {
		return result, err
	}
	if b.metrics != nil {
		b.metrics.SetIndex(merged.Index)
	}

	logger.Info().
		Int("templates", len(merged.Index.Templates)).
		Int("versions", merged.Index.VersionCount()).
		Strs("files", result.Files).
		Msg("Build completed")
	return result, nil
}

// fetch retrieves both snapshots concurrently. The first failure cancels
// the other fetch.
func (b *Builder) fetch(ctx context.Context, timeout time.Duration) (*sources.Snapshot, *sources.Snapshot, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var registrySnap, repositorySnap *sources.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := b.registry.Fetch(gctx)
		registrySnap = snap
		return err
	})
	g.Go(func() error {
		snap, err := b.repository.Fetch(gctx)
		repositorySnap = snap
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, errors.NewTimeoutError("fetch", timeout.String(), err.Error())
		}
		return nil, nil, err
	}

	for _, snap := range []*sources.Snapshot{registrySnap, repositorySnap} {
		if b.metrics != nil {
			b.metrics.SetSourceRecords(string(snap.Source), snap.Len())
		}
	}
	return registrySnap, repositorySnap, nil
}

// write stores each requested format and the provenance report atomically.
func write(o *Options, result *Result) error {
	for _, f := range o.Formats {
		path := filepath.Join(o.OutputDir, f.FileName())
		if err := export.Write(result.Index, export.WithFormat(f), export.WithPath(path)); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
	}

	if o.Provenance && result.Merge.Provenance != nil {
		path := filepath.Join(o.OutputDir, constants.ProvenanceFile)
		if err := provenance.GenerateReport(result.Merge.Provenance).Save(path); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
	}
	return nil
}
