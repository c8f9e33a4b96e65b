// Package reconciler merges the registry's template list and the
// repository's version folders into a single index.
//
// A merge runs in four passes. Grouping collects repository folders by
// template folder and registry records by registry number, else by name.
// Joining associates registry groups with repository groups, preferring the
// repository link the registry advertises, then exact normalized names, then
// a unique compact-name match. Assembly derives ids, statuses and version
// lists per group. Finally colliding ids are disambiguated and templates
// are ordered by id.
//
// Example usage:
//
//	r, err := reconciler.New(reconciler.WithClock(clock))
//	if err != nil {
//	    return err
//	}
//	result, err := r.Merge(ctx, reconciler.Input{...})
package reconciler

import (
	"context"

	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/logging"
)

// Reconciler merges source records into an index.
type Reconciler interface {
	// Merge builds an index from both sources. It fails when both record
	// sets are empty, when source metadata is incomplete, or when ids
	// collide after disambiguation. Data-quality findings are returned
	// as Result warnings.
	Merge(ctx context.Context, in Input) (*Result, error)
}

type reconciler struct {
	options *options
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "reconciler", "", err)
	}
	return &reconciler{options: options}, nil
}

// Merge is a convenience wrapper that builds a Reconciler and merges once.
func Merge(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	r, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return r.Merge(ctx, in)
}

func (r *reconciler) Merge(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errors.ResourceError{Operation: "merge", Resource: "index", Message: "canceled", Err: errors.ErrCanceled}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx = logging.WithOperation(ctx, "merge")
	logger := logging.FromContext(ctx)
	logger.Debug().
		Int("registry_records", len(in.Registry)).
		Int("repository_records", len(in.Repository)).
		Msg("Starting merge")

	m := newMerger(r.options, in)
	result, err := m.run(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("templates", result.Statistics.Templates).
		Int("versions", result.Statistics.Versions).
		Int("joined", result.Statistics.Joined).
		Int("warnings", len(result.Warnings)).
		Msg("Merge complete")
	return result, nil
}
