// Package patcher implements the fetch, mutate, replace cycle used to edit
// remote n8n workflows.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EventPatchStarted  = "patch_started"
	EventPatchMutated  = "patch_mutated"
	EventPatchSaved    = "patch_saved"
	EventPatchDryRun   = "patch_dry_run"
	EventPatchAborted  = "patch_aborted"
	EventPatchRejected = "patch_rejected"
)

var ErrNoChanges = errors.New("mutator made no changes")

// GraphStore is the remote side of a patch. The n8n client satisfies it.
type GraphStore interface {
	GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error)
	UpdateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error)
}

// Mutator edits the fetched graph in place. Returning an error aborts the
// patch before anything is saved.
type Mutator func(graph *domain.WorkflowGraph) error

type Options struct {
	DryRun        bool
	Validate      bool
	SkipUnchanged bool
}

type Option func(*Options)

// WithDryRun applies the mutator and returns the result without saving
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithValidation checks connection referential integrity before saving.
// The remote engine stays the authority for everything else.
func WithValidation() Option {
	return func(o *Options) {
		o.Validate = true
	}
}

// WithSkipUnchanged does not save when the mutator left the graph as fetched
func WithSkipUnchanged() Option {
	return func(o *Options) {
		o.SkipUnchanged = true
	}
}

type Patcher struct {
	store  GraphStore
	logger zerolog.Logger
}

type PatcherDependencies struct {
	Store  GraphStore
	Logger *zerolog.Logger
}

func New(deps PatcherDependencies) *Patcher {
	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Patcher{
		store:  deps.Store,
		logger: logger.With().Str("component", "patcher").Logger(),
	}
}

// Result describes one patch run.
type Result struct {
	Before  *domain.WorkflowGraph
	After   *domain.WorkflowGraph
	Changes ChangeSummary
	Saved   bool
}

// Patch fetches the workflow, applies the mutator and replaces the workflow
// wholesale. Settings and static data travel back untouched unless the
// mutator changed them. A failed save leaves the remote graph unchanged.
func (p *Patcher) Patch(ctx context.Context, workflowID string, mutator Mutator, opts ...Option) (*Result, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	started := time.Now()
	logger := p.logger.With().Str("workflow_id", workflowID).Logger()

	logger.Info().Str("event", EventPatchStarted).Bool("dry_run", options.DryRun).Msg("Fetching workflow")

	graph, err := p.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, domain.Classify("fetch workflow", err)
	}

	if graph.ID == "" {
		graph.ID = workflowID
	}

	before := graph.Clone()

	if err := mutator(graph); err != nil {
		logger.Error().Err(err).Str("event", EventPatchAborted).Msg("Mutator failed, nothing saved")
		return nil, domain.NewPermanentError("mutate workflow", domain.ErrorOriginLocal, err)
	}

	changes := Diff(before, graph)

	logger.Info().
		Str("event", EventPatchMutated).
		Strs("added", changes.AddedNodes).
		Strs("removed", changes.RemovedNodes).
		Strs("changed", changes.ChangedNodes).
		Bool("connections_changed", changes.ConnectionsChanged).
		Msg("Workflow mutated")

	result := &Result{Before: before, After: graph, Changes: changes}

	if options.Validate {
		if err := graph.ValidateConnections(); err != nil {
			logger.Error().Err(err).Str("event", EventPatchAborted).Msg("Graph failed validation, nothing saved")
			return result, domain.NewPermanentError("validate workflow", domain.ErrorOriginLocal, err)
		}
	}

	if options.DryRun {
		logger.Info().Str("event", EventPatchDryRun).Msg("Dry run, not saving")
		return result, nil
	}

	if options.SkipUnchanged && changes.Empty() {
		logger.Info().Str("event", EventPatchAborted).Msg("No changes, not saving")
		return result, ErrNoChanges
	}

	saved, err := p.store.UpdateWorkflow(ctx, graph)
	if err != nil {
		logger.Error().Err(err).Str("event", EventPatchRejected).Msg("Save rejected")
		return result, domain.Classify("save workflow", err)
	}

	result.After = saved
	result.Saved = true

	logger.Info().
		Str("event", EventPatchSaved).
		Dur("duration", time.Since(started)).
		Msg("Workflow saved")

	return result, nil
}

// Patch is the one-shot form of Patcher.Patch.
func Patch(ctx context.Context, store GraphStore, workflowID string, mutator Mutator, opts ...Option) (*domain.WorkflowGraph, error) {
	result, err := New(PatcherDependencies{Store: store}).Patch(ctx, workflowID, mutator, opts...)
	if err != nil {
		return nil, err
	}

	return result.After, nil
}

// Chain runs mutators in order and stops at the first error.
func Chain(mutators ...Mutator) Mutator {
	return func(graph *domain.WorkflowGraph) error {
		for i, mutator := range mutators {
			if err := mutator(graph); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		return nil
	}
}
