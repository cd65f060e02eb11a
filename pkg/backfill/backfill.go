// Package backfill processes a batch of source documents at most once each.
// An id is recorded as processed only after its processor succeeded, and the
// record is made durable before the next item starts.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EventBackfillStarted   = "backfill_started"
	EventBackfillSkipped   = "backfill_item_skipped"
	EventBackfillDeferred  = "backfill_item_deferred"
	EventBackfillProcessed = "backfill_item_processed"
	EventBackfillFailed    = "backfill_item_failed"
	EventBackfillFinished  = "backfill_finished"
)

var ErrMissingID = errors.New("item has no id")

// Item is one candidate work unit, typically a document in a Drive folder.
type Item struct {
	ID   string         `json:"id"`
	Name string         `json:"name,omitempty"`
	Date string         `json:"date,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

type Source interface {
	Items(ctx context.Context) ([]Item, error)
}

type Processor interface {
	Process(ctx context.Context, item Item) error
}

type ProcessorFunc func(ctx context.Context, item Item) error

func (f ProcessorFunc) Process(ctx context.Context, item Item) error {
	return f(ctx, item)
}

// Store is the persistent processed-id set. Mark must be durable when it
// returns.
type Store interface {
	Processed(ctx context.Context) (map[string]domain.ProcessedDoc, error)
	Mark(ctx context.Context, id string, doc domain.ProcessedDoc) error
}

type ItemFailure struct {
	ID  string
	Err error
}

type Report struct {
	// RunID tags every log line of one run.
	RunID string

	Seen      int
	Processed int
	Failed    int

	// Skipped counts ids that were already processed.
	Skipped int

	// Pending counts items a dry run would have processed.
	Pending int

	// Deferred counts unprocessed items held back by the limit. The next run
	// picks them up.
	Deferred int

	ProcessedIDs []string
	PendingIDs   []string
	DeferredIDs  []string
	Failures     []ItemFailure
}

type Runner struct {
	source    Source
	store     Store
	processor Processor
	logger    zerolog.Logger
	now       func() time.Time
	dryRun    bool
	limit     int
}

type RunnerDependencies struct {
	Source    Source
	Store     Store
	Processor Processor
	Logger    *zerolog.Logger
	Now       func() time.Time

	// DryRun reports what would be processed without calling the processor.
	DryRun bool
	// Limit caps the number of items processed in one run. Zero means no cap.
	Limit int
}

func NewRunner(deps RunnerDependencies) *Runner {
	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		source:    deps.Source,
		store:     deps.Store,
		processor: deps.Processor,
		logger:    logger.With().Str("component", "backfill").Logger(),
		now:       now,
		dryRun:    deps.DryRun,
		limit:     deps.Limit,
	}
}

// Run lists the source, skips ids already in the store and processes the
// rest one at a time. A failed item is reported and left unmarked so the next
// run retries it. Run stops early only on context cancellation or when the
// store cannot record a success.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := xid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()

	items, err := r.source.Items(ctx)
	if err != nil {
		return nil, domain.Classify("list backfill items", err)
	}

	processed, err := r.store.Processed(ctx)
	if err != nil {
		return nil, domain.Classify("load processed ids", err)
	}

	logger.Info().
		Str("event", EventBackfillStarted).
		Int("items", len(items)).
		Int("already_processed", len(processed)).
		Bool("dry_run", r.dryRun).
		Msg("Starting backfill")

	report := &Report{RunID: runID}
	seenInBatch := make(map[string]bool, len(items))

	for _, item := range items {
		report.Seen++

		if item.ID == "" {
			report.Failed++
			report.Failures = append(report.Failures, ItemFailure{Err: ErrMissingID})
			logger.Warn().Str("event", EventBackfillFailed).Str("name", item.Name).Msg("Item has no id")
			continue
		}

		if _, done := processed[item.ID]; done || seenInBatch[item.ID] {
			report.Skipped++
			logger.Debug().Str("event", EventBackfillSkipped).Str("doc_id", item.ID).Msg("Already processed")
			continue
		}
		seenInBatch[item.ID] = true

		if r.limit > 0 && report.Processed+report.Pending >= r.limit {
			report.Deferred++
			report.DeferredIDs = append(report.DeferredIDs, item.ID)
			logger.Debug().Str("event", EventBackfillDeferred).Str("doc_id", item.ID).Msg("Limit reached, deferred to the next run")
			continue
		}

		if r.dryRun {
			report.Pending++
			report.PendingIDs = append(report.PendingIDs, item.ID)
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := r.processor.Process(ctx, item); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, ItemFailure{ID: item.ID, Err: err})

			logger.Error().Err(err).Str("event", EventBackfillFailed).Str("doc_id", item.ID).Msg("Processing failed, item left unmarked")

			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			continue
		}

		doc := domain.ProcessedDoc{Date: item.Date, ProcessedAt: r.now().UTC()}
		if err := r.store.Mark(ctx, item.ID, doc); err != nil {
			return report, fmt.Errorf("item %s was processed but could not be marked: %w", item.ID, err)
		}

		processed[item.ID] = doc
		report.Processed++
		report.ProcessedIDs = append(report.ProcessedIDs, item.ID)

		logger.Info().Str("event", EventBackfillProcessed).Str("doc_id", item.ID).Str("date", item.Date).Msg("Item processed")
	}

	logger.Info().
		Str("event", EventBackfillFinished).
		Int("seen", report.Seen).
		Int("skipped", report.Skipped).
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Int("pending", report.Pending).
		Int("deferred", report.Deferred).
		Msg("Backfill finished")

	return report, nil
}
