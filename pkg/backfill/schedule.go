package backfill

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

// ParseSchedule validates a standard five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return schedule, nil
}

// RunScheduled runs the backfill on every tick of the cron expression until ctx is done.
// Runs never overlap: a tick that fires while a run is in progress is
// skipped.
func RunScheduled(ctx context.Context, expr string, runner *Runner) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	busy := make(chan struct{}, 1)

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		select {
		case busy <- struct{}{}:
		default:
			log.Warn().Str("schedule", expr).Msg("Previous backfill still running, skipping tick")
			return
		}
		defer func() { <-busy }()

		report, err := runner.Run(ctx)
		if err != nil {
			log.Error().Err(err).Str("schedule", expr).Msg("Scheduled backfill failed")
			return
		}

		log.Info().
			Str("schedule", expr).
			Int("processed", report.Processed).
			Int("failed", report.Failed).
			Msg("Scheduled backfill done")
	}))

	c.Start()
	defer c.Stop()

	log.Info().Str("schedule", expr).Msg("Backfill scheduler started")

	<-ctx.Done()

	return nil
}
