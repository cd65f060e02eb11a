package cli

import (
	"fmt"
	"io"

	"github.com/angelsbailbonds/opsflow/pkg/backfill"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"
)

func NewBackfillCommand(a *app) *cobra.Command {
	var (
		workflowID  string
		folderID    string
		webhookPath string
		name        string
		mimeType    string
		maxPages    int
		limit       int
		dryRun      bool
		schedule    string
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Send unprocessed Drive files to an n8n webhook",
		Long: `List the files of a Drive folder, skip the ones already recorded as
processed and POST the rest one by one to an n8n webhook. A file is recorded
only after the webhook accepted it.

Processed ids are kept in Redis when REDIS_URL is set, otherwise in the
static data (global.docIds) of --workflow.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if folderID == "" || webhookPath == "" {
				return fmt.Errorf("--folder and --webhook are required")
			}
			if a.container.Config().RedisURL == "" && workflowID == "" {
				return fmt.Errorf("--workflow is required when REDIS_URL is not set")
			}
			if schedule != "" {
				if _, err := backfill.ParseSchedule(schedule); err != nil {
					return err
				}
			}

			if name == "" {
				name = slug.Make(webhookPath)
			}

			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			services, err := a.container.Google(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := a.container.BackfillStore(ctx, workflowID, name)
			if err != nil {
				return err
			}
			defer closeStore()

			var sourceOpts []backfill.DriveSourceOption
			if maxPages > 0 {
				sourceOpts = append(sourceOpts, backfill.WithMaxPages(maxPages))
			}
			if mimeType != "" {
				sourceOpts = append(sourceOpts, backfill.WithMimeType(mimeType))
			}

			runner := backfill.NewRunner(backfill.RunnerDependencies{
				Source:    backfill.NewDriveSource(services.Drive, folderID, sourceOpts...),
				Store:     store,
				Processor: backfill.NewWebhookProcessor(client, webhookPath),
				DryRun:    dryRun,
				Limit:     limit,
			})

			if schedule != "" {
				return backfill.RunScheduled(ctx, schedule, runner)
			}

			report, err := runner.Run(ctx)
			if report != nil {
				printBackfillReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}

			if report.Failed > 0 {
				return fmt.Errorf("%d items failed and were left unmarked", report.Failed)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Workflow whose static data holds the processed ids")
	cmd.Flags().StringVar(&folderID, "folder", "", "Google Drive folder id")
	cmd.Flags().StringVar(&webhookPath, "webhook", "", "n8n production webhook path")
	cmd.Flags().StringVar(&name, "name", "", "Redis store name (default: slug of --webhook)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "application/pdf", "Only files of this MIME type, empty for all")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum Drive result pages of 100 files, 0 for the default of 20")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to process in one run, 0 for no cap")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report pending items without processing them")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression; run on every tick until interrupted")

	return cmd
}

func printBackfillReport(out io.Writer, report *backfill.Report) {
	fmt.Fprintf(out, "seen %d, skipped %d, processed %d, failed %d", report.Seen, report.Skipped, report.Processed, report.Failed)
	if report.Pending > 0 {
		fmt.Fprintf(out, ", pending %d", report.Pending)
	}
	if report.Deferred > 0 {
		fmt.Fprintf(out, ", deferred %d (limit reached)", report.Deferred)
	}
	fmt.Fprintln(out)

	for _, id := range report.PendingIDs {
		fmt.Fprintf(out, "  pending %s\n", id)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "  failed  %s: %v\n", failure.ID, failure.Err)
	}
}
