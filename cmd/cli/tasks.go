package cli

import (
	"fmt"

	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/pkg/tasks"

	"github.com/spf13/cobra"
)

func NewTasksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "ClickUp task maintenance",
	}

	cmd.AddCommand(newTasksDedupeCommand(a))

	return cmd
}

func newTasksDedupeCommand(a *app) *cobra.Command {
	var (
		listID string
		taskID string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Delete duplicate tasks with the same name and due day",
		Long: `Group the open tasks of a list by normalized name and due day, keep the
earliest created task of each group and delete the rest. With --task only the
group of that task is handled. Tasks without a due date are never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deduper, err := a.container.Deduper()
			if err != nil {
				return err
			}

			var report *tasks.Report

			switch {
			case taskID != "":
				report, err = deduper.DedupeTask(cmd.Context(), taskID, dryRun)
			default:
				if listID == "" {
					listID = a.container.Config().ClickUpListID
				}
				if listID == "" {
					return fmt.Errorf("--list or %s is required", config.EnvName(config.KeyClickUpListID))
				}
				report, err = deduper.DedupeList(cmd.Context(), listID, dryRun)
			}
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), report.Summary())
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "dry run, nothing deleted")
			}

			if len(report.Failed) > 0 {
				return fmt.Errorf("%d duplicates could not be deleted", len(report.Failed))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "ClickUp list id (default CLICKUP_LIST_ID)")
	cmd.Flags().StringVar(&taskID, "task", "", "Only handle the duplicates of this task")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report duplicates without deleting")

	return cmd
}
