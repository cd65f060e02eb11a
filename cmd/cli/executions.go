package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"
	"github.com/angelsbailbonds/opsflow/pkg/poll"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewExecutionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List and await n8n executions",
	}

	cmd.AddCommand(newExecutionsListCommand(a), newExecutionsWaitCommand(a))

	return cmd
}

func newExecutionsListCommand(a *app) *cobra.Command {
	var (
		workflowID string
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			resp, err := client.ListExecutions(cmd.Context(), n8n.ListExecutionsRequest{
				WorkflowID: workflowID,
				Status:     n8n.ExecutionStatus(status),
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORKFLOW\tSTATUS\tMODE\tSTARTED")
			for _, execution := range resp.Data {
				started := ""
				if execution.StartedAt != nil {
					started = execution.StartedAt.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", execution.ID, execution.WorkflowID, execution.Status, execution.Mode, started)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Only executions of this workflow")
	cmd.Flags().StringVar(&status, "status", "", "success, error or waiting")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum executions to list")

	return cmd
}

func newExecutionsWaitCommand(a *app) *cobra.Command {
	var (
		interval time.Duration
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "wait <execution-id>",
		Short: "Wait for an execution to finish",
		Long:  `Poll the execution until it reaches a terminal status. Exits 1 unless it succeeded.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			opts := poll.Options{
				Interval:    interval,
				MaxAttempts: attempts,
				StopOnError: true,
				Name:        "execution " + args[0],
			}

			execution, err := poll.Until(cmd.Context(), opts, func(ctx context.Context, attempt int) (*n8n.Execution, bool, error) {
				execution, err := client.GetExecution(ctx, args[0], false)
				if err != nil {
					if apiErr, ok := n8n.AsError(err); ok && apiErr.IsRetryable() {
						log.Debug().Err(err).Int("attempt", attempt).Msg("Transient error while waiting, retrying")
						return nil, false, nil
					}
					return nil, false, err
				}
				return execution, execution.Done(), nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "execution %s: %s\n", execution.ID, execution.Status)

			if !execution.Succeeded() {
				return fmt.Errorf("execution %s finished with status %s", execution.ID, execution.Status)
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Time between polls")
	cmd.Flags().IntVar(&attempts, "attempts", 60, "Polls before giving up")

	return cmd
}
