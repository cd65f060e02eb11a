package cli

import (
	"fmt"
	"sort"

	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"

	"github.com/spf13/cobra"
)

func NewStatusCommand(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the loaded configuration",
		Long:  `Print every configuration key with secrets masked. With --check, also call the n8n API once to confirm the URL and key work.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			summary := a.container.Config().Summary()

			names := make([]string, 0, len(summary))
			for name := range summary {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Fprintf(out, "%-24s %s\n", name, summary[name])
			}

			if !check {
				return nil
			}

			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			if _, err := client.ListWorkflows(cmd.Context(), n8n.ListWorkflowsRequest{Limit: 1}); err != nil {
				return fmt.Errorf("n8n check failed: %w", err)
			}

			fmt.Fprintf(out, "\nn8n reachable at %s\n", client.BaseURL())
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also verify the n8n connection")

	return cmd
}
