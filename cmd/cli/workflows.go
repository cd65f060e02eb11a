package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"
	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/n8ntools"

	"github.com/spf13/cobra"
)

func NewWorkflowsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect and toggle n8n workflows",
	}

	cmd.AddCommand(
		newWorkflowsListCommand(a),
		newWorkflowsShowCommand(a),
		newWorkflowsExportCommand(a),
		newWorkflowsImportCommand(a),
		newWorkflowsActivationCommand(a, "activate", true),
		newWorkflowsActivationCommand(a, "deactivate", false),
	)

	return cmd
}

func newWorkflowsListCommand(a *app) *cobra.Command {
	var (
		activeOnly bool
		name       string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			req := n8n.ListWorkflowsRequest{Name: name, Limit: limit}
			if activeOnly {
				req.Active = &activeOnly
			}

			resp, err := client.ListWorkflows(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACTIVE\tNAME")
			for _, workflow := range resp.Data {
				fmt.Fprintf(w, "%s\t%t\t%s\n", workflow.ID, workflow.Active, workflow.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active workflows")
	cmd.Flags().StringVar(&name, "name", "", "Filter by name")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum workflows to list")

	return cmd
}

func newWorkflowsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Show a workflow's nodes and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			graph, err := client.GetWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), n8ntools.Overview(graph))
		},
	}
}

func newWorkflowsExportCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <workflow-id>",
		Short: "Write the full workflow JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			graph, err := client.GetWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return printJSON(cmd.OutOrStdout(), graph)
			}

			return writeJSONFile(output, graph)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func newWorkflowsImportCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a new, inactive workflow from exported JSON",
		Long: `Create a new workflow from a file written by "workflows export" or the
n8n editor. Use - to read from stdin. Read-only fields such as id and active
are ignored, so the import never replaces an existing workflow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := readWorkflowFile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			if name != "" {
				graph.Name = name
			}
			if graph.Name == "" {
				return fmt.Errorf("workflow in %s has no name, pass --name", args[0])
			}

			if err := graph.ValidateConnections(); err != nil {
				return err
			}

			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			created, err := client.CreateWorkflow(cmd.Context(), graph)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %q created with %d nodes\n", created.ID, created.Name, len(created.Nodes))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the new workflow (default: the name in the file)")

	return cmd
}

func readWorkflowFile(stdin io.Reader, path string) (*domain.WorkflowGraph, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}

	var graph domain.WorkflowGraph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", path, err)
	}

	return &graph, nil
}

func newWorkflowsActivationCommand(a *app, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <workflow-id>",
		Short: fmt.Sprintf("%s a workflow", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.container.N8N()
			if err != nil {
				return err
			}

			activate := client.DeactivateWorkflow
			if active {
				activate = client.ActivateWorkflow
			}

			graph, err := activate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %q active=%t\n", graph.ID, graph.Name, graph.Active)
			return nil
		},
	}
}

func writeJSONFile(path string, value any) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	return printJSON(file, value)
}
