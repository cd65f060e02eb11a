// Package n8ntools exposes the n8n REST API as MCP tools.
package n8ntools

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"
	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit"
	"github.com/angelsbailbonds/opsflow/pkg/patcher"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "opsflow-n8n"

type ListWorkflowsInput struct {
	Active *bool  `json:"active,omitempty" jsonschema:"only active or only inactive workflows"`
	Name   string `json:"name,omitempty" jsonschema:"filter by workflow name"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size, default 50"`
	Cursor string `json:"cursor,omitempty" jsonschema:"nextCursor of the previous page"`
}

type WorkflowInput struct {
	WorkflowID string `json:"workflow_id" jsonschema:"n8n workflow id"`
}

type GetWorkflowInput struct {
	WorkflowID string `json:"workflow_id" jsonschema:"n8n workflow id"`
	Full       bool   `json:"full,omitempty" jsonschema:"return the complete workflow JSON instead of an overview"`
}

type ListExecutionsInput struct {
	WorkflowID string `json:"workflow_id,omitempty" jsonschema:"only executions of this workflow"`
	Status     string `json:"status,omitempty" jsonschema:"success, error, running, waiting or canceled"`
	Limit      int    `json:"limit,omitempty" jsonschema:"page size, default 20"`
	Cursor     string `json:"cursor,omitempty"`
}

type GetExecutionInput struct {
	ExecutionID string `json:"execution_id"`
	IncludeData bool   `json:"include_data,omitempty" jsonschema:"include the per-node run data"`
}

type SetNodeParameterInput struct {
	WorkflowID string `json:"workflow_id"`
	Node       string `json:"node" jsonschema:"node name"`
	Path       string `json:"path" jsonschema:"dotted parameter path, e.g. options.timeout"`
	Value      any    `json:"value" jsonschema:"new parameter value"`
	DryRun     bool   `json:"dry_run,omitempty" jsonschema:"report the change without saving"`
}

type NodeOverview struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type WorkflowOverview struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Active      bool           `json:"active"`
	Nodes       []NodeOverview `json:"nodes"`
	Connections []string       `json:"connections"`
}

func Overview(graph *domain.WorkflowGraph) WorkflowOverview {
	overview := WorkflowOverview{
		ID:          graph.ID,
		Name:        graph.Name,
		Active:      graph.Active,
		Nodes:       make([]NodeOverview, 0, len(graph.Nodes)),
		Connections: []string{},
	}

	for _, node := range graph.Nodes {
		overview.Nodes = append(overview.Nodes, NodeOverview{Name: node.Name, Type: node.Type})
	}

	sources := make([]string, 0, len(graph.Connections))
	for source := range graph.Connections {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		for _, target := range graph.Connections.Targets(source) {
			overview.Connections = append(overview.Connections, source+" -> "+target)
		}
	}

	return overview
}

type Tools struct {
	client  n8n.ClientInterface
	patcher *patcher.Patcher
}

func NewServer(client n8n.ClientInterface, version string) *mcp.Server {
	server := toolkit.NewServer(ServerName, version)
	Register(server, client)
	return server
}

func Register(server *mcp.Server, client n8n.ClientInterface) {
	t := &Tools{
		client:  client,
		patcher: patcher.New(patcher.PatcherDependencies{Store: client}),
	}

	toolkit.AddTool(server, "list_workflows", "List n8n workflows with their id, name and active flag.", t.ListWorkflows)
	toolkit.AddTool(server, "get_workflow", "Show a workflow's nodes and connections.", t.GetWorkflow)
	toolkit.AddTool(server, "activate_workflow", "Activate a workflow so its triggers run.", t.ActivateWorkflow)
	toolkit.AddTool(server, "deactivate_workflow", "Deactivate a workflow.", t.DeactivateWorkflow)
	toolkit.AddTool(server, "list_executions", "List recent executions, newest first.", t.ListExecutions)
	toolkit.AddTool(server, "get_execution", "Show one execution and its status.", t.GetExecution)
	toolkit.AddTool(server, "set_node_parameter", "Set one parameter of one node and save the workflow.", t.SetNodeParameter)
}

func (t *Tools) ListWorkflows(ctx context.Context, in ListWorkflowsInput) (any, error) {
	return t.client.ListWorkflows(ctx, n8n.ListWorkflowsRequest{
		Active: in.Active,
		Name:   in.Name,
		Limit:  toolkit.Limit(in.Limit, 50, 250),
		Cursor: in.Cursor,
	})
}

func (t *Tools) GetWorkflow(ctx context.Context, in GetWorkflowInput) (any, error) {
	if in.WorkflowID == "" {
		return nil, fmt.Errorf("workflow_id is required")
	}

	graph, err := t.client.GetWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return nil, err
	}

	if in.Full {
		return graph, nil
	}

	return Overview(graph), nil
}

func (t *Tools) ActivateWorkflow(ctx context.Context, in WorkflowInput) (any, error) {
	graph, err := t.client.ActivateWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("workflow %s (%s) active: %t", graph.ID, graph.Name, graph.Active), nil
}

func (t *Tools) DeactivateWorkflow(ctx context.Context, in WorkflowInput) (any, error) {
	graph, err := t.client.DeactivateWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("workflow %s (%s) active: %t", graph.ID, graph.Name, graph.Active), nil
}

func (t *Tools) ListExecutions(ctx context.Context, in ListExecutionsInput) (any, error) {
	return t.client.ListExecutions(ctx, n8n.ListExecutionsRequest{
		WorkflowID: in.WorkflowID,
		Status:     n8n.ExecutionStatus(in.Status),
		Limit:      toolkit.Limit(in.Limit, 20, 250),
		Cursor:     in.Cursor,
	})
}

func (t *Tools) GetExecution(ctx context.Context, in GetExecutionInput) (any, error) {
	if in.ExecutionID == "" {
		return nil, fmt.Errorf("execution_id is required")
	}

	return t.client.GetExecution(ctx, in.ExecutionID, in.IncludeData)
}

func (t *Tools) SetNodeParameter(ctx context.Context, in SetNodeParameterInput) (any, error) {
	if in.WorkflowID == "" || in.Node == "" || in.Path == "" {
		return nil, fmt.Errorf("workflow_id, node and path are required")
	}

	mutator := func(graph *domain.WorkflowGraph) error {
		return graph.SetParameter(in.Node, in.Path, in.Value)
	}

	result, err := t.patcher.Patch(ctx, in.WorkflowID, mutator, patcher.WithDryRun(in.DryRun))
	if err != nil {
		return nil, err
	}

	verb := "saved"
	if !result.Saved {
		verb = "dry run, not saved"
	}

	return fmt.Sprintf("%s.%s on workflow %s: %s (changed nodes: %v)", in.Node, in.Path, in.WorkflowID, verb, result.Changes.ChangedNodes), nil
}
