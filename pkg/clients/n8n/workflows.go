package n8n

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
)

// ListWorkflows returns one page of workflows
func (c *Client) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	query := url.Values{}

	if req.Active != nil {
		query.Set("active", strconv.FormatBool(*req.Active))
	}
	if req.Tags != "" {
		query.Set("tags", req.Tags)
	}
	if req.Name != "" {
		query.Set("name", req.Name)
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}

	path := "/workflows"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var result ListWorkflowsResponse
	if err := decode(body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetWorkflow fetches the full workflow graph
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflow ID is required")
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/workflows/"+url.PathEscape(workflowID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", workflowID, err)
	}

	var graph domain.WorkflowGraph
	if err := decode(body, &graph); err != nil {
		return nil, err
	}

	return &graph, nil
}

// UpdateWorkflow replaces the workflow wholesale with the graph's name,
// nodes, connections, settings and static data
func (c *Client) UpdateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error) {
	if graph == nil || graph.ID == "" {
		return nil, fmt.Errorf("workflow ID is required")
	}

	body, err := c.doRequest(ctx, http.MethodPut, "/workflows/"+url.PathEscape(graph.ID), graph.UpdatePayload())
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow %s: %w", graph.ID, err)
	}

	var updated domain.WorkflowGraph
	if err := decode(body, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// CreateWorkflow creates a new workflow from a locally built graph
func (c *Client) CreateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/workflows", graph.UpdatePayload())
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow %q: %w", graph.Name, err)
	}

	var created domain.WorkflowGraph
	if err := decode(body, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) ActivateWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error) {
	return c.setActivation(ctx, workflowID, "activate")
}

func (c *Client) DeactivateWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error) {
	return c.setActivation(ctx, workflowID, "deactivate")
}

func (c *Client) setActivation(ctx context.Context, workflowID, action string) (*domain.WorkflowGraph, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflow ID is required")
	}

	path := fmt.Sprintf("/workflows/%s/%s", url.PathEscape(workflowID), action)

	body, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to %s workflow %s: %w", action, workflowID, err)
	}

	var graph domain.WorkflowGraph
	if err := decode(body, &graph); err != nil {
		return nil, err
	}

	return &graph, nil
}
