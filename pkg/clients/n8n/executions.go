package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListExecutions returns one page of executions, newest first
func (c *Client) ListExecutions(ctx context.Context, req ListExecutionsRequest) (*ListExecutionsResponse, error) {
	query := url.Values{}

	if req.WorkflowID != "" {
		query.Set("workflowId", req.WorkflowID)
	}
	if req.Status != "" {
		query.Set("status", string(req.Status))
	}
	if req.IncludeData {
		query.Set("includeData", "true")
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}

	path := "/executions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	var result ListExecutionsResponse
	if err := decode(body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) GetExecution(ctx context.Context, executionID string, includeData bool) (*Execution, error) {
	if executionID == "" {
		return nil, fmt.Errorf("execution ID is required")
	}

	path := "/executions/" + url.PathEscape(executionID)
	if includeData {
		path += "?includeData=true"
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", executionID, err)
	}

	var execution Execution
	if err := decode(body, &execution); err != nil {
		return nil, err
	}

	return &execution, nil
}

// TriggerWebhook posts a JSON payload to a production webhook of the
// instance (/webhook/<path>). This is not part of /api/v1 and needs no key.
func (c *Client) TriggerWebhook(ctx context.Context, path string, payload any) (*WebhookResponse, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return nil, fmt.Errorf("webhook path is required")
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/webhook/"+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call webhook %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, http.MethodPost, "/webhook/"+path, respBody)
	}

	return &WebhookResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
