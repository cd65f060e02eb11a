package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/rs/zerolog/log"
)

// ClientInterface defines the operations opsflow needs from an n8n instance
type ClientInterface interface {
	// Workflow operations
	ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error)
	GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error)
	UpdateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error)
	CreateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error)
	ActivateWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error)
	DeactivateWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error)

	// Execution operations
	ListExecutions(ctx context.Context, req ListExecutionsRequest) (*ListExecutionsResponse, error)
	GetExecution(ctx context.Context, executionID string, includeData bool) (*Execution, error)

	// Webhook triggers
	TriggerWebhook(ctx context.Context, path string, payload any) (*WebhookResponse, error)
}

// Client talks to the n8n public REST API (/api/v1)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new n8n client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// BaseURL returns the instance URL the client was configured with
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// doRequest performs an API request. GETs are retried on transient failures;
// writes are sent once.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyBytes []byte

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	url := c.config.BaseURL + "/api/v1" + path

	attempts := 1
	if method == http.MethodGet {
		attempts += c.config.RetryAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		respBody, err := c.send(ctx, method, url, path, bodyBytes)
		if err == nil {
			return respBody, nil
		}

		lastErr = err

		if apiErr, ok := AsError(err); ok && !apiErr.IsRetryable() {
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, err
		}

		log.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt+1).
			Msg("n8n request failed")
	}

	if attempts == 1 {
		return nil, lastErr
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) send(ctx context.Context, method, url, path string, bodyBytes []byte) ([]byte, error) {
	var requestBody io.Reader
	if bodyBytes != nil {
		requestBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		req.Header.Set(key, value)
	}

	if c.config.APIKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.config.APIKey)
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, method, path, respBody)
	}

	return respBody, nil
}

func newAPIError(statusCode int, method, path string, body []byte) *Error {
	var errorResponse struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	message := fmt.Sprintf("HTTP %d", statusCode)
	if json.Unmarshal(body, &errorResponse) == nil {
		if errorResponse.Message != "" {
			message = errorResponse.Message
		} else if errorResponse.Error != "" {
			message = errorResponse.Error
		}
	}

	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Body:       string(body),
		Method:     method,
		Path:       path,
	}
}

// decode unmarshals a successful response body into result
func decode(body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
