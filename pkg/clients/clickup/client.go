package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// ClientInterface defines the ClickUp operations opsflow uses
type ClientInterface interface {
	ListTasks(ctx context.Context, listID string, req ListTasksRequest) (*TasksResponse, error)
	ListAllTasks(ctx context.Context, listID string, includeClosed bool) ([]Task, error)
	SearchTasks(ctx context.Context, teamID string, req SearchTasksRequest) (*TasksResponse, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	CreateTask(ctx context.Context, listID string, req CreateTaskRequest) (*Task, error)
	UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	AddComment(ctx context.Context, taskID string, req CommentRequest) (*CommentResponse, error)
}

type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

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

	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "clickup",
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Rejections such as a 404 or a validation error say nothing about
		// the health of the API.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("ClickUp circuit breaker changed state")
		},
	})

	return &Client{
		config:     config,
		httpClient: httpClient,
		breaker:    breaker,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var bodyBytes []byte

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

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

		respBody, err := c.breaker.Execute(func() ([]byte, error) {
			return c.send(ctx, method, endpoint, path, bodyBytes)
		})
		if err == nil {
			return respBody, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewTransientError("clickup "+method+" "+path, domain.ErrorOriginRemote, err)
		}

		lastErr = err

		if !domain.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}

		log.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt+1).
			Msg("ClickUp request failed")
	}

	if attempts == 1 {
		return nil, lastErr
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) send(ctx context.Context, method, endpoint, path string, bodyBytes []byte) ([]byte, error) {
	var requestBody io.Reader
	if bodyBytes != nil {
		requestBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.config.Token)
	req.Header.Set("Accept", "application/json")
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
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
		apiErr := &Error{}
		_ = json.Unmarshal(respBody, apiErr)

		apiErr.StatusCode = resp.StatusCode
		apiErr.Body = string(respBody)
		apiErr.Method = method
		apiErr.Path = path

		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}

		return nil, apiErr
	}

	return respBody, nil
}

func decode(body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
