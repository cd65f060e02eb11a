package n8n

import (
	"encoding/json"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
)

// WorkflowSummary is a list entry of GET /workflows
type WorkflowSummary struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Active    bool                 `json:"active"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Tags      []domain.WorkflowTag `json:"tags,omitempty"`
}

type ListWorkflowsRequest struct {
	Active *bool
	Tags   string
	Name   string
	Limit  int
	Cursor string
}

type ListWorkflowsResponse struct {
	Data       []WorkflowSummary `json:"data"`
	NextCursor string            `json:"nextCursor"`
}

type ExecutionStatus string

const (
	ExecutionStatusNew      ExecutionStatus = "new"
	ExecutionStatusRunning  ExecutionStatus = "running"
	ExecutionStatusWaiting  ExecutionStatus = "waiting"
	ExecutionStatusSuccess  ExecutionStatus = "success"
	ExecutionStatusError    ExecutionStatus = "error"
	ExecutionStatusCanceled ExecutionStatus = "canceled"
	ExecutionStatusCrashed  ExecutionStatus = "crashed"
	ExecutionStatusUnknown  ExecutionStatus = "unknown"
)

// IsTerminal reports whether the execution will not change status anymore.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusError, ExecutionStatusCanceled, ExecutionStatusCrashed:
		return true
	}
	return false
}

type Execution struct {
	ID         json.Number     `json:"id"`
	WorkflowID string          `json:"workflowId"`
	Finished   bool            `json:"finished"`
	Mode       string          `json:"mode"`
	Status     ExecutionStatus `json:"status"`
	StartedAt  *time.Time      `json:"startedAt"`
	StoppedAt  *time.Time      `json:"stoppedAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Done reports whether the execution reached a terminal state. Older n8n
// versions only set finished/stoppedAt.
func (e *Execution) Done() bool {
	if e.Status != "" {
		return e.Status.IsTerminal()
	}
	return e.Finished || e.StoppedAt != nil
}

func (e *Execution) Succeeded() bool {
	if e.Status != "" {
		return e.Status == ExecutionStatusSuccess
	}
	return e.Finished
}

type ListExecutionsRequest struct {
	WorkflowID  string
	Status      ExecutionStatus
	IncludeData bool
	Limit       int
	Cursor      string
}

type ListExecutionsResponse struct {
	Data       []Execution `json:"data"`
	NextCursor string      `json:"nextCursor"`
}

// WebhookResponse holds whatever the workflow's webhook node answered.
type WebhookResponse struct {
	StatusCode int
	Body       []byte
}
