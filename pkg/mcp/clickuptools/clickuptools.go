// Package clickuptools exposes ClickUp tasks as MCP tools.
package clickuptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName = "opsflow-clickup"

	dateLayout = "2006-01-02"
)

var ErrNoTeam = errors.New("no ClickUp team configured for search")

type ListTasksInput struct {
	ListID        string   `json:"list_id"`
	Page          int      `json:"page,omitempty"`
	IncludeClosed bool     `json:"include_closed,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
}

type TaskInput struct {
	TaskID string `json:"task_id"`
}

type CreateTaskInput struct {
	ListID      string   `json:"list_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty" jsonschema:"markdown description"`
	Status      string   `json:"status,omitempty"`
	Priority    int      `json:"priority,omitempty" jsonschema:"1 urgent, 2 high, 3 normal, 4 low"`
	DueDate     string   `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD"`
	Tags        []string `json:"tags,omitempty"`
}

type UpdateTaskInput struct {
	TaskID      string  `json:"task_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD"`
}

type SearchTasksInput struct {
	Query         string   `json:"query,omitempty" jsonschema:"case-insensitive text the task name must contain"`
	ListIDs       []string `json:"list_ids,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	IncludeClosed bool     `json:"include_closed,omitempty"`
	Page          int      `json:"page,omitempty"`
}

type AddCommentInput struct {
	TaskID    string `json:"task_id"`
	Text      string `json:"text"`
	NotifyAll bool   `json:"notify_all,omitempty"`
}

// TaskSummary is the compact task view returned to the model.
type TaskSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Due    string `json:"due,omitempty"`
	List   string `json:"list,omitempty"`
	URL    string `json:"url,omitempty"`
}

type Dependencies struct {
	Client   clickup.ClientInterface
	TeamID   string
	Location *time.Location
}

type Tools struct {
	client   clickup.ClientInterface
	teamID   string
	location *time.Location
}

func NewServer(deps Dependencies, version string) *mcp.Server {
	server := toolkit.NewServer(ServerName, version)
	Register(server, deps)
	return server
}

func Register(server *mcp.Server, deps Dependencies) {
	location := deps.Location
	if location == nil {
		location = time.UTC
	}

	t := &Tools{client: deps.Client, teamID: deps.TeamID, location: location}

	toolkit.AddTool(server, "list_tasks", "List the tasks of a ClickUp list, one page at a time.", t.ListTasks)
	toolkit.AddTool(server, "get_task", "Get one task with its description.", t.GetTask)
	toolkit.AddTool(server, "create_task", "Create a task in a list.", t.CreateTask)
	toolkit.AddTool(server, "update_task", "Change the name, description, status, priority or due date of a task.", t.UpdateTask)
	toolkit.AddTool(server, "search_tasks", "Search tasks across the workspace.", t.SearchTasks)
	toolkit.AddTool(server, "add_comment", "Add a comment to a task.", t.AddComment)
}

func (t *Tools) summarize(tasks []clickup.Task) []TaskSummary {
	out := make([]TaskSummary, 0, len(tasks))

	for i := range tasks {
		task := &tasks[i]

		summary := TaskSummary{
			ID:     task.ID,
			Name:   task.Name,
			Status: task.Status.Status,
			List:   task.List.Name,
			URL:    task.URL,
		}
		if due, ok := task.Due(); ok {
			summary.Due = due.In(t.location).Format(dateLayout)
		}

		out = append(out, summary)
	}

	return out
}

// parseDue turns YYYY-MM-DD into ClickUp milliseconds at local midnight.
func (t *Tools) parseDue(value string) (*int64, error) {
	due, err := time.ParseInLocation(dateLayout, value, t.location)
	if err != nil {
		return nil, fmt.Errorf("due_date %q is not YYYY-MM-DD", value)
	}

	ms := clickup.Millis(due)
	return &ms, nil
}

func (t *Tools) ListTasks(ctx context.Context, in ListTasksInput) (any, error) {
	if in.ListID == "" {
		return nil, fmt.Errorf("list_id is required")
	}

	resp, err := t.client.ListTasks(ctx, in.ListID, clickup.ListTasksRequest{
		Page:          in.Page,
		IncludeClosed: in.IncludeClosed,
		Statuses:      in.Statuses,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"tasks": t.summarize(resp.Tasks), "last_page": resp.LastPage}, nil
}

func (t *Tools) GetTask(ctx context.Context, in TaskInput) (any, error) {
	if in.TaskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}

	return t.client.GetTask(ctx, in.TaskID)
}

func (t *Tools) CreateTask(ctx context.Context, in CreateTaskInput) (any, error) {
	if in.ListID == "" || strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("list_id and name are required")
	}

	req := clickup.CreateTaskRequest{
		Name:                in.Name,
		MarkdownDescription: in.Description,
		Status:              in.Status,
		Tags:                in.Tags,
	}

	if in.Priority != 0 {
		priority := in.Priority
		req.Priority = &priority
	}

	if in.DueDate != "" {
		due, err := t.parseDue(in.DueDate)
		if err != nil {
			return nil, err
		}
		req.DueDate = due
	}

	task, err := t.client.CreateTask(ctx, in.ListID, req)
	if err != nil {
		return nil, err
	}

	return t.summarize([]clickup.Task{*task})[0], nil
}

func (t *Tools) UpdateTask(ctx context.Context, in UpdateTaskInput) (any, error) {
	if in.TaskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}

	req := clickup.UpdateTaskRequest{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
	}

	if in.DueDate != nil {
		due, err := t.parseDue(*in.DueDate)
		if err != nil {
			return nil, err
		}
		req.DueDate = due
	}

	task, err := t.client.UpdateTask(ctx, in.TaskID, req)
	if err != nil {
		return nil, err
	}

	return t.summarize([]clickup.Task{*task})[0], nil
}

func (t *Tools) SearchTasks(ctx context.Context, in SearchTasksInput) (any, error) {
	if t.teamID == "" {
		return nil, ErrNoTeam
	}

	resp, err := t.client.SearchTasks(ctx, t.teamID, clickup.SearchTasksRequest{
		Page:          in.Page,
		ListIDs:       in.ListIDs,
		Statuses:      in.Statuses,
		Tags:          in.Tags,
		IncludeClosed: in.IncludeClosed,
	})
	if err != nil {
		return nil, err
	}

	tasks := resp.Tasks
	if query := strings.ToLower(strings.TrimSpace(in.Query)); query != "" {
		tasks = tasks[:0:0]
		for _, task := range resp.Tasks {
			if strings.Contains(strings.ToLower(task.Name), query) {
				tasks = append(tasks, task)
			}
		}
	}

	return map[string]any{"tasks": t.summarize(tasks), "last_page": resp.LastPage}, nil
}

func (t *Tools) AddComment(ctx context.Context, in AddCommentInput) (any, error) {
	if in.TaskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}

	resp, err := t.client.AddComment(ctx, in.TaskID, clickup.CommentRequest{CommentText: in.Text, Notify: in.NotifyAll})
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("comment %v added to task %s", resp.ID, in.TaskID), nil
}
