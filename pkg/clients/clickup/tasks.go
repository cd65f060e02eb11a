package clickup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// maxListPages bounds ListAllTasks; ClickUp pages hold 100 tasks.
const maxListPages = 50

func (c *Client) ListTasks(ctx context.Context, listID string, req ListTasksRequest) (*TasksResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))

	if req.IncludeClosed {
		query.Set("include_closed", "true")
	}
	if req.Archived {
		query.Set("archived", "true")
	}
	if req.Subtasks {
		query.Set("subtasks", "true")
	}
	for _, status := range req.Statuses {
		query.Add("statuses[]", status)
	}
	if req.DueDateGt > 0 {
		query.Set("due_date_gt", strconv.FormatInt(req.DueDateGt, 10))
	}
	if req.DueDateLt > 0 {
		query.Set("due_date_lt", strconv.FormatInt(req.DueDateLt, 10))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/list/"+url.PathEscape(listID)+"/task", query, nil)
	if err != nil {
		return nil, err
	}

	var resp TasksResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// ListAllTasks follows pages until ClickUp reports the last one.
func (c *Client) ListAllTasks(ctx context.Context, listID string, includeClosed bool) ([]Task, error) {
	var tasks []Task

	for page := 0; page < maxListPages; page++ {
		resp, err := c.ListTasks(ctx, listID, ListTasksRequest{Page: page, IncludeClosed: includeClosed})
		if err != nil {
			return nil, fmt.Errorf("failed to list page %d of list %s: %w", page, listID, err)
		}

		tasks = append(tasks, resp.Tasks...)

		if resp.LastPage || len(resp.Tasks) == 0 {
			return tasks, nil
		}
	}

	return tasks, fmt.Errorf("list %s has more than %d pages", listID, maxListPages)
}

func (c *Client) SearchTasks(ctx context.Context, teamID string, req SearchTasksRequest) (*TasksResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))

	for _, listID := range req.ListIDs {
		query.Add("list_ids[]", listID)
	}
	for _, status := range req.Statuses {
		query.Add("statuses[]", status)
	}
	for _, tag := range req.Tags {
		query.Add("tags[]", tag)
	}
	if req.IncludeClosed {
		query.Set("include_closed", "true")
	}
	if req.DueDateGt > 0 {
		query.Set("due_date_gt", strconv.FormatInt(req.DueDateGt, 10))
	}
	if req.DueDateLt > 0 {
		query.Set("due_date_lt", strconv.FormatInt(req.DueDateLt, 10))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/team/"+url.PathEscape(teamID)+"/task", query, nil)
	if err != nil {
		return nil, err
	}

	var resp TasksResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, nil)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decode(body, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, listID string, req CreateTaskRequest) (*Task, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("task name is required")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/list/"+url.PathEscape(listID)+"/task", nil, req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decode(body, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), nil, req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := decode(body, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/task/"+url.PathEscape(taskID), nil, nil)
	return err
}

func (c *Client) AddComment(ctx context.Context, taskID string, req CommentRequest) (*CommentResponse, error) {
	if req.CommentText == "" {
		return nil, fmt.Errorf("comment text is required")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/task/"+url.PathEscape(taskID)+"/comment", nil, req)
	if err != nil {
		return nil, err
	}

	var resp CommentResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}
