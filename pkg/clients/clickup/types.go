package clickup

import (
	"strconv"
	"time"
)

type Status struct {
	Status string `json:"status"`
	Color  string `json:"color,omitempty"`
	Type   string `json:"type,omitempty"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type Tag struct {
	Name string `json:"name"`
}

type ListRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Priority struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
}

// Task is a ClickUp task. Dates are unix milliseconds encoded as strings.
type Task struct {
	ID          string    `json:"id"`
	CustomID    string    `json:"custom_id,omitempty"`
	Name        string    `json:"name"`
	TextContent string    `json:"text_content,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	DateCreated string    `json:"date_created"`
	DateUpdated string    `json:"date_updated,omitempty"`
	DueDate     *string   `json:"due_date"`
	StartDate   *string   `json:"start_date,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Assignees   []User    `json:"assignees,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	List        ListRef   `json:"list"`
	URL         string    `json:"url"`
}

// CreatedAt parses DateCreated. A missing value yields the zero time.
func (t *Task) CreatedAt() time.Time {
	created, _ := parseMillis(t.DateCreated)
	return created
}

// Due returns the due date and whether the task has one.
func (t *Task) Due() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}

	return parseMillis(*t.DueDate)
}

func parseMillis(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.UnixMilli(ms).UTC(), true
}

// Millis converts a time to the ClickUp wire format.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

type TasksResponse struct {
	Tasks    []Task `json:"tasks"`
	LastPage bool   `json:"last_page"`
}

type ListTasksRequest struct {
	Page          int
	IncludeClosed bool
	Archived      bool
	Subtasks      bool
	Statuses      []string
	DueDateGt     int64
	DueDateLt     int64
}

// SearchTasksRequest filters tasks across a workspace (team).
type SearchTasksRequest struct {
	Page          int
	ListIDs       []string
	Statuses      []string
	Tags          []string
	IncludeClosed bool
	DueDateGt     int64
	DueDateLt     int64
}

type CreateTaskRequest struct {
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	MarkdownDescription string   `json:"markdown_description,omitempty"`
	Status              string   `json:"status,omitempty"`
	Priority            *int     `json:"priority,omitempty"`
	DueDate             *int64   `json:"due_date,omitempty"`
	DueDateTime         bool     `json:"due_date_time,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Assignees           []int    `json:"assignees,omitempty"`
}

// UpdateTaskRequest only sends the fields that are set.
type UpdateTaskRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	DueDate     *int64  `json:"due_date,omitempty"`
}

type CommentRequest struct {
	CommentText string `json:"comment_text"`
	Notify      bool   `json:"notify_all"`
}

type CommentResponse struct {
	ID     any    `json:"id"`
	HistID string `json:"hist_id"`
	Date   int64  `json:"date"`
}
