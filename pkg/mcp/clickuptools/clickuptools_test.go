package clickuptools

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit/mcptest"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskJSON = `{"id": "t1", "name": "Court reminder: Smith", "status": {"status": "open"}, "date_created": "1760000000000", "due_date": "1760832000000", "list": {"id": "l1", "name": "Reminders"}, "url": "https://app.clickup.com/t/t1"}`

func newSession(t *testing.T, teamID string, handler http.HandlerFunc) *mcp.ClientSession {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := clickup.NewClient(
		clickup.WithBaseURL(server.URL),
		clickup.WithToken("pk_test"),
		clickup.WithRetry(1, time.Millisecond),
	)

	return mcptest.Connect(t, NewServer(Dependencies{Client: client, TeamID: teamID}, "test"))
}

func TestListTasks(t *testing.T) {
	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list/l1/task", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		io.WriteString(w, `{"tasks": [`+taskJSON+`], "last_page": false}`)
	})

	text, isErr := mcptest.Call(t, session, "list_tasks", map[string]any{"list_id": "l1", "page": 1})
	require.False(t, isErr, text)

	var out struct {
		Tasks    []TaskSummary `json:"tasks"`
		LastPage bool          `json:"last_page"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))

	require.Len(t, out.Tasks, 1)
	assert.Equal(t, TaskSummary{
		ID:     "t1",
		Name:   "Court reminder: Smith",
		Status: "open",
		Due:    "2025-10-19",
		List:   "Reminders",
		URL:    "https://app.clickup.com/t/t1",
	}, out.Tasks[0])
	assert.False(t, out.LastPage)
}

func TestGetTask_NotFound(t *testing.T) {
	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"err": "Task not found, deleted", "ECODE": "ITEM_013"}`)
	})

	text, isErr := mcptest.Call(t, session, "get_task", map[string]any{"task_id": "gone"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Task not found")
}

func TestCreateTask(t *testing.T) {
	var body map[string]any

	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/list/l1/task", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, taskJSON)
	})

	text, isErr := mcptest.Call(t, session, "create_task", map[string]any{
		"list_id":  "l1",
		"name":     "Court reminder: Smith",
		"due_date": "2025-10-19",
		"priority": 2,
	})
	require.False(t, isErr, text)

	assert.Equal(t, "Court reminder: Smith", body["name"])
	assert.EqualValues(t, 2, body["priority"])
	assert.EqualValues(t, time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC).UnixMilli(), body["due_date"])
	assert.Contains(t, text, `"id": "t1"`)

	text, isErr = mcptest.Call(t, session, "create_task", map[string]any{"list_id": "l1", "name": "x", "due_date": "tomorrow"})
	assert.True(t, isErr)
	assert.Contains(t, text, "not YYYY-MM-DD")
}

func TestUpdateTask_SendsOnlySetFields(t *testing.T) {
	var body map[string]any

	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task/t1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, taskJSON)
	})

	text, isErr := mcptest.Call(t, session, "update_task", map[string]any{"task_id": "t1", "status": "complete"})
	require.False(t, isErr, text)

	assert.Equal(t, map[string]any{"status": "complete"}, body)
}

func TestSearchTasks(t *testing.T) {
	session := newSession(t, "team1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/team/team1/task", r.URL.Path)
		assert.Equal(t, []string{"l1"}, r.URL.Query()["list_ids[]"])
		io.WriteString(w, `{"tasks": [`+taskJSON+`, {"id": "t2", "name": "Weekly blog", "status": {"status": "open"}}]}`)
	})

	text, isErr := mcptest.Call(t, session, "search_tasks", map[string]any{"query": "SMITH", "list_ids": []string{"l1"}})
	require.False(t, isErr, text)

	assert.Contains(t, text, "t1")
	assert.NotContains(t, text, "Weekly blog")
}

func TestSearchTasks_RequiresTeam(t *testing.T) {
	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	text, isErr := mcptest.Call(t, session, "search_tasks", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, ErrNoTeam.Error())
}

func TestAddComment(t *testing.T) {
	session := newSession(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/t1/comment", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Called the client", body["comment_text"])

		io.WriteString(w, `{"id": 90120, "hist_id": "h1", "date": 1760000000000}`)
	})

	text, isErr := mcptest.Call(t, session, "add_comment", map[string]any{"task_id": "t1", "text": "Called the client"})
	require.False(t, isErr, text)
	assert.Equal(t, "comment 90120 added to task t1", text)
}
