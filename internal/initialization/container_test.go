package initialization

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit/mcptest"
	"github.com/angelsbailbonds/opsflow/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_RequiresConfig(t *testing.T) {
	container := NewContainer(&config.Config{})

	_, err := container.N8N()
	assert.ErrorContains(t, err, "N8N_API_KEY, N8N_BASE_URL")

	_, err = container.ClickUp()
	assert.ErrorContains(t, err, "CLICKUP_API_TOKEN")

	_, err = container.SessionLogger()
	assert.ErrorContains(t, err, "CLICKUP_SESSION_TASK_ID")

	_, err = container.Google(context.Background())
	assert.ErrorContains(t, err, "GOOGLE_CLIENT_ID")

	_, err = container.MCPServer(context.Background(), "jira")
	assert.ErrorContains(t, err, `unknown mcp server "jira"`)
}

func TestContainer_CanvaWithoutToken(t *testing.T) {
	container := NewContainer(&config.Config{
		CanvaClientID:     "id",
		CanvaClientSecret: "secret",
		CanvaTokenFile:    t.TempDir() + "/canva_token.json",
	})

	_, err := container.Canva(context.Background())
	assert.ErrorContains(t, err, "opsflow auth")
}

func TestContainer_N8NMCPServer(t *testing.T) {
	container := NewContainer(&config.Config{N8NBaseURL: "https://n8n.test", N8NAPIKey: "key"})

	server, err := container.MCPServer(context.Background(), MCPServerN8N)
	require.NoError(t, err)

	names := mcptest.ToolNames(t, mcptest.Connect(t, server))
	assert.Contains(t, names, "set_node_parameter")
	assert.Contains(t, names, "list_workflows")
}

func TestContainer_Notifier(t *testing.T) {
	notifier, err := NewContainer(&config.Config{}).Notifier()
	require.NoError(t, err)
	assert.IsType(t, notify.Nop{}, notifier)

	_, err = NewContainer(&config.Config{SlackBotToken: "xoxb"}).Notifier()
	assert.ErrorIs(t, err, notify.ErrNoChannel)
}

func TestContainer_WebhookServerWithoutServices(t *testing.T) {
	app, err := NewContainer(&config.Config{}).WebhookServer(true)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clickup", strings.NewReader(`{"event":"taskCreated","task_id":"t1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
