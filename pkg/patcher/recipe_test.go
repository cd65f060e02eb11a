package patcher

import (
	"context"
	"testing"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/nodes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertRecipe = `
name: Add report normalizer
workflow_id: wf1
validate: true
steps:
  - op: insert_between
    from: A
    to: B
    add:
      template: code
      name: Normalize
      position: [100, 0]
      script: |
        return $input.all().filter((item) => item.json['__FIELD__']);
      values:
        FIELD: fileId
  - op: set_parameter
    node: B
    path: options.timeout
    value: 30
  - op: replace_in_parameter
    node: B
    path: jsCode
    old: items
    new: $input.all()
  - op: set_static_data
    path: global.lastPatched
    value: "2026-10-19"
`

func TestParseRecipe(t *testing.T) {
	recipe, err := ParseRecipe([]byte(insertRecipe))
	require.NoError(t, err)

	assert.Equal(t, "Add report normalizer", recipe.Name)
	assert.Equal(t, "wf1", recipe.WorkflowID)
	assert.True(t, recipe.Validate)
	require.Len(t, recipe.Steps, 4)
	assert.Equal(t, OpInsertBetween, recipe.Steps[0].Op)
	assert.Equal(t, "add-report-normalizer", recipe.Slug())
}

func TestParseRecipe_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no steps",
			yaml:    "name: empty\nworkflow_id: wf1\n",
			wantErr: "no steps",
		},
		{
			name:    "unknown op",
			yaml:    "name: bad\nsteps:\n  - op: explode\n",
			wantErr: "unknown op",
		},
		{
			name:    "missing node",
			yaml:    "name: bad\nsteps:\n  - op: remove_node\n",
			wantErr: "node is required",
		},
		{
			name:    "insert without node spec",
			yaml:    "name: bad\nsteps:\n  - op: insert_after\n    from: A\n",
			wantErr: "add is required",
		},
		{
			name:    "unknown field",
			yaml:    "name: bad\nsteps:\n  - op: remove_node\n    node: A\n    nod: B\n",
			wantErr: "field nod not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecipe([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRecipe_Apply(t *testing.T) {
	store := newFakeStore(t)

	recipe, err := ParseRecipe([]byte(insertRecipe))
	require.NoError(t, err)

	result, err := New(PatcherDependencies{Store: store}).Patch(context.Background(), recipe.WorkflowID, recipe.Mutator(), recipe.Options(false)...)
	require.NoError(t, err)
	assert.True(t, result.Saved)

	saved := store.current(t)
	assert.Equal(t, []string{"A", "Normalize", "B"}, saved.NodeNames())
	assert.True(t, saved.Connections.HasEdge("Normalize", "B"))

	normalize, ok := saved.FindNode("Normalize")
	require.True(t, ok)
	assert.Equal(t, nodes.TypeCode, normalize.Type)
	assert.Contains(t, normalize.Parameters["jsCode"], "item.json['fileId']")

	code, _ := saved.Nodes[2].Parameter("jsCode")
	assert.Equal(t, "return $input.all();", code)

	timeout, _ := saved.Nodes[2].Parameter("options.timeout")
	assert.Equal(t, "30", timeout.(interface{ String() string }).String())

	global := saved.StaticData["global"].(map[string]any)
	assert.Equal(t, "2026-10-19", global["lastPatched"])
	assert.NotNil(t, global["lastRun"])
}

func TestRecipe_FailingStepSavesNothing(t *testing.T) {
	store := newFakeStore(t)

	recipe, err := ParseRecipe([]byte(`
name: broken
steps:
  - op: rename_node
    node: B
    new_name: Parse
  - op: disconnect
    from: A
    to: Missing
`))
	require.NoError(t, err)

	_, err = Patch(context.Background(), store, "wf1", recipe.Mutator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Equal(t, 0, store.updates)
}

func TestRecipe_DryRunOption(t *testing.T) {
	store := newFakeStore(t)

	recipe, err := ParseRecipe([]byte(`
name: remove
steps:
  - op: remove_node_bridge
    node: B
`))
	require.NoError(t, err)

	result, err := New(PatcherDependencies{Store: store}).Patch(context.Background(), "wf1", recipe.Mutator(), recipe.Options(true)...)
	require.NoError(t, err)

	assert.False(t, result.Saved)
	assert.Equal(t, []string{"B"}, result.Changes.RemovedNodes)
	assert.Equal(t, 0, store.updates)
}

func TestNodeSpec_Build(t *testing.T) {
	tests := []struct {
		name     string
		spec     NodeSpec
		wantType string
		wantErr  bool
	}{
		{
			name:     "literal",
			spec:     NodeSpec{Name: "Wait", Type: "n8n-nodes-base.wait", Parameters: map[string]any{"amount": 5}},
			wantType: "n8n-nodes-base.wait",
		},
		{
			name:    "literal without type",
			spec:    NodeSpec{Name: "Wait"},
			wantErr: true,
		},
		{
			name:     "http request",
			spec:     NodeSpec{Template: TemplateHTTPRequest, Name: "Call", Method: "POST", URL: "https://example.com"},
			wantType: nodes.TypeHTTPRequest,
		},
		{
			name:     "webhook",
			spec:     NodeSpec{Template: TemplateWebhook, Name: "Intake", WebhookPath: "Court Reports"},
			wantType: nodes.TypeWebhook,
		},
		{
			name:     "claude pdf",
			spec:     NodeSpec{Template: TemplateClaudePDF, Name: "Extract", Prompt: "court_report"},
			wantType: nodes.TypeHTTPRequest,
		},
		{
			name: "clickup create task",
			spec: NodeSpec{
				Template:   TemplateClickUpCreateTask,
				Name:       "Create Task",
				Task:       &ClickUpTask{ListID: "901", Name: "={{ $json.title }}"},
				Credential: &CredentialRef{Type: "clickUpApi", ID: "c1", Name: "ClickUp"},
			},
			wantType: nodes.TypeClickUp,
		},
		{
			name:    "clickup task without list",
			spec:    NodeSpec{Template: TemplateClickUpCreateTask, Name: "Create Task", Task: &ClickUpTask{Name: "x"}},
			wantErr: true,
		},
		{
			name:     "filter unprocessed",
			spec:     NodeSpec{Template: TemplateFilterUnprocessed, Name: "Skip Processed"},
			wantType: nodes.TypeCode,
		},
		{
			name:     "mark processed",
			spec:     NodeSpec{Template: TemplateMarkProcessed, Name: "Mark Processed", IDField: "fileId", DateField: "reportDate"},
			wantType: nodes.TypeCode,
		},
		{
			name:     "parse claude json",
			spec:     NodeSpec{Template: TemplateParseClaudeJSON, Name: "Parse Reply"},
			wantType: nodes.TypeCode,
		},
		{
			name:    "credential without id",
			spec:    NodeSpec{Template: TemplateParseClaudeJSON, Name: "Parse Reply", Credential: &CredentialRef{Type: "x"}},
			wantErr: true,
		},
		{
			name:    "code with unused value",
			spec:    NodeSpec{Template: TemplateCode, Name: "Code", Script: "return [];", Values: map[string]string{"X": "1"}},
			wantErr: true,
		},
		{
			name:    "unknown template",
			spec:    NodeSpec{Template: "ftp", Name: "Upload"},
			wantErr: true,
		},
		{
			name:    "missing name",
			spec:    NodeSpec{Template: TemplateCode},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := tt.spec.Build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantType, node.Type)
			assert.Equal(t, tt.spec.Name, node.Name)
			assert.NotEmpty(t, node.ID)
		})
	}
}

func TestNodeSpec_BuildTemplates(t *testing.T) {
	task, err := (&NodeSpec{
		Template:   TemplateClickUpCreateTask,
		Name:       "Create Task",
		ID:         "task-node",
		Task:       &ClickUpTask{TeamID: "1", SpaceID: "2", ListID: "901", Name: "={{ $json.title }}", Content: "report"},
		Credential: &CredentialRef{Type: "clickUpApi", ID: "c1", Name: "ClickUp"},
	}).Build()
	require.NoError(t, err)

	assert.Equal(t, "task-node", task.ID)
	assert.Equal(t, "901", task.Parameters["list"])
	assert.Equal(t, map[string]any{"content": "report"}, task.Parameters["additionalFields"])
	assert.Equal(t, map[string]any{"id": "c1", "name": "ClickUp"}, task.Credentials["clickUpApi"])

	filter, err := (&NodeSpec{Template: TemplateFilterUnprocessed, Name: "Skip Processed"}).Build()
	require.NoError(t, err)
	assert.Contains(t, filter.Parameters["jsCode"], "item.json['docId']")

	mark, err := (&NodeSpec{Template: TemplateMarkProcessed, Name: "Mark Processed", IDField: "fileId"}).Build()
	require.NoError(t, err)
	assert.Contains(t, mark.Parameters["jsCode"], "item.json['fileId']")
	assert.Contains(t, mark.Parameters["jsCode"], "item.json['date']")

	parse, err := (&NodeSpec{Template: TemplateParseClaudeJSON, Name: "Parse Reply"}).Build()
	require.NoError(t, err)
	assert.Equal(t, nodes.ParseClaudeJSONScript, parse.Parameters["jsCode"])
}

func TestParseRecipe_TemplatedNodes(t *testing.T) {
	recipe, err := ParseRecipe([]byte(`
name: Record processed reports
workflow_id: wf1
steps:
  - op: insert_after
    from: Webhook
    add:
      template: filter_unprocessed
      name: Skip Processed
  - op: insert_after
    from: Skip Processed
    add:
      template: clickup_create_task
      name: Create Task
      credential: {type: clickUpApi, id: c1, name: ClickUp}
      task: {list_id: "901", name: "={{ $json.name }}"}
`))
	require.NoError(t, err)
	require.Len(t, recipe.Steps, 2)

	node, err := recipe.Steps[1].Add.Build()
	require.NoError(t, err)
	assert.Equal(t, nodes.TypeClickUp, node.Type)
	assert.Contains(t, node.Credentials, "clickUpApi")
}

func TestRecipe_BackupName(t *testing.T) {
	recipe := &Recipe{Name: "Fix Court Date Parsing"}
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, "fix-court-date-parsing-wf1-20261019T083000Z.json", recipe.BackupName("wf1", at))
}
