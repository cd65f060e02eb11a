package patcher

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/nodes"
	"github.com/angelsbailbonds/opsflow/pkg/prompts"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

const (
	OpSetParameter       = "set_parameter"
	OpReplaceInParameter = "replace_in_parameter"
	OpAddNode            = "add_node"
	OpRemoveNode         = "remove_node"
	OpRemoveNodeBridge   = "remove_node_bridge"
	OpRenameNode         = "rename_node"
	OpInsertBetween      = "insert_between"
	OpInsertAfter        = "insert_after"
	OpConnect            = "connect"
	OpDisconnect         = "disconnect"
	OpSetStaticData      = "set_static_data"
)

const (
	TemplateCode        = "code"
	TemplateHTTPRequest = "http_request"
	TemplateWebhook     = "webhook"
	TemplateClaudePDF   = "claude_pdf"

	TemplateClickUpCreateTask = "clickup_create_task"
	TemplateFilterUnprocessed = "filter_unprocessed"
	TemplateMarkProcessed     = "mark_processed"
	TemplateParseClaudeJSON   = "parse_claude_json"
)

// Field names the backfill webhook sends, used when a recipe leaves them out.
const (
	defaultIDField   = "docId"
	defaultDateField = "date"
)

// Recipe is a declarative list of graph edits applied to one workflow.
type Recipe struct {
	Name       string `yaml:"name"`
	WorkflowID string `yaml:"workflow_id"`
	Validate   bool   `yaml:"validate"`
	Steps      []Step `yaml:"steps"`
}

type Step struct {
	Op string `yaml:"op"`

	// Node is the name of the node the step targets.
	Node    string `yaml:"node"`
	Path    string `yaml:"path"`
	Value   any    `yaml:"value"`
	Old     string `yaml:"old"`
	New     string `yaml:"new"`
	NewName string `yaml:"new_name"`

	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Output int    `yaml:"output"`
	Input  int    `yaml:"input"`

	// Add is the node inserted by add_node, insert_between and insert_after.
	Add *NodeSpec `yaml:"add"`
}

// NodeSpec describes a node either literally or through a template.
type NodeSpec struct {
	Template    string         `yaml:"template"`
	Name        string         `yaml:"name"`
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"`
	TypeVersion float64        `yaml:"type_version"`
	Position    []float64      `yaml:"position"`
	Parameters  map[string]any `yaml:"parameters"`
	Credentials map[string]any `yaml:"credentials"`

	// Credential points at an existing n8n credential and works with every
	// template.
	Credential *CredentialRef `yaml:"credential"`

	// code
	Script string            `yaml:"script"`
	Values map[string]string `yaml:"values"`

	// http_request
	Method  string         `yaml:"method"`
	URL     string         `yaml:"url"`
	Headers []nodes.Header `yaml:"headers"`
	Body    string         `yaml:"body"`

	// webhook
	WebhookPath string `yaml:"webhook_path"`

	// claude_pdf: prompt is "court_report", "marketing_summary" or literal text
	Prompt string `yaml:"prompt"`
	System string `yaml:"system"`
	Data   string `yaml:"data"`

	// clickup_create_task
	Task *ClickUpTask `yaml:"task"`

	// filter_unprocessed, mark_processed
	IDField   string `yaml:"id_field"`
	DateField string `yaml:"date_field"`
}

type CredentialRef struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type ClickUpTask struct {
	TeamID  string `yaml:"team_id"`
	SpaceID string `yaml:"space_id"`
	ListID  string `yaml:"list_id"`
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
	DueDate string `yaml:"due_date"`
}

func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}

	return ParseRecipe(data)
}

func ParseRecipe(data []byte) (*Recipe, error) {
	var recipe Recipe

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&recipe); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}

	if err := recipe.check(); err != nil {
		return nil, err
	}

	return &recipe, nil
}

func (r *Recipe) check() error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("recipe %q has no steps", r.Name)
	}

	for i, step := range r.Steps {
		if err := step.check(); err != nil {
			return fmt.Errorf("recipe %q step %d (%s): %w", r.Name, i+1, step.Op, err)
		}
	}

	return nil
}

func (s Step) check() error {
	require := func(fields map[string]string) error {
		for name, value := range fields {
			if value == "" {
				return fmt.Errorf("%s is required", name)
			}
		}
		return nil
	}

	switch s.Op {
	case OpSetParameter:
		return require(map[string]string{"node": s.Node, "path": s.Path})
	case OpReplaceInParameter:
		return require(map[string]string{"node": s.Node, "path": s.Path, "old": s.Old})
	case OpRemoveNode, OpRemoveNodeBridge:
		return require(map[string]string{"node": s.Node})
	case OpRenameNode:
		return require(map[string]string{"node": s.Node, "new_name": s.NewName})
	case OpConnect, OpDisconnect:
		return require(map[string]string{"from": s.From, "to": s.To})
	case OpSetStaticData:
		return require(map[string]string{"path": s.Path})
	case OpAddNode, OpInsertAfter, OpInsertBetween:
		if s.Add == nil {
			return fmt.Errorf("add is required")
		}
		if s.Op == OpInsertAfter {
			return require(map[string]string{"from": s.From})
		}
		if s.Op == OpInsertBetween {
			return require(map[string]string{"from": s.From, "to": s.To})
		}
		return nil
	default:
		return fmt.Errorf("unknown op")
	}
}

// Slug is a filesystem-safe form of the recipe name.
func (r *Recipe) Slug() string {
	if r.Name == "" {
		return "recipe"
	}
	return slug.Make(r.Name)
}

// BackupName names the before-snapshot file written ahead of a save.
func (r *Recipe) BackupName(workflowID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s.json", r.Slug(), slug.Make(workflowID), at.UTC().Format("20060102T150405Z"))
}

func (r *Recipe) Options(dryRun bool) []Option {
	opts := []Option{WithDryRun(dryRun)}
	if r.Validate {
		opts = append(opts, WithValidation())
	}

	return opts
}

// Mutator applies every step in order. The first failing step aborts the
// whole patch.
func (r *Recipe) Mutator() Mutator {
	mutators := make([]Mutator, len(r.Steps))
	for i, step := range r.Steps {
		mutators[i] = step.mutator()
	}

	return Chain(mutators...)
}

func (s Step) mutator() Mutator {
	return func(graph *domain.WorkflowGraph) error {
		switch s.Op {
		case OpSetParameter:
			return graph.SetParameter(s.Node, s.Path, s.Value)

		case OpReplaceInParameter:
			_, err := graph.ReplaceInParameter(s.Node, s.Path, s.Old, s.New)
			return err

		case OpRemoveNode:
			return graph.RemoveNode(s.Node)

		case OpRemoveNodeBridge:
			return graph.RemoveNodeAndBridge(s.Node)

		case OpRenameNode:
			return graph.RenameNode(s.Node, s.NewName)

		case OpConnect:
			return graph.Connect(s.From, s.Output, s.To, s.Input)

		case OpDisconnect:
			if graph.Disconnect(s.From, s.To) == 0 {
				return fmt.Errorf("%w: %q -> %q", domain.ErrEdgeNotFound, s.From, s.To)
			}
			return nil

		case OpSetStaticData:
			if graph.StaticData == nil {
				graph.StaticData = map[string]any{}
			}
			return setNested(graph.StaticData, strings.Split(s.Path, "."), s.Value)

		case OpAddNode, OpInsertAfter, OpInsertBetween:
			node, err := s.Add.Build()
			if err != nil {
				return err
			}

			switch s.Op {
			case OpInsertAfter:
				return graph.InsertAfter(s.From, node)
			case OpInsertBetween:
				return graph.InsertBetween(s.From, s.To, node)
			default:
				return graph.AddNode(node)
			}
		}

		return fmt.Errorf("unknown op %q", s.Op)
	}
}

// Build turns the spec into a node with a fresh id.
func (n *NodeSpec) Build() (domain.Node, error) {
	if n.Name == "" {
		return domain.Node{}, fmt.Errorf("node name is required")
	}

	var opts []nodes.Option
	if len(n.Position) == 2 {
		opts = append(opts, nodes.WithPosition(n.Position[0], n.Position[1]))
	}

	if n.ID != "" {
		opts = append(opts, nodes.WithID(n.ID))
	}

	if n.Credential != nil {
		if n.Credential.Type == "" || n.Credential.ID == "" {
			return domain.Node{}, fmt.Errorf("node %q: credential needs a type and an id", n.Name)
		}
		opts = append(opts, nodes.WithCredential(n.Credential.Type, n.Credential.ID, n.Credential.Name))
	}

	var node domain.Node

	switch n.Template {
	case "":
		if n.Type == "" {
			return domain.Node{}, fmt.Errorf("node %q needs a type or a template", n.Name)
		}

		typeVersion := n.TypeVersion
		if typeVersion == 0 {
			typeVersion = 1
		}

		parameters := n.Parameters
		if parameters == nil {
			parameters = map[string]any{}
		}

		node = nodes.Code(n.Name, "", opts...)
		node.Type = n.Type
		node.TypeVersion = typeVersion
		node.Parameters = parameters

	case TemplateCode:
		script := n.Script
		if len(n.Values) > 0 {
			rendered, err := nodes.RenderScript(script, n.Values)
			if err != nil {
				return domain.Node{}, fmt.Errorf("node %q: %w", n.Name, err)
			}
			script = rendered
		}
		node = nodes.Code(n.Name, script, opts...)

	case TemplateHTTPRequest:
		node = nodes.HTTPRequest(n.Name, nodes.HTTPRequestConfig{
			Method:   n.Method,
			URL:      n.URL,
			Headers:  n.Headers,
			JSONBody: n.Body,
		}, opts...)

	case TemplateWebhook:
		node = nodes.Webhook(n.Name, n.WebhookPath, n.Method, opts...)

	case TemplateClaudePDF:
		built, err := nodes.ClaudePDF(n.Name, n.prompt(), opts...)
		if err != nil {
			return domain.Node{}, fmt.Errorf("node %q: %w", n.Name, err)
		}
		node = built

	case TemplateClickUpCreateTask:
		if n.Task == nil || n.Task.ListID == "" || n.Task.Name == "" {
			return domain.Node{}, fmt.Errorf("node %q: task needs a list_id and a name", n.Name)
		}
		node = nodes.ClickUpCreateTask(n.Name, nodes.ClickUpTaskConfig{
			TeamID:   n.Task.TeamID,
			SpaceID:  n.Task.SpaceID,
			ListID:   n.Task.ListID,
			TaskName: n.Task.Name,
			Content:  n.Task.Content,
			DueDate:  n.Task.DueDate,
		}, opts...)

	case TemplateFilterUnprocessed:
		built, err := nodes.FilterUnprocessed(n.Name, withDefault(n.IDField, defaultIDField), opts...)
		if err != nil {
			return domain.Node{}, fmt.Errorf("node %q: %w", n.Name, err)
		}
		node = built

	case TemplateMarkProcessed:
		built, err := nodes.MarkProcessed(n.Name,
			withDefault(n.IDField, defaultIDField),
			withDefault(n.DateField, defaultDateField), opts...)
		if err != nil {
			return domain.Node{}, fmt.Errorf("node %q: %w", n.Name, err)
		}
		node = built

	case TemplateParseClaudeJSON:
		node = nodes.Code(n.Name, nodes.ParseClaudeJSONScript, opts...)

	default:
		return domain.Node{}, fmt.Errorf("unknown node template %q", n.Template)
	}

	for credentialType, value := range n.Credentials {
		if node.Credentials == nil {
			node.Credentials = map[string]any{}
		}
		node.Credentials[credentialType] = value
	}

	return node, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (n *NodeSpec) prompt() prompts.DocumentPrompt {
	var prompt prompts.DocumentPrompt

	switch n.Prompt {
	case "court_report":
		prompt = prompts.CourtReport()
	case "marketing_summary":
		prompt = prompts.MarketingSummary()
	default:
		prompt = prompts.DocumentPrompt{Prompt: n.Prompt}
	}

	if n.System != "" {
		prompt.System = n.System
	}

	if n.Data != "" {
		prompt.DocumentData = n.Data
	}

	return prompt
}

func setNested(target map[string]any, keys []string, value any) error {
	current := target

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key]
		if !ok || next == nil {
			child := map[string]any{}
			current[key] = child
			current = child
			continue
		}

		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("static data key %q is not an object", key)
		}
		current = child
	}

	current[keys[len(keys)-1]] = value

	return nil
}
