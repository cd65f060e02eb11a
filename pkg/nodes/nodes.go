// Package nodes constructs literal n8n nodes. Script and body parameters are
// opaque text: they are uploaded as configuration and never run here.
package nodes

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/prompts"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	TypeCode        = "n8n-nodes-base.code"
	TypeHTTPRequest = "n8n-nodes-base.httpRequest"
	TypeWebhook     = "n8n-nodes-base.webhook"
	TypeClickUp     = "n8n-nodes-base.clickUp"
)

const AnthropicMessagesURL = "https://api.anthropic.com/v1/messages"

type Option func(*domain.Node)

func WithPosition(x, y float64) Option {
	return func(n *domain.Node) {
		n.Position = []float64{x, y}
	}
}

func WithID(id string) Option {
	return func(n *domain.Node) {
		n.ID = id
	}
}

// WithCredential references an existing n8n credential by type, id and name.
func WithCredential(credentialType, id, name string) Option {
	return func(n *domain.Node) {
		if n.Credentials == nil {
			n.Credentials = map[string]any{}
		}
		n.Credentials[credentialType] = map[string]any{"id": id, "name": name}
	}
}

func newNode(name, nodeType string, typeVersion float64, parameters map[string]any, opts []Option) domain.Node {
	node := domain.Node{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        nodeType,
		TypeVersion: typeVersion,
		Position:    []float64{0, 0},
		Parameters:  parameters,
	}

	for _, opt := range opts {
		opt(&node)
	}

	return node
}

// Code builds a JavaScript Code node running once for all items.
func Code(name, jsCode string, opts ...Option) domain.Node {
	return newNode(name, TypeCode, 2, map[string]any{
		"jsCode": jsCode,
	}, opts)
}

type Header struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

type HTTPRequestConfig struct {
	Method   string
	URL      string
	Headers  []Header
	JSONBody string
	// Authentication is copied into the node as is ("none",
	// "genericCredentialType", "predefinedCredentialType").
	Authentication  string
	GenericAuthType string
	TimeoutMillis   int
}

func HTTPRequest(name string, config HTTPRequestConfig, opts ...Option) domain.Node {
	method := strings.ToUpper(config.Method)
	if method == "" {
		method = "GET"
	}

	parameters := map[string]any{
		"method":  method,
		"url":     config.URL,
		"options": map[string]any{},
	}

	if config.Authentication != "" && config.Authentication != "none" {
		parameters["authentication"] = config.Authentication
	}

	if config.GenericAuthType != "" {
		parameters["genericAuthType"] = config.GenericAuthType
	}

	if len(config.Headers) > 0 {
		headers := make([]any, len(config.Headers))
		for i, h := range config.Headers {
			headers[i] = map[string]any{"name": h.Name, "value": h.Value}
		}

		parameters["sendHeaders"] = true
		parameters["headerParameters"] = map[string]any{"parameters": headers}
	}

	if config.JSONBody != "" {
		parameters["sendBody"] = true
		parameters["specifyBody"] = "json"
		parameters["jsonBody"] = config.JSONBody
	}

	if config.TimeoutMillis > 0 {
		parameters["options"] = map[string]any{"timeout": config.TimeoutMillis}
	}

	return newNode(name, TypeHTTPRequest, 4.2, parameters, opts)
}

// Webhook builds a trigger node. The path is slugified and a webhook id is
// generated the way the n8n editor does.
func Webhook(name, path, method string, opts ...Option) domain.Node {
	if method == "" {
		method = "POST"
	}

	if path == "" {
		path = name
	}

	node := newNode(name, TypeWebhook, 2, map[string]any{
		"httpMethod":   strings.ToUpper(method),
		"path":         WebhookPath(path),
		"responseMode": "onReceived",
		"options":      map[string]any{},
	}, opts)

	node.Extra = map[string]json.RawMessage{
		"webhookId": json.RawMessage(strconv.Quote(uuid.NewString())),
	}

	return node
}

// WebhookPath normalizes a free-form name into a webhook path segment.
func WebhookPath(name string) string {
	return slug.Make(name)
}

type ClickUpTaskConfig struct {
	TeamID   string
	SpaceID  string
	ListID   string
	TaskName string
	Content  string
	DueDate  string
}

// ClickUpCreateTask builds a ClickUp node creating a task in a folderless list.
func ClickUpCreateTask(name string, config ClickUpTaskConfig, opts ...Option) domain.Node {
	additional := map[string]any{}
	if config.Content != "" {
		additional["content"] = config.Content
	}
	if config.DueDate != "" {
		additional["dueDate"] = config.DueDate
	}

	return newNode(name, TypeClickUp, 1, map[string]any{
		"operation":        "create",
		"team":             config.TeamID,
		"space":            config.SpaceID,
		"folderless":       true,
		"list":             config.ListID,
		"name":             config.TaskName,
		"additionalFields": additional,
	}, opts)
}

// ClaudePDF builds an HTTP Request node posting a PDF document prompt to the
// Anthropic Messages API. The API key comes from an n8n header credential.
func ClaudePDF(name string, prompt prompts.DocumentPrompt, opts ...Option) (domain.Node, error) {
	body, err := prompt.Expression()
	if err != nil {
		return domain.Node{}, err
	}

	return HTTPRequest(name, HTTPRequestConfig{
		Method: "POST",
		URL:    AnthropicMessagesURL,
		Headers: []Header{
			{Name: "anthropic-version", Value: "2023-06-01"},
			{Name: "content-type", Value: "application/json"},
		},
		JSONBody:        body,
		Authentication:  "genericCredentialType",
		GenericAuthType: "httpHeaderAuth",
		TimeoutMillis:   120000,
	}, opts...), nil
}

var placeholderPattern = regexp.MustCompile(`__[A-Z][A-Z0-9_]*__`)

// RenderScript substitutes __KEY__ placeholders in opaque script text. Every
// value must be used and no placeholder may be left over.
func RenderScript(script string, values map[string]string) (string, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		placeholder := "__" + key + "__"
		if !strings.Contains(script, placeholder) {
			return "", fmt.Errorf("placeholder %s not found in script", placeholder)
		}
		script = strings.ReplaceAll(script, placeholder, values[key])
	}

	if leftover := placeholderPattern.FindAllString(script, -1); len(leftover) > 0 {
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(leftover, ", "))
	}

	return script, nil
}
