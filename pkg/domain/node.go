package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one configured step of a workflow graph. Fields opsflow never edits
// (disabled, webhookId, notes, onError, ...) are kept in Extra and written
// back unchanged.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion"`
	Position    []float64      `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var nodeKnownFields = map[string]bool{
	"id":          true,
	"name":        true,
	"type":        true,
	"typeVersion": true,
	"position":    true,
	"parameters":  true,
	"credentials": true,
}

func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node

	var a alias
	if err := decodeJSON(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		if nodeKnownFields[key] {
			continue
		}

		if a.Extra == nil {
			a.Extra = make(map[string]json.RawMessage)
		}
		a.Extra[key] = value
	}

	*n = Node(a)

	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(n.Extra)+len(nodeKnownFields))

	for key, value := range n.Extra {
		fields[key] = value
	}

	parameters := n.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	position := n.Position
	if position == nil {
		position = []float64{0, 0}
	}

	fields["id"] = n.ID
	fields["name"] = n.Name
	fields["type"] = n.Type
	fields["typeVersion"] = n.TypeVersion
	fields["position"] = position
	fields["parameters"] = parameters

	// An empty object fetched from n8n is sent back as an empty object.
	if n.Credentials != nil {
		fields["credentials"] = n.Credentials
	}

	return json.Marshal(fields)
}

// Parameter reads a dotted path ("options.timeout") from the node parameters.
func (n *Node) Parameter(path string) (any, bool) {
	var current any = n.Parameters

	for _, key := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// SetParameter writes a dotted path, creating intermediate objects.
func (n *Node) SetParameter(path string, value any) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		return fmt.Errorf("empty parameter path")
	}

	if n.Parameters == nil {
		n.Parameters = map[string]any{}
	}

	current := n.Parameters
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
			return fmt.Errorf("parameter %q of node %q is not an object", key, n.Name)
		}
		current = child
	}

	current[keys[len(keys)-1]] = value

	return nil
}

// ReplaceInParameter does a literal replacement inside a string parameter,
// typically embedded script text. It fails when old does not occur.
func (n *Node) ReplaceInParameter(path, old, replacement string) (int, error) {
	value, ok := n.Parameter(path)
	if !ok {
		return 0, fmt.Errorf("parameter %q not found on node %q", path, n.Name)
	}

	text, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("parameter %q of node %q is not a string", path, n.Name)
	}

	count := strings.Count(text, old)
	if count == 0 {
		return 0, fmt.Errorf("text not found in parameter %q of node %q", path, n.Name)
	}

	return count, n.SetParameter(path, strings.ReplaceAll(text, old, replacement))
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	return strings.Split(path, ".")
}

// SetParameter edits a parameter of the named node.
func (g *WorkflowGraph) SetParameter(nodeName, path string, value any) error {
	node, err := g.MustFindNode(nodeName)
	if err != nil {
		return err
	}

	return node.SetParameter(path, value)
}

func (g *WorkflowGraph) ReplaceInParameter(nodeName, path, old, replacement string) (int, error) {
	node, err := g.MustFindNode(nodeName)
	if err != nil {
		return 0, err
	}

	return node.ReplaceInParameter(path, old, replacement)
}
