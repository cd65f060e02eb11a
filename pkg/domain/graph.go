package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohae/deepcopy"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("node name already exists")
	ErrEdgeNotFound  = errors.New("connection not found")
)

const ConnectionTypeMain = "main"

// WorkflowGraph is the in-memory copy of an n8n workflow. The remote engine
// owns it; opsflow only fetches it, edits it and replaces it wholesale.
type WorkflowGraph struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Active      bool           `json:"active"`
	Nodes       []Node         `json:"nodes"`
	Connections Connections    `json:"connections"`
	Settings    map[string]any `json:"settings"`
	StaticData  map[string]any `json:"staticData"`
	VersionID   string         `json:"versionId,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	Tags        []WorkflowTag  `json:"tags,omitempty"`
}

type WorkflowTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkflowUpdate is the body accepted by a full-replace update. The engine
// rejects any other top-level property.
type WorkflowUpdate struct {
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections Connections    `json:"connections"`
	Settings    map[string]any `json:"settings"`
	StaticData  map[string]any `json:"staticData"`
}

func (g *WorkflowGraph) UnmarshalJSON(data []byte) error {
	type alias WorkflowGraph

	var a alias
	if err := decodeJSON(data, &a); err != nil {
		return err
	}

	*g = WorkflowGraph(a)

	return nil
}

// UpdatePayload returns the fields sent back on save. Settings and static
// data are carried verbatim so a save never resets them.
func (g *WorkflowGraph) UpdatePayload() WorkflowUpdate {
	connections := g.Connections
	if connections == nil {
		connections = Connections{}
	}

	nodes := g.Nodes
	if nodes == nil {
		nodes = []Node{}
	}

	return WorkflowUpdate{
		Name:        g.Name,
		Nodes:       nodes,
		Connections: connections,
		Settings:    g.Settings,
		StaticData:  g.StaticData,
	}
}

// Clone returns a deep copy of the graph.
func (g *WorkflowGraph) Clone() *WorkflowGraph {
	return deepcopy.Copy(g).(*WorkflowGraph)
}

func (g *WorkflowGraph) NodeIndex(name string) int {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return i
		}
	}

	return -1
}

// FindNode returns a pointer into the node list so callers can edit the node
// in place.
func (g *WorkflowGraph) FindNode(name string) (*Node, bool) {
	i := g.NodeIndex(name)
	if i < 0 {
		return nil, false
	}

	return &g.Nodes[i], true
}

func (g *WorkflowGraph) MustFindNode(name string) (*Node, error) {
	node, ok := g.FindNode(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}

	return node, nil
}

func (g *WorkflowGraph) FindNodesByType(nodeType string) []*Node {
	var nodes []*Node

	for i := range g.Nodes {
		if g.Nodes[i].Type == nodeType {
			nodes = append(nodes, &g.Nodes[i])
		}
	}

	return nodes
}

func (g *WorkflowGraph) NodeNames() []string {
	names := make([]string, len(g.Nodes))
	for i, node := range g.Nodes {
		names[i] = node.Name
	}

	return names
}

func (g *WorkflowGraph) AddNode(node Node) error {
	if g.NodeIndex(node.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, node.Name)
	}

	g.Nodes = append(g.Nodes, node)

	return nil
}

func (g *WorkflowGraph) insertNodeAt(index int, node Node) {
	g.Nodes = append(g.Nodes, Node{})
	copy(g.Nodes[index+1:], g.Nodes[index:])
	g.Nodes[index] = node
}

// RemoveNode deletes the node, its outgoing connections and every edge that
// targets it.
func (g *WorkflowGraph) RemoveNode(name string) error {
	i := g.NodeIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}

	g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
	delete(g.Connections, name)

	for _, nodeConnections := range g.Connections {
		nodeConnections.removeTarget(name)
	}

	return nil
}

// RemoveNodeAndBridge deletes the node and reconnects every upstream port
// that fed it to the node's first main output targets.
func (g *WorkflowGraph) RemoveNodeAndBridge(name string) error {
	if g.NodeIndex(name) < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}

	var downstream []Connection
	if outgoing, ok := g.Connections[name]; ok {
		main := outgoing[ConnectionTypeMain]
		if len(main) > 0 {
			downstream = append(downstream, main[0]...)
		}
	}

	type upstreamPort struct {
		source string
		port   int
	}

	var upstream []upstreamPort

	for source, nodeConnections := range g.Connections {
		if source == name {
			continue
		}

		for port, targets := range nodeConnections[ConnectionTypeMain] {
			for _, target := range targets {
				if target.Node == name {
					upstream = append(upstream, upstreamPort{source: source, port: port})
					break
				}
			}
		}
	}

	if err := g.RemoveNode(name); err != nil {
		return err
	}

	for _, up := range upstream {
		for _, target := range downstream {
			if target.Node == up.source || target.Node == name {
				continue
			}

			g.Connections.add(up.source, ConnectionTypeMain, up.port, target)
		}
	}

	return nil
}

// RenameNode renames a node and rewrites every connection key and reference.
// Expressions inside parameters that mention the old name are left alone.
func (g *WorkflowGraph) RenameNode(oldName, newName string) error {
	node, ok := g.FindNode(oldName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, oldName)
	}

	if oldName == newName {
		return nil
	}

	if g.NodeIndex(newName) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, newName)
	}

	node.Name = newName

	if outgoing, ok := g.Connections[oldName]; ok {
		g.Connections[newName] = outgoing
		delete(g.Connections, oldName)
	}

	for _, nodeConnections := range g.Connections {
		for _, ports := range nodeConnections {
			for p := range ports {
				for i := range ports[p] {
					if ports[p][i].Node == oldName {
						ports[p][i].Node = newName
					}
				}
			}
		}
	}

	return nil
}

// Connect adds a main edge from the given output port of one node to the
// given input of another. Adding an existing edge is a no-op.
func (g *WorkflowGraph) Connect(from string, output int, to string, input int) error {
	if g.NodeIndex(from) < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}

	if g.NodeIndex(to) < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, to)
	}

	if output < 0 || input < 0 {
		return fmt.Errorf("invalid port %d -> %d", output, input)
	}

	g.ensureConnections()
	g.Connections.add(from, ConnectionTypeMain, output, Connection{Node: to, Type: ConnectionTypeMain, Index: input})

	return nil
}

// Disconnect removes every main edge from one node to another and reports
// how many were removed.
func (g *WorkflowGraph) Disconnect(from, to string) int {
	nodeConnections, ok := g.Connections[from]
	if !ok {
		return 0
	}

	removed := 0

	main := nodeConnections[ConnectionTypeMain]
	for p := range main {
		kept := main[p][:0]
		for _, target := range main[p] {
			if target.Node == to {
				removed++
				continue
			}
			kept = append(kept, target)
		}
		main[p] = kept
	}

	return removed
}

// InsertBetween splices node into the existing edge from -> to, so the graph
// becomes from -> node -> to with no direct edge left. The new node is placed
// in the node list right after from.
func (g *WorkflowGraph) InsertBetween(from, to string, node Node) error {
	fromIndex := g.NodeIndex(from)
	if fromIndex < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}

	if g.NodeIndex(to) < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, to)
	}

	if g.NodeIndex(node.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, node.Name)
	}

	main := g.Connections[from][ConnectionTypeMain]

	var inputs []int

	for p := range main {
		for i := range main[p] {
			if main[p][i].Node != to {
				continue
			}

			if !containsInt(inputs, main[p][i].Index) {
				inputs = append(inputs, main[p][i].Index)
			}

			main[p][i] = Connection{Node: node.Name, Type: ConnectionTypeMain, Index: 0}
		}

		main[p] = dedupeConnections(main[p])
	}

	if len(inputs) == 0 {
		return fmt.Errorf("%w: %q -> %q", ErrEdgeNotFound, from, to)
	}

	g.insertNodeAt(fromIndex+1, node)

	for _, input := range inputs {
		g.Connections.add(node.Name, ConnectionTypeMain, 0, Connection{Node: to, Type: ConnectionTypeMain, Index: input})
	}

	return nil
}

// InsertAfter places node directly after from: node takes over every target
// of from's first main output and from feeds only node.
func (g *WorkflowGraph) InsertAfter(from string, node Node) error {
	fromIndex := g.NodeIndex(from)
	if fromIndex < 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}

	if g.NodeIndex(node.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, node.Name)
	}

	g.ensureConnections()

	var previous []Connection
	if main := g.Connections[from][ConnectionTypeMain]; len(main) > 0 {
		previous = main[0]
	}

	g.insertNodeAt(fromIndex+1, node)

	nodeConnections := g.Connections[from]
	if nodeConnections == nil {
		nodeConnections = NodeConnections{}
		g.Connections[from] = nodeConnections
	}

	main := nodeConnections[ConnectionTypeMain]
	if len(main) == 0 {
		main = make([][]Connection, 1)
	}
	main[0] = []Connection{{Node: node.Name, Type: ConnectionTypeMain, Index: 0}}
	nodeConnections[ConnectionTypeMain] = main

	for _, target := range previous {
		g.Connections.add(node.Name, ConnectionTypeMain, 0, target)
	}

	return nil
}

func (g *WorkflowGraph) ensureConnections() {
	if g.Connections == nil {
		g.Connections = Connections{}
	}
}

func containsInt(values []int, v int) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}

	return false
}

func dedupeConnections(targets []Connection) []Connection {
	seen := make(map[Connection]bool, len(targets))
	out := targets[:0]

	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}

	return out
}

func decodeJSON(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	return decoder.Decode(v)
}
