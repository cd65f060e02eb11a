package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Connections is the adjacency list of a graph keyed by source node name.
type Connections map[string]NodeConnections

// NodeConnections maps a connection type ("main", "ai_tool", ...) to the
// node's output ports; each port holds an ordered list of targets.
type NodeConnections map[string][][]Connection

type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (nc NodeConnections) Main() [][]Connection {
	return nc[ConnectionTypeMain]
}

func (nc NodeConnections) removeTarget(name string) {
	for connectionType, ports := range nc {
		for p := range ports {
			if ports[p] == nil {
				continue
			}

			kept := ports[p][:0]
			for _, target := range ports[p] {
				if target.Node != name {
					kept = append(kept, target)
				}
			}
			ports[p] = kept
		}
		nc[connectionType] = ports
	}
}

func (c Connections) add(source, connectionType string, port int, target Connection) {
	nodeConnections, ok := c[source]
	if !ok {
		nodeConnections = NodeConnections{}
		c[source] = nodeConnections
	}

	ports := nodeConnections[connectionType]
	for len(ports) <= port {
		ports = append(ports, []Connection{})
	}

	for _, existing := range ports[port] {
		if existing == target {
			nodeConnections[connectionType] = ports
			return
		}
	}

	ports[port] = append(ports[port], target)
	nodeConnections[connectionType] = ports
}

// Targets lists the distinct node names a source feeds on any connection type.
func (c Connections) Targets(source string) []string {
	seen := map[string]bool{}
	var targets []string

	for _, ports := range c[source] {
		for _, port := range ports {
			for _, target := range port {
				if !seen[target.Node] {
					seen[target.Node] = true
					targets = append(targets, target.Node)
				}
			}
		}
	}

	return targets
}

// HasEdge reports whether source feeds target on a main output.
func (c Connections) HasEdge(source, target string) bool {
	for _, port := range c[source][ConnectionTypeMain] {
		for _, conn := range port {
			if conn.Node == target {
				return true
			}
		}
	}

	return false
}

type DanglingReference struct {
	Source string
	Target string
}

func (d DanglingReference) String() string {
	if d.Target == "" {
		return fmt.Sprintf("connections key %q is not a node", d.Source)
	}

	return fmt.Sprintf("%q -> %q: target is not a node", d.Source, d.Target)
}

type ConnectionIntegrityError struct {
	Dangling []DanglingReference
}

func (e *ConnectionIntegrityError) Error() string {
	parts := make([]string, len(e.Dangling))
	for i, d := range e.Dangling {
		parts[i] = d.String()
	}

	return "dangling connections: " + strings.Join(parts, "; ")
}

// DanglingReferences lists connection keys and targets that do not name a
// node of the graph, sorted for stable output.
func (g *WorkflowGraph) DanglingReferences() []DanglingReference {
	names := make(map[string]bool, len(g.Nodes))
	for _, node := range g.Nodes {
		names[node.Name] = true
	}

	var dangling []DanglingReference

	for source, nodeConnections := range g.Connections {
		if !names[source] {
			dangling = append(dangling, DanglingReference{Source: source})
		}

		for _, ports := range nodeConnections {
			for _, port := range ports {
				for _, target := range port {
					if !names[target.Node] {
						dangling = append(dangling, DanglingReference{Source: source, Target: target.Node})
					}
				}
			}
		}
	}

	sort.Slice(dangling, func(i, j int) bool {
		if dangling[i].Source != dangling[j].Source {
			return dangling[i].Source < dangling[j].Source
		}
		return dangling[i].Target < dangling[j].Target
	})

	return dangling
}

// ValidateConnections checks referential integrity of the connections map.
func (g *WorkflowGraph) ValidateConnections() error {
	dangling := g.DanglingReferences()
	if len(dangling) == 0 {
		return nil
	}

	return &ConnectionIntegrityError{Dangling: dangling}
}
