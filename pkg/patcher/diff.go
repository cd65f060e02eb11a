package patcher

import (
	"reflect"
	"sort"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
)

type ChangeSummary struct {
	AddedNodes         []string
	RemovedNodes       []string
	ChangedNodes       []string
	ConnectionsChanged bool
	SettingsChanged    bool
	StaticDataChanged  bool
	NameChanged        bool
}

func (c ChangeSummary) Empty() bool {
	return len(c.AddedNodes) == 0 &&
		len(c.RemovedNodes) == 0 &&
		len(c.ChangedNodes) == 0 &&
		!c.ConnectionsChanged &&
		!c.SettingsChanged &&
		!c.StaticDataChanged &&
		!c.NameChanged
}

// Diff compares two versions of a graph node by node. Nodes are matched by
// id so a rename shows up as a change, not as add plus remove.
func Diff(before, after *domain.WorkflowGraph) ChangeSummary {
	summary := ChangeSummary{
		ConnectionsChanged: !reflect.DeepEqual(normalizeConnections(before.Connections), normalizeConnections(after.Connections)),
		SettingsChanged:    !reflect.DeepEqual(before.Settings, after.Settings),
		StaticDataChanged:  !reflect.DeepEqual(before.StaticData, after.StaticData),
		NameChanged:        before.Name != after.Name,
	}

	beforeByKey := make(map[string]domain.Node, len(before.Nodes))
	for _, node := range before.Nodes {
		beforeByKey[nodeKey(node)] = node
	}

	afterKeys := make(map[string]bool, len(after.Nodes))
	for _, node := range after.Nodes {
		key := nodeKey(node)
		afterKeys[key] = true

		previous, ok := beforeByKey[key]
		if !ok {
			summary.AddedNodes = append(summary.AddedNodes, node.Name)
			continue
		}

		if !reflect.DeepEqual(previous, node) {
			summary.ChangedNodes = append(summary.ChangedNodes, node.Name)
		}
	}

	for _, node := range before.Nodes {
		if !afterKeys[nodeKey(node)] {
			summary.RemovedNodes = append(summary.RemovedNodes, node.Name)
		}
	}

	sort.Strings(summary.AddedNodes)
	sort.Strings(summary.RemovedNodes)
	sort.Strings(summary.ChangedNodes)

	return summary
}

func nodeKey(node domain.Node) string {
	if node.ID != "" {
		return "id:" + node.ID
	}
	return "name:" + node.Name
}

// normalizeConnections drops empty ports and sources so that cosmetic
// leftovers of a removal do not count as a change.
func normalizeConnections(connections domain.Connections) map[string]map[string][][]domain.Connection {
	out := map[string]map[string][][]domain.Connection{}

	for source, nodeConnections := range connections {
		for connectionType, ports := range nodeConnections {
			var trimmed [][]domain.Connection
			nonEmpty := false

			for _, port := range ports {
				if len(port) > 0 {
					nonEmpty = true
				}
				trimmed = append(trimmed, append([]domain.Connection{}, port...))
			}

			if !nonEmpty {
				continue
			}

			for len(trimmed) > 0 && len(trimmed[len(trimmed)-1]) == 0 {
				trimmed = trimmed[:len(trimmed)-1]
			}

			if out[source] == nil {
				out[source] = map[string][][]domain.Connection{}
			}
			out[source][connectionType] = trimmed
		}
	}

	return out
}
