package patcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedWorkflow = `{
  "id": "wf1",
  "name": "Report Intake",
  "nodes": [
    {"id": "a", "name": "A", "type": "n8n-nodes-base.webhook", "typeVersion": 2, "position": [0, 0], "parameters": {"path": "in"}, "webhookId": "w-1"},
    {"id": "b", "name": "B", "type": "n8n-nodes-base.code", "typeVersion": 2, "position": [200, 0], "parameters": {"jsCode": "return items;"}}
  ],
  "connections": {"A": {"main": [[{"node": "B", "type": "main", "index": 0}]]}},
  "settings": {"executionOrder": "v1", "saveManualExecutions": true},
  "staticData": {"global": {"lastRun": 1700000000}}
}`

// fakeStore keeps the workflow as raw JSON so every fetch is a fresh decode,
// like a remote engine would serve it.
type fakeStore struct {
	raw       []byte
	getErr    error
	updateErr error
	updates   int
	submitted []byte
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	return &fakeStore{raw: []byte(storedWorkflow)}
}

func (s *fakeStore) GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowGraph, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}

	var graph domain.WorkflowGraph
	if err := json.Unmarshal(s.raw, &graph); err != nil {
		return nil, err
	}

	return &graph, nil
}

func (s *fakeStore) UpdateWorkflow(ctx context.Context, graph *domain.WorkflowGraph) (*domain.WorkflowGraph, error) {
	s.updates++

	if s.updateErr != nil {
		return nil, s.updateErr
	}

	body, err := json.Marshal(graph.UpdatePayload())
	if err != nil {
		return nil, err
	}

	s.submitted = body

	var saved domain.WorkflowGraph
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, err
	}
	saved.ID = graph.ID

	s.raw, _ = json.Marshal(&saved)

	return &saved, nil
}

func (s *fakeStore) current(t *testing.T) *domain.WorkflowGraph {
	t.Helper()

	graph, err := s.GetWorkflow(context.Background(), "wf1")
	require.NoError(t, err)

	return graph
}

func xNode() domain.Node {
	return domain.Node{ID: "x", Name: "X", Type: "n8n-nodes-base.set", TypeVersion: 3, Position: []float64{100, 0}}
}

func TestPatch_InsertBetweenAndSave(t *testing.T) {
	store := newFakeStore(t)
	original := store.current(t)

	p := New(PatcherDependencies{Store: store})

	result, err := p.Patch(context.Background(), "wf1", func(graph *domain.WorkflowGraph) error {
		return graph.InsertBetween("A", "B", xNode())
	}, WithValidation())
	require.NoError(t, err)

	assert.True(t, result.Saved)
	assert.Equal(t, []string{"X"}, result.Changes.AddedNodes)
	assert.True(t, result.Changes.ConnectionsChanged)
	assert.Equal(t, 1, store.updates)

	saved := store.current(t)
	assert.Equal(t, []string{"A", "X", "B"}, saved.NodeNames())
	assert.True(t, saved.Connections.HasEdge("A", "X"))
	assert.True(t, saved.Connections.HasEdge("X", "B"))
	assert.False(t, saved.Connections.HasEdge("A", "B"))

	assert.Equal(t, original.Settings, saved.Settings)
	assert.Equal(t, original.StaticData, saved.StaticData)
	assert.Equal(t, original.Nodes[0], saved.Nodes[0])
	assert.Equal(t, original.Nodes[1], saved.Nodes[2])
}

func TestPatch_MutatorErrorDoesNotSave(t *testing.T) {
	store := newFakeStore(t)
	boom := errors.New("node missing")

	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		graph.Nodes = nil
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, domain.IsTransient(err))
	assert.Equal(t, 0, store.updates)
	assert.Len(t, store.current(t).Nodes, 2)
}

func TestPatch_ValidationBlocksDanglingConnections(t *testing.T) {
	store := newFakeStore(t)

	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		graph.Nodes = graph.Nodes[:1]
		return nil
	}, WithValidation())

	var integrityErr *domain.ConnectionIntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, 0, store.updates)
}

func TestPatch_WithoutValidationLeavesJudgementToRemote(t *testing.T) {
	store := newFakeStore(t)

	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		graph.Nodes = graph.Nodes[:1]
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, store.updates)
}

func TestPatch_DryRun(t *testing.T) {
	store := newFakeStore(t)

	result, err := New(PatcherDependencies{Store: store}).Patch(context.Background(), "wf1", func(graph *domain.WorkflowGraph) error {
		return graph.SetParameter("B", "jsCode", "return [];")
	}, WithDryRun(true))
	require.NoError(t, err)

	assert.False(t, result.Saved)
	assert.Equal(t, []string{"B"}, result.Changes.ChangedNodes)
	assert.Equal(t, 0, store.updates)

	value, _ := result.Before.Nodes[1].Parameter("jsCode")
	assert.Equal(t, "return items;", value)
}

func TestPatch_SkipUnchanged(t *testing.T) {
	store := newFakeStore(t)

	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		return nil
	}, WithSkipUnchanged())

	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Equal(t, 0, store.updates)
}

func TestPatch_SaveRejectedIsReported(t *testing.T) {
	store := newFakeStore(t)
	store.updateErr = errors.New("request/body must NOT have additional properties")

	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		return graph.RenameNode("B", "Parse")
	})

	require.Error(t, err)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, []string{"A", "B"}, store.current(t).NodeNames())
}

func TestPatch_FetchError(t *testing.T) {
	store := newFakeStore(t)
	store.getErr = errors.New("connection refused")

	called := false
	_, err := Patch(context.Background(), store, "wf1", func(graph *domain.WorkflowGraph) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
}

func TestChain(t *testing.T) {
	store := newFakeStore(t)

	_, err := Patch(context.Background(), store, "wf1", Chain(
		func(graph *domain.WorkflowGraph) error { return graph.RenameNode("B", "Parse") },
		func(graph *domain.WorkflowGraph) error { return graph.RemoveNode("Missing") },
	))

	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Contains(t, err.Error(), "step 2")
	assert.Equal(t, 0, store.updates)
}

func TestDiff_RenameIsAChange(t *testing.T) {
	store := newFakeStore(t)
	before := store.current(t)
	after := before.Clone()

	require.NoError(t, after.RenameNode("B", "Parse"))

	changes := Diff(before, after)
	assert.Equal(t, []string{"Parse"}, changes.ChangedNodes)
	assert.Empty(t, changes.AddedNodes)
	assert.Empty(t, changes.RemovedNodes)
	assert.True(t, changes.ConnectionsChanged)
	assert.False(t, changes.SettingsChanged)
}
