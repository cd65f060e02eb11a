package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedDocs(t *testing.T) {
	graph := mustDecodeGraph(t, sampleWorkflow)

	docs := graph.ProcessedDocs()

	require.Contains(t, docs, "doc-1")
	assert.Equal(t, "2026-01-02", docs["doc-1"].Date)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), docs["doc-1"].ProcessedAt)
	assert.True(t, graph.IsDocProcessed("doc-1"))
	assert.False(t, graph.IsDocProcessed("doc-2"))
}

func TestMarkDocProcessed_CreatesStructure(t *testing.T) {
	graph := &WorkflowGraph{}
	assert.Empty(t, graph.ProcessedDocs())

	processedAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	graph.MarkDocProcessed("doc-9", ProcessedDoc{Date: "2026-03-04", ProcessedAt: processedAt})

	assert.True(t, graph.IsDocProcessed("doc-9"))
	assert.Equal(t, map[string]any{
		"global": map[string]any{
			"docIds": map[string]any{
				"doc-9": map[string]any{"date": "2026-03-04", "processedAt": "2026-03-04T05:06:07Z"},
			},
		},
	}, graph.StaticData)
}

func TestMarkDocProcessed_KeepsOtherStaticData(t *testing.T) {
	graph := mustDecodeGraph(t, sampleWorkflow)
	graph.StaticData["node:Webhook"] = map[string]any{"cursor": "x"}

	graph.MarkDocProcessed("doc-2", ProcessedDoc{Date: "2026-01-03", ProcessedAt: time.Now()})

	assert.Len(t, graph.ProcessedDocs(), 2)
	assert.Equal(t, map[string]any{"cursor": "x"}, graph.StaticData["node:Webhook"])
}

type fakeRemoteError struct {
	status int
}

func (e *fakeRemoteError) Error() string     { return fmt.Sprintf("status %d", e.status) }
func (e *fakeRemoteError) IsRetryable() bool { return e.status >= 500 || e.status == 429 }

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantRemote    bool
	}{
		{name: "server error", err: &fakeRemoteError{status: 502}, wantTransient: true, wantRemote: true},
		{name: "rate limited", err: fmt.Errorf("wrapped: %w", &fakeRemoteError{status: 429}), wantTransient: true, wantRemote: true},
		{name: "validation error", err: &fakeRemoteError{status: 400}, wantTransient: false, wantRemote: true},
		{name: "deadline", err: context.DeadlineExceeded, wantTransient: true, wantRemote: false},
		{name: "wrapped deadline", err: &url.Error{Op: "Get", URL: "https://n8n.test", Err: context.DeadlineExceeded}, wantTransient: true, wantRemote: false},
		{name: "canceled", err: context.Canceled, wantTransient: false, wantRemote: false},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "n8n.test"}, wantTransient: true, wantRemote: true},
		{name: "local", err: errors.New("bad recipe"), wantTransient: false, wantRemote: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify("op", tt.err)

			var domainErr *Error
			require.ErrorAs(t, classified, &domainErr)
			assert.Equal(t, tt.wantTransient, IsTransient(classified))
			assert.Equal(t, tt.wantRemote, IsRemote(classified))
			assert.ErrorIs(t, classified, tt.err)
		})
	}

	assert.Nil(t, Classify("op", nil))
	assert.False(t, IsTransient(nil))
}
