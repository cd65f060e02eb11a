// Package canvatools exposes Canva designs and exports as MCP tools.
package canvatools

import (
	"context"
	"fmt"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/canva"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit"
	"github.com/angelsbailbonds/opsflow/pkg/poll"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "opsflow-canva"

type ListDesignsInput struct {
	Query        string `json:"query,omitempty"`
	Ownership    string `json:"ownership,omitempty" jsonschema:"any, owned or shared"`
	Continuation string `json:"continuation,omitempty"`
}

type GetDesignInput struct {
	DesignID string `json:"design_id"`
}

type ExportDesignInput struct {
	DesignID string `json:"design_id"`
	Format   string `json:"format,omitempty" jsonschema:"pdf, png, jpg or mp4; default pdf"`
	Pages    []int  `json:"pages,omitempty" jsonschema:"1-based page numbers, default all"`
}

type Dependencies struct {
	Client canva.ClientInterface
	// Poll controls how export jobs are awaited.
	Poll poll.Options
}

type Tools struct {
	client canva.ClientInterface
	poll   poll.Options
}

func NewServer(deps Dependencies, version string) *mcp.Server {
	server := toolkit.NewServer(ServerName, version)
	Register(server, deps)
	return server
}

func Register(server *mcp.Server, deps Dependencies) {
	opts := deps.Poll
	if opts.MaxAttempts == 0 {
		opts = poll.Options{Interval: 2 * time.Second, MaxAttempts: 60, StopOnError: true}
	}

	t := &Tools{client: deps.Client, poll: opts}

	toolkit.AddTool(server, "list_designs", "List Canva designs, newest first.", t.ListDesigns)
	toolkit.AddTool(server, "get_design", "Get one design with its edit and view links.", t.GetDesign)
	toolkit.AddTool(server, "export_design", "Export a design and wait for the download links.", t.ExportDesign)
}

func (t *Tools) ListDesigns(ctx context.Context, in ListDesignsInput) (any, error) {
	return t.client.ListDesigns(ctx, canva.ListDesignsRequest{
		Query:           in.Query,
		OwnershipFilter: in.Ownership,
		Continuation:    in.Continuation,
	})
}

func (t *Tools) GetDesign(ctx context.Context, in GetDesignInput) (any, error) {
	if in.DesignID == "" {
		return nil, fmt.Errorf("design_id is required")
	}

	return t.client.GetDesign(ctx, in.DesignID)
}

func (t *Tools) ExportDesign(ctx context.Context, in ExportDesignInput) (any, error) {
	if in.DesignID == "" {
		return nil, fmt.Errorf("design_id is required")
	}

	job, err := t.client.ExportDesign(ctx, canva.ExportRequest{
		DesignID: in.DesignID,
		Format:   canva.ExportFormat{Type: in.Format, Pages: in.Pages},
	}, t.poll)
	if err != nil {
		return nil, err
	}

	return map[string]any{"job_id": job.ID, "status": job.Status, "urls": job.URLs}, nil
}
