package canva

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/angelsbailbonds/opsflow/pkg/poll"
)

var ErrExportFailed = errors.New("canva export failed")

type DesignURLs struct {
	EditURL string `json:"edit_url"`
	ViewURL string `json:"view_url"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Design struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	URLs      DesignURLs `json:"urls"`
	Thumbnail *Thumbnail `json:"thumbnail,omitempty"`
	PageCount int        `json:"page_count,omitempty"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
}

type ListDesignsRequest struct {
	Query        string
	Continuation string
	// OwnershipFilter is "any", "owned" or "shared".
	OwnershipFilter string
}

type ListDesignsResponse struct {
	Items        []Design `json:"items"`
	Continuation string   `json:"continuation,omitempty"`
}

type ExportFormat struct {
	Type    string `json:"type"`
	Quality string `json:"quality,omitempty"`
	Pages   []int  `json:"pages,omitempty"`
}

type ExportRequest struct {
	DesignID string       `json:"design_id"`
	Format   ExportFormat `json:"format"`
}

type ExportStatus string

const (
	ExportStatusInProgress ExportStatus = "in_progress"
	ExportStatusSuccess    ExportStatus = "success"
	ExportStatusFailed     ExportStatus = "failed"
)

type ExportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ExportJob struct {
	ID     string       `json:"id"`
	Status ExportStatus `json:"status"`
	URLs   []string     `json:"urls,omitempty"`
	Error  *ExportError `json:"error,omitempty"`
}

func (j *ExportJob) Done() bool {
	return j.Status == ExportStatusSuccess || j.Status == ExportStatusFailed
}

func (c *Client) ListDesigns(ctx context.Context, req ListDesignsRequest) (*ListDesignsResponse, error) {
	query := url.Values{}
	if req.Query != "" {
		query.Set("query", req.Query)
	}
	if req.Continuation != "" {
		query.Set("continuation", req.Continuation)
	}
	if req.OwnershipFilter != "" {
		query.Set("ownership", req.OwnershipFilter)
	}

	var resp ListDesignsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/designs", query, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) GetDesign(ctx context.Context, designID string) (*Design, error) {
	var resp struct {
		Design Design `json:"design"`
	}

	if err := c.doRequest(ctx, http.MethodGet, "/designs/"+url.PathEscape(designID), nil, nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Design, nil
}

func (c *Client) CreateExport(ctx context.Context, req ExportRequest) (*ExportJob, error) {
	if req.DesignID == "" {
		return nil, fmt.Errorf("design id is required")
	}

	if req.Format.Type == "" {
		req.Format.Type = "pdf"
	}

	var resp struct {
		Job ExportJob `json:"job"`
	}

	if err := c.doRequest(ctx, http.MethodPost, "/exports", nil, req, &resp); err != nil {
		return nil, err
	}

	return &resp.Job, nil
}

func (c *Client) GetExport(ctx context.Context, jobID string) (*ExportJob, error) {
	var resp struct {
		Job ExportJob `json:"job"`
	}

	if err := c.doRequest(ctx, http.MethodGet, "/exports/"+url.PathEscape(jobID), nil, nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Job, nil
}

// ExportDesign starts an export job and polls it until it succeeds or fails.
func (c *Client) ExportDesign(ctx context.Context, req ExportRequest, opts poll.Options) (*ExportJob, error) {
	job, err := c.CreateExport(ctx, req)
	if err != nil {
		return nil, err
	}

	if !job.Done() {
		if opts.Name == "" {
			opts.Name = "canva export " + job.ID
		}

		jobID := job.ID
		job, err = poll.Until(ctx, opts, func(ctx context.Context, attempt int) (*ExportJob, bool, error) {
			current, err := c.GetExport(ctx, jobID)
			if err != nil {
				return nil, false, err
			}
			return current, current.Done(), nil
		})
		if err != nil {
			return nil, err
		}
	}

	if job.Status == ExportStatusFailed {
		if job.Error != nil {
			return job, fmt.Errorf("%w: %s: %s", ErrExportFailed, job.Error.Code, job.Error.Message)
		}
		return job, ErrExportFailed
	}

	return job, nil
}
