package backfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelsbailbonds/opsflow/pkg/mcp/googletools"

	"google.golang.org/api/drive/v3"
)

const driveFileFields = "nextPageToken, files(id, name, mimeType, createdTime, modifiedTime, webViewLink)"

// DriveSource lists the files of one Drive folder, oldest first.
type DriveSource struct {
	service  *drive.Service
	folderID string
	mimeType string
	maxPages int
}

type DriveSourceOption func(*DriveSource)

// WithMimeType keeps only files of the given type, e.g. application/pdf.
func WithMimeType(mimeType string) DriveSourceOption {
	return func(s *DriveSource) {
		s.mimeType = mimeType
	}
}

func WithMaxPages(pages int) DriveSourceOption {
	return func(s *DriveSource) {
		s.maxPages = pages
	}
}

func NewDriveSource(service *drive.Service, folderID string, opts ...DriveSourceOption) *DriveSource {
	source := &DriveSource{
		service:  service,
		folderID: folderID,
		maxPages: 20,
	}

	for _, opt := range opts {
		opt(source)
	}

	return source
}

func (s *DriveSource) query() string {
	parts := []string{
		fmt.Sprintf("'%s' in parents", googletools.EscapeQuery(s.folderID)),
		"trashed = false",
	}

	if s.mimeType != "" {
		parts = append(parts, fmt.Sprintf("mimeType = '%s'", googletools.EscapeQuery(s.mimeType)))
	}

	return strings.Join(parts, " and ")
}

func (s *DriveSource) Items(ctx context.Context) ([]Item, error) {
	var items []Item
	pageToken := ""

	for page := 0; page < s.maxPages; page++ {
		call := s.service.Files.List().
			Q(s.query()).
			Fields(driveFileFields).
			OrderBy("createdTime").
			PageSize(100).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list drive folder %s: %w", s.folderID, err)
		}

		for _, file := range list.Files {
			items = append(items, Item{
				ID:   file.Id,
				Name: file.Name,
				Date: fileDate(file.CreatedTime),
				Data: map[string]any{
					"fileId":      file.Id,
					"name":        file.Name,
					"mimeType":    file.MimeType,
					"webViewLink": file.WebViewLink,
					"createdTime": file.CreatedTime,
				},
			})
		}

		if list.NextPageToken == "" {
			return items, nil
		}
		pageToken = list.NextPageToken
	}

	return items, fmt.Errorf("drive folder %s has more than %d pages", s.folderID, s.maxPages)
}

// fileDate keeps the YYYY-MM-DD part of an RFC 3339 timestamp.
func fileDate(createdTime string) string {
	if len(createdTime) < 10 {
		return createdTime
	}
	return createdTime[:10]
}
