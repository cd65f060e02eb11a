// Package googletools exposes Sheets, Drive, Docs and Gmail as MCP tools.
package googletools

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/sheets/v4"
)

const (
	ServerName = "opsflow-google"

	driveListFields = "nextPageToken, files(id, name, mimeType, createdTime, modifiedTime, webViewLink)"
)

type ReadSheetRangeInput struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range" jsonschema:"A1 notation, e.g. Leads!A1:F50"`
}

type AppendSheetRowsInput struct {
	SpreadsheetID string  `json:"spreadsheet_id"`
	Range         string  `json:"range" jsonschema:"sheet or table range to append after, e.g. Leads!A:F"`
	Rows          [][]any `json:"rows"`
	UserEntered   bool    `json:"user_entered,omitempty" jsonschema:"parse values as if typed into the UI (formulas, dates)"`
}

type ListDriveFilesInput struct {
	FolderID  string `json:"folder_id,omitempty"`
	NameQuery string `json:"name_contains,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type GetDocTextInput struct {
	DocumentID string `json:"document_id"`
}

type SearchGmailInput struct {
	Query      string `json:"query" jsonschema:"Gmail search syntax, e.g. from:court.ca.gov newer_than:7d"`
	MaxResults int    `json:"max_results,omitempty"`
}

type MailSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	From     string `json:"from,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Date     string `json:"date,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

type Tools struct {
	services *Services
}

func NewServer(services *Services, version string) *mcp.Server {
	server := toolkit.NewServer(ServerName, version)
	Register(server, services)
	return server
}

func Register(server *mcp.Server, services *Services) {
	t := &Tools{services: services}

	toolkit.AddTool(server, "read_sheet_range", "Read a range of a Google Sheet as rows of values.", t.ReadSheetRange)
	toolkit.AddTool(server, "append_sheet_rows", "Append rows after the last row of a sheet range.", t.AppendSheetRows)
	toolkit.AddTool(server, "list_drive_files", "List Google Drive files, optionally inside one folder.", t.ListDriveFiles)
	toolkit.AddTool(server, "get_doc_text", "Return the plain text of a Google Doc.", t.GetDocText)
	toolkit.AddTool(server, "search_gmail", "Search the mailbox and return sender, subject and snippet per message.", t.SearchGmail)
}

func (t *Tools) ReadSheetRange(ctx context.Context, in ReadSheetRangeInput) (any, error) {
	if in.SpreadsheetID == "" || in.Range == "" {
		return nil, fmt.Errorf("spreadsheet_id and range are required")
	}

	resp, err := t.services.Sheets.Spreadsheets.Values.Get(in.SpreadsheetID, in.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", in.Range, err)
	}

	values := resp.Values
	if values == nil {
		values = [][]any{}
	}

	return map[string]any{"range": resp.Range, "values": values}, nil
}

func (t *Tools) AppendSheetRows(ctx context.Context, in AppendSheetRowsInput) (any, error) {
	if in.SpreadsheetID == "" || in.Range == "" {
		return nil, fmt.Errorf("spreadsheet_id and range are required")
	}
	if len(in.Rows) == 0 {
		return nil, fmt.Errorf("rows must not be empty")
	}

	inputOption := "RAW"
	if in.UserEntered {
		inputOption = "USER_ENTERED"
	}

	resp, err := t.services.Sheets.Spreadsheets.Values.Append(in.SpreadsheetID, in.Range, &sheets.ValueRange{Values: in.Rows}).
		ValueInputOption(inputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to append to %s: %w", in.Range, err)
	}

	if resp.Updates == nil {
		return fmt.Sprintf("appended %d rows", len(in.Rows)), nil
	}

	return fmt.Sprintf("appended %d rows at %s", resp.Updates.UpdatedRows, resp.Updates.UpdatedRange), nil
}

func driveQuery(in ListDriveFilesInput) string {
	parts := []string{"trashed = false"}

	if in.FolderID != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", EscapeQuery(in.FolderID)))
	}
	if in.NameQuery != "" {
		parts = append(parts, fmt.Sprintf("name contains '%s'", EscapeQuery(in.NameQuery)))
	}
	if in.MimeType != "" {
		parts = append(parts, fmt.Sprintf("mimeType = '%s'", EscapeQuery(in.MimeType)))
	}

	return strings.Join(parts, " and ")
}

// EscapeQuery escapes a value for a single-quoted Drive query string.
func EscapeQuery(value string) string {
	return queryEscaper.Replace(value)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, "'", `\'`)

func (t *Tools) ListDriveFiles(ctx context.Context, in ListDriveFilesInput) (any, error) {
	call := t.services.Drive.Files.List().
		Q(driveQuery(in)).
		Fields(driveListFields).
		OrderBy("modifiedTime desc").
		PageSize(int64(toolkit.Limit(in.PageSize, 50, 200))).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)

	if in.PageToken != "" {
		call = call.PageToken(in.PageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}

	return map[string]any{"files": list.Files, "next_page_token": list.NextPageToken}, nil
}

func (t *Tools) GetDocText(ctx context.Context, in GetDocTextInput) (any, error) {
	if in.DocumentID == "" {
		return nil, fmt.Errorf("document_id is required")
	}

	doc, err := t.services.Docs.Documents.Get(in.DocumentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", in.DocumentID, err)
	}

	var b strings.Builder
	if doc.Body != nil {
		writeElements(&b, doc.Body.Content)
	}

	return fmt.Sprintf("# %s\n\n%s", doc.Title, strings.TrimRight(b.String(), "\n")), nil
}

// writeElements flattens paragraphs and table cells in document order.
func writeElements(b *strings.Builder, elements []*docs.StructuralElement) {
	for _, element := range elements {
		switch {
		case element.Paragraph != nil:
			for _, part := range element.Paragraph.Elements {
				if part.TextRun != nil {
					b.WriteString(part.TextRun.Content)
				}
			}
		case element.Table != nil:
			for _, row := range element.Table.TableRows {
				for _, cell := range row.TableCells {
					writeElements(b, cell.Content)
				}
			}
		case element.TableOfContents != nil:
			writeElements(b, element.TableOfContents.Content)
		}
	}
}

func (t *Tools) SearchGmail(ctx context.Context, in SearchGmailInput) (any, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	messages, err := t.services.Gmail.Users.Messages.List("me").
		Q(in.Query).
		MaxResults(int64(toolkit.Limit(in.MaxResults, 10, 50))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search mail: %w", err)
	}

	summaries := make([]MailSummary, 0, len(messages.Messages))

	for _, message := range messages.Messages {
		m, err := t.services.Gmail.Users.Messages.Get("me", message.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", message.Id, err)
		}

		summary := MailSummary{ID: m.Id, ThreadID: m.ThreadId, Snippet: m.Snippet}

		if m.Payload != nil {
			for _, header := range m.Payload.Headers {
				switch strings.ToLower(header.Name) {
				case "from":
					summary.From = header.Value
				case "subject":
					summary.Subject = header.Value
				case "date":
					summary.Date = header.Value
				}
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
