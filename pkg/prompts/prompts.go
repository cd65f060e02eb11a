// Package prompts builds Anthropic Messages request bodies that are embedded
// into n8n HTTP Request nodes. opsflow never sends them itself; n8n fills in
// the expression placeholders at execution time.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = int64(4096)

	// DefaultPDFDataExpression reads the base64 PDF produced by the upstream
	// "Extract from File" node.
	DefaultPDFDataExpression = "{{ $json.pdfBase64 }}"
)

// DocumentPrompt asks Claude about one PDF document.
type DocumentPrompt struct {
	Model     string
	MaxTokens int64
	System    string
	Prompt    string

	// DocumentData is the value of the base64 source. Usually an n8n
	// expression, so it is kept as opaque text.
	DocumentData string
}

func (p DocumentPrompt) Params() anthropic.MessageNewParams {
	model := p.Model
	if model == "" {
		model = DefaultModel
	}

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	data := p.DocumentData
	if data == "" {
		data = DefaultPDFDataExpression
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: data}),
				anthropic.NewTextBlock(p.Prompt),
			),
		},
	}

	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	return params
}

// Body renders the request body as JSON.
func (p DocumentPrompt) Body() ([]byte, error) {
	if p.Prompt == "" {
		return nil, fmt.Errorf("document prompt has no text")
	}

	raw, err := json.Marshal(p.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to encode anthropic request: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// Expression renders the body as an n8n expression value for the jsonBody
// parameter of an HTTP Request node.
func (p DocumentPrompt) Expression() (string, error) {
	body, err := p.Body()
	if err != nil {
		return "", err
	}

	return "=" + string(body), nil
}

const courtReportSystem = `You extract structured data from court and jail documents for a bail bond agency. Answer with a single JSON object and nothing else.`

const courtReportPrompt = `Read the attached PDF and return JSON with these keys:
"defendant_name", "booking_number", "charges" (array of strings), "bond_amount" (number or null), "court_date" (YYYY-MM-DD or null), "court_location", "case_number".
Use null for anything the document does not state.`

// CourtReport is the extraction prompt used by the report intake workflow.
func CourtReport() DocumentPrompt {
	return DocumentPrompt{
		System: courtReportSystem,
		Prompt: courtReportPrompt,
	}
}

const marketingSummarySystem = `You write short internal summaries for the marketing team of a bail bond agency.`

const marketingSummaryPrompt = `Summarize the attached PDF in at most five bullet points, then list any dates or deadlines it mentions. Plain text only.`

// MarketingSummary summarizes an uploaded marketing document.
func MarketingSummary() DocumentPrompt {
	return DocumentPrompt{
		System:    marketingSummarySystem,
		Prompt:    marketingSummaryPrompt,
		MaxTokens: 1024,
	}
}
