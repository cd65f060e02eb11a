package prompts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentPrompt_Body(t *testing.T) {
	body, err := CourtReport().Body()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, DefaultModel, decoded["model"])
	assert.EqualValues(t, DefaultMaxTokens, decoded["max_tokens"])

	messages, ok := decoded["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)

	message := messages[0].(map[string]any)
	assert.Equal(t, "user", message["role"])

	content := message["content"].([]any)
	require.Len(t, content, 2)

	document := content[0].(map[string]any)
	assert.Equal(t, "document", document["type"])

	source := document["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "application/pdf", source["media_type"])
	assert.Equal(t, DefaultPDFDataExpression, source["data"])

	text := content[1].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Contains(t, text["text"], "defendant_name")

	system := decoded["system"].([]any)
	require.Len(t, system, 1)
}

func TestDocumentPrompt_CustomData(t *testing.T) {
	prompt := MarketingSummary()
	prompt.DocumentData = "{{ $binary.data.data }}"
	prompt.Model = "claude-haiku-4-5"

	body, err := prompt.Body()
	require.NoError(t, err)

	assert.Contains(t, string(body), `"{{ $binary.data.data }}"`)
	assert.Contains(t, string(body), `"claude-haiku-4-5"`)
	assert.Contains(t, string(body), `"max_tokens": 1024`)
}

func TestDocumentPrompt_Expression(t *testing.T) {
	expression, err := CourtReport().Expression()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(expression, "={"))
}

func TestDocumentPrompt_EmptyPrompt(t *testing.T) {
	_, err := DocumentPrompt{}.Body()
	assert.Error(t, err)
}
