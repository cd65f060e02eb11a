package nodes

import "github.com/angelsbailbonds/opsflow/pkg/domain"

// Scripts uploaded into Code nodes. They run inside n8n, not here, and are
// rendered with RenderScript.

// FilterUnprocessedScript drops items whose id is already recorded in the
// workflow static data. __ID_FIELD__ names the item field holding the id.
const FilterUnprocessedScript = `const staticData = $getWorkflowStaticData('global');
const docIds = staticData.docIds || {};

return $input.all().filter((item) => {
  const id = item.json['__ID_FIELD__'];
  return id && !docIds[id];
});
`

// MarkProcessedScript records item ids in the workflow static data. It is
// placed after the step that creates the downstream work so a failed run
// never marks an item.
const MarkProcessedScript = `const staticData = $getWorkflowStaticData('global');
staticData.docIds = staticData.docIds || {};

for (const item of $input.all()) {
  const id = item.json['__ID_FIELD__'];
  if (!id) continue;
  staticData.docIds[id] = {
    date: item.json['__DATE_FIELD__'] || null,
    processedAt: new Date().toISOString(),
  };
}

return $input.all();
`

// ParseClaudeJSONScript pulls the JSON object out of a Messages API reply.
const ParseClaudeJSONScript = `return $input.all().map((item) => {
  const blocks = item.json.content || [];
  const text = blocks.filter((b) => b.type === 'text').map((b) => b.text).join('\n');
  const start = text.indexOf('{');
  const end = text.lastIndexOf('}');
  if (start < 0 || end < start) {
    return { json: { parseError: 'no JSON object in reply', raw: text } };
  }
  try {
    return { json: JSON.parse(text.slice(start, end + 1)) };
  } catch (err) {
    return { json: { parseError: err.message, raw: text } };
  }
});
`

// FilterUnprocessed builds the Code node that skips recorded ids.
func FilterUnprocessed(name, idField string, opts ...Option) (domain.Node, error) {
	script, err := RenderScript(FilterUnprocessedScript, map[string]string{"ID_FIELD": idField})
	if err != nil {
		return domain.Node{}, err
	}

	return Code(name, script, opts...), nil
}

// MarkProcessed builds the Code node that records ids after success.
func MarkProcessed(name, idField, dateField string, opts ...Option) (domain.Node, error) {
	script, err := RenderScript(MarkProcessedScript, map[string]string{
		"ID_FIELD":   idField,
		"DATE_FIELD": dateField,
	})
	if err != nil {
		return domain.Node{}, err
	}

	return Code(name, script, opts...), nil
}
