package domain

import (
	"time"
)

const (
	StaticDataGlobalKey = "global"
	StaticDataDocIDsKey = "docIds"
)

// ProcessedDoc is the value stored per document id in the workflow's static
// data once the document has been handled.
type ProcessedDoc struct {
	Date        string    `json:"date"`
	ProcessedAt time.Time `json:"processedAt"`
}

// ProcessedDocs reads staticData.global.docIds. Entries that do not look like
// a ProcessedDoc are still reported as processed with zero values.
func (g *WorkflowGraph) ProcessedDocs() map[string]ProcessedDoc {
	docs := map[string]ProcessedDoc{}

	docIDs, ok := g.staticDocIDs(false)
	if !ok {
		return docs
	}

	for id, raw := range docIDs {
		doc := ProcessedDoc{}

		if entry, ok := raw.(map[string]any); ok {
			if date, ok := entry["date"].(string); ok {
				doc.Date = date
			}

			if processedAt, ok := entry["processedAt"].(string); ok {
				if t, err := time.Parse(time.RFC3339, processedAt); err == nil {
					doc.ProcessedAt = t
				}
			}
		}

		docs[id] = doc
	}

	return docs
}

func (g *WorkflowGraph) IsDocProcessed(id string) bool {
	docIDs, ok := g.staticDocIDs(false)
	if !ok {
		return false
	}

	_, ok = docIDs[id]

	return ok
}

func (g *WorkflowGraph) MarkDocProcessed(id string, doc ProcessedDoc) {
	docIDs, _ := g.staticDocIDs(true)

	docIDs[id] = map[string]any{
		"date":        doc.Date,
		"processedAt": doc.ProcessedAt.UTC().Format(time.RFC3339),
	}
}

func (g *WorkflowGraph) staticDocIDs(create bool) (map[string]any, bool) {
	if g.StaticData == nil {
		if !create {
			return nil, false
		}
		g.StaticData = map[string]any{}
	}

	global, ok := g.StaticData[StaticDataGlobalKey].(map[string]any)
	if !ok {
		if !create {
			return nil, false
		}
		global = map[string]any{}
		g.StaticData[StaticDataGlobalKey] = global
	}

	docIDs, ok := global[StaticDataDocIDsKey].(map[string]any)
	if !ok {
		if !create {
			return nil, false
		}
		docIDs = map[string]any{}
		global[StaticDataDocIDsKey] = docIDs
	}

	return docIDs, true
}
