package backfill

import (
	"context"
	"fmt"

	"github.com/angelsbailbonds/opsflow/pkg/clients/n8n"
)

type WebhookTrigger interface {
	TriggerWebhook(ctx context.Context, path string, payload any) (*n8n.WebhookResponse, error)
}

// WebhookProcessor hands each item to an n8n workflow through its production
// webhook. A non-2xx answer is an error, so the item stays unmarked.
type WebhookProcessor struct {
	trigger WebhookTrigger
	path    string
}

func NewWebhookProcessor(trigger WebhookTrigger, path string) *WebhookProcessor {
	return &WebhookProcessor{trigger: trigger, path: path}
}

func (p *WebhookProcessor) Process(ctx context.Context, item Item) error {
	payload := map[string]any{
		"docId": item.ID,
		"name":  item.Name,
		"date":  item.Date,
	}
	for key, value := range item.Data {
		if _, exists := payload[key]; !exists {
			payload[key] = value
		}
	}

	if _, err := p.trigger.TriggerWebhook(ctx, p.path, payload); err != nil {
		return fmt.Errorf("webhook %s rejected %s: %w", p.path, item.ID, err)
	}

	return nil
}
