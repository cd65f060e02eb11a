// Package notify posts short operational messages to Slack.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

var ErrNoChannel = errors.New("slack bot token set without a channel")

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop is used when Slack is not configured.
type Nop struct{}

func (Nop) Notify(ctx context.Context, text string) error {
	log.Debug().Str("text", text).Msg("Slack not configured, notification dropped")
	return nil
}

type SlackConfig struct {
	WebhookURL string
	BotToken   string
	Channel    string
	// APIURL overrides the Slack Web API base URL.
	APIURL string
}

// New returns a webhook notifier when a webhook URL is configured, a bot
// notifier when a bot token is, and Nop otherwise.
func New(cfg SlackConfig) (Notifier, error) {
	switch {
	case cfg.WebhookURL != "":
		return &WebhookNotifier{url: cfg.WebhookURL, channel: cfg.Channel}, nil
	case cfg.BotToken != "":
		if cfg.Channel == "" {
			return nil, ErrNoChannel
		}

		options := []slack.Option{}
		if cfg.APIURL != "" {
			options = append(options, slack.OptionAPIURL(cfg.APIURL))
		}

		return &BotNotifier{client: slack.New(cfg.BotToken, options...), channel: cfg.Channel}, nil
	default:
		return Nop{}, nil
	}
}

type WebhookNotifier struct {
	url     string
	channel string
}

func (n *WebhookNotifier) Notify(ctx context.Context, text string) error {
	err := slack.PostWebhookContext(ctx, n.url, &slack.WebhookMessage{
		Text:    text,
		Channel: n.channel,
	})
	if err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}

	return nil
}

type BotNotifier struct {
	client  *slack.Client
	channel string
}

func (n *BotNotifier) Notify(ctx context.Context, text string) error {
	channel, ts, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", n.channel, err)
	}

	log.Debug().Str("channel", channel).Str("timestamp", ts).Msg("Slack message sent")

	return nil
}
