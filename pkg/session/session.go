// Package session records the progress of a working session as a comment on
// a ClickUp tracking task.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/notify"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EventSessionLogged = "session_logged"
	EventNotifyFailed  = "session_notify_failed"

	dateLayout = "2006-01-02"
)

var (
	ErrEmptySummary = errors.New("summary is required")
	ErrNoTask       = errors.New("no session task configured")
)

type Progress struct {
	Date      string   `json:"date,omitempty"`
	Summary   string   `json:"summary"`
	Completed []string `json:"completed"`
	Next      []string `json:"next"`
	Blockers  []string `json:"blockers"`
}

// Parse decodes a progress payload. Unknown fields are rejected so a typo in
// a key does not silently drop a section.
func Parse(data []byte) (*Progress, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var progress Progress
	if err := decoder.Decode(&progress); err != nil {
		return nil, domain.NewPermanentError("parse session progress", domain.ErrorOriginLocal, err)
	}

	if err := progress.Validate(); err != nil {
		return nil, domain.NewPermanentError("parse session progress", domain.ErrorOriginLocal, err)
	}

	return &progress, nil
}

func (p *Progress) Validate() error {
	if strings.TrimSpace(p.Summary) == "" {
		return ErrEmptySummary
	}

	if p.Date != "" {
		if _, err := time.Parse(dateLayout, p.Date); err != nil {
			return fmt.Errorf("date %q is not YYYY-MM-DD", p.Date)
		}
	}

	return nil
}

// Comment renders the progress as the plain text posted to ClickUp.
func (p *Progress) Comment(now time.Time) string {
	date := p.Date
	if date == "" {
		date = now.Format(dateLayout)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Session progress %s\n\n%s\n", date, strings.TrimSpace(p.Summary))

	writeSection(&b, "Completed", p.Completed)
	writeSection(&b, "Next", p.Next)
	writeSection(&b, "Blockers", p.Blockers)

	return b.String()
}

func writeSection(b *strings.Builder, title string, entries []string) {
	fmt.Fprintf(b, "\n%s:\n", title)

	written := 0
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fmt.Fprintf(b, "- %s\n", entry)
		written++
	}

	if written == 0 {
		b.WriteString("- none\n")
	}
}

type Commenter interface {
	AddComment(ctx context.Context, taskID string, req clickup.CommentRequest) (*clickup.CommentResponse, error)
}

type Logger struct {
	comments Commenter
	notifier notify.Notifier
	taskID   string
	now      func() time.Time
	logger   zerolog.Logger
}

type LoggerDependencies struct {
	Comments Commenter
	Notifier notify.Notifier
	TaskID   string
	Now      func() time.Time
	Logger   *zerolog.Logger
}

func NewLogger(deps LoggerDependencies) *Logger {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Logger{
		comments: deps.Comments,
		notifier: notifier,
		taskID:   deps.TaskID,
		now:      now,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// Log posts the comment. A failed Slack notification is logged but does not
// fail the call since the comment is already stored.
func (l *Logger) Log(ctx context.Context, progress *Progress) (*clickup.CommentResponse, error) {
	if l.taskID == "" {
		return nil, ErrNoTask
	}

	if err := progress.Validate(); err != nil {
		return nil, err
	}

	text := progress.Comment(l.now())

	resp, err := l.comments.AddComment(ctx, l.taskID, clickup.CommentRequest{CommentText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to post session comment: %w", err)
	}

	l.logger.Info().
		Str("event", EventSessionLogged).
		Str("task_id", l.taskID).
		Int("completed", len(progress.Completed)).
		Int("blockers", len(progress.Blockers)).
		Msg("Session progress logged")

	if err := l.notifier.Notify(ctx, text); err != nil {
		l.logger.Warn().Err(err).Str("event", EventNotifyFailed).Msg("Failed to notify about session progress")
	}

	return resp, nil
}
