package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 18, 30, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "minimal", input: `{"summary": "Wired the court report flow"}`},
		{name: "full", input: `{"date": "2026-10-18", "summary": "s", "completed": ["a"], "next": ["b"], "blockers": []}`},
		{name: "invalid json", input: `{"summary": `, wantErr: "unexpected EOF"},
		{name: "unknown field", input: `{"summary": "s", "blocker": ["x"]}`, wantErr: "unknown field"},
		{name: "missing summary", input: `{"completed": ["a"]}`, wantErr: "summary is required"},
		{name: "bad date", input: `{"summary": "s", "date": "10/18/2026"}`, wantErr: "not YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress, err := Parse([]byte(tt.input))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.False(t, domain.IsTransient(err))
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, progress.Summary)
		})
	}
}

func TestComment(t *testing.T) {
	progress := &Progress{
		Summary:   " Added dedupe to the task webhook ",
		Completed: []string{"ClickUp dedupe", " "},
		Next:      []string{"Backfill September reports"},
	}

	want := "Session progress 2026-10-19\n\n" +
		"Added dedupe to the task webhook\n" +
		"\nCompleted:\n- ClickUp dedupe\n" +
		"\nNext:\n- Backfill September reports\n" +
		"\nBlockers:\n- none\n"

	assert.Equal(t, want, progress.Comment(now))

	progress.Date = "2026-10-17"
	assert.Contains(t, progress.Comment(now), "Session progress 2026-10-17")
}

type fakeCommenter struct {
	taskID string
	text   string
	err    error
}

func (f *fakeCommenter) AddComment(ctx context.Context, taskID string, req clickup.CommentRequest) (*clickup.CommentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.taskID = taskID
	f.text = req.CommentText
	return &clickup.CommentResponse{ID: "c1"}, nil
}

type fakeNotifier struct {
	texts []string
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

func TestLogger_Log(t *testing.T) {
	comments := &fakeCommenter{}
	notifier := &fakeNotifier{err: errors.New("slack down")}

	logger := NewLogger(LoggerDependencies{
		Comments: comments,
		Notifier: notifier,
		TaskID:   "86a1b2c3",
		Now:      func() time.Time { return now },
	})

	resp, err := logger.Log(context.Background(), &Progress{Summary: "done"})
	require.NoError(t, err)

	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, "86a1b2c3", comments.taskID)
	assert.Contains(t, comments.text, "Session progress 2026-10-19")
	assert.Equal(t, []string{comments.text}, notifier.texts)
}

func TestLogger_Errors(t *testing.T) {
	_, err := NewLogger(LoggerDependencies{Comments: &fakeCommenter{}}).Log(context.Background(), &Progress{Summary: "x"})
	assert.ErrorIs(t, err, ErrNoTask)

	_, err = NewLogger(LoggerDependencies{Comments: &fakeCommenter{}, TaskID: "t"}).Log(context.Background(), &Progress{})
	assert.ErrorIs(t, err, ErrEmptySummary)

	notifier := &fakeNotifier{}
	_, err = NewLogger(LoggerDependencies{
		Comments: &fakeCommenter{err: &clickup.Error{StatusCode: 401, Message: "Token invalid"}},
		Notifier: notifier,
		TaskID:   "t",
	}).Log(context.Background(), &Progress{Summary: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to post session comment")
	assert.Empty(t, notifier.texts)
}
