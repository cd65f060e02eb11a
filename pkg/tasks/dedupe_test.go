package tasks

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func millis(t time.Time) *string {
	s := strconv.FormatInt(t.UnixMilli(), 10)
	return &s
}

func task(id, name string, created, due time.Time) clickup.Task {
	tk := clickup.Task{
		ID:          id,
		Name:        name,
		DateCreated: *millis(created),
		List:        clickup.ListRef{ID: "l1"},
	}
	if !due.IsZero() {
		tk.DueDate = millis(due)
	}
	return tk
}

var (
	day1 = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)
	t0   = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
)

func sampleTasks() []clickup.Task {
	return []clickup.Task{
		task("t3", "Post: Court Reminder", t0.Add(2*time.Hour), day1),
		task("t1", "post court reminder", t0, day1.Add(time.Hour)),
		task("t2", "Post court reminder ", t0.Add(time.Hour), day1),
		task("t4", "Post court reminder", t0, day2),
		task("t5", "Weekly blog", t0, time.Time{}),
		task("t6", "Weekly blog", t0.Add(time.Hour), time.Time{}),
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Post: Court Reminder ":  "post court reminder",
		"post   court\treminder": "post court reminder",
		"Follow-up_call (Smith)": "follow up call smith",
		"":                       "",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestFindDuplicates(t *testing.T) {
	groups := FindDuplicates(sampleTasks(), time.UTC)

	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, GroupKey{Name: "post court reminder", Due: "2026-10-19"}, group.Key)
	assert.Equal(t, "t1", group.Keep.ID)
	require.Len(t, group.Duplicates, 2)
	assert.Equal(t, "t2", group.Duplicates[0].ID)
	assert.Equal(t, "t3", group.Duplicates[1].ID)
}

func TestFindDuplicates_UsesLocationForDay(t *testing.T) {
	late := time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC)
	tasks := []clickup.Task{
		task("a", "Call", t0, day1),
		task("b", "Call", t0.Add(time.Hour), late),
	}

	assert.Empty(t, FindDuplicates(tasks, time.UTC))

	pacific := time.FixedZone("PDT", -7*60*60)
	groups := FindDuplicates(tasks, pacific)
	require.Len(t, groups, 1)
	assert.Equal(t, "2026-10-19", groups[0].Key.Due)
}

type fakeTasks struct {
	tasks     []clickup.Task
	deleted   []string
	failOn    string
	listCalls int
}

func (f *fakeTasks) GetTask(ctx context.Context, taskID string) (*clickup.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			return &f.tasks[i], nil
		}
	}
	return nil, &clickup.Error{StatusCode: 404, Message: "Task not found"}
}

func (f *fakeTasks) ListAllTasks(ctx context.Context, listID string, includeClosed bool) ([]clickup.Task, error) {
	f.listCalls++
	return append([]clickup.Task(nil), f.tasks...), nil
}

func (f *fakeTasks) DeleteTask(ctx context.Context, taskID string) error {
	if taskID == f.failOn {
		return errors.New("rate limited")
	}
	f.deleted = append(f.deleted, taskID)
	return nil
}

func TestDedupeList(t *testing.T) {
	store := &fakeTasks{tasks: sampleTasks(), failOn: "t3"}
	deduper := NewDeduper(DeduperDependencies{Tasks: store})

	report, err := deduper.DedupeList(context.Background(), "l1", false)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Scanned)
	assert.Equal(t, []string{"t2"}, store.deleted)
	assert.Equal(t, []string{"t2"}, report.Deleted)
	assert.Contains(t, report.Failed, "t3")
	assert.Contains(t, report.Summary(), "1 deletions failed")
}

func TestDedupeList_DryRun(t *testing.T) {
	store := &fakeTasks{tasks: sampleTasks()}

	report, err := NewDeduper(DeduperDependencies{Tasks: store}).DedupeList(context.Background(), "l1", true)
	require.NoError(t, err)

	assert.Empty(t, store.deleted)
	require.Len(t, report.Groups, 1)
	assert.Contains(t, report.Summary(), "keep t1, duplicates: t2 t3")
}

func TestDedupeTask(t *testing.T) {
	tasks := append(sampleTasks(),
		task("t7", "Weekly blog", t0, day2),
		task("t8", "weekly blog", t0.Add(time.Minute), day2),
	)

	store := &fakeTasks{tasks: tasks}
	deduper := NewDeduper(DeduperDependencies{Tasks: store})

	report, err := deduper.DedupeTask(context.Background(), "t8", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"t8"}, store.deleted)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, "t7", report.Groups[0].Keep.ID)
}

func TestDedupeTask_NoDueDateIsIgnored(t *testing.T) {
	store := &fakeTasks{tasks: sampleTasks()}

	report, err := NewDeduper(DeduperDependencies{Tasks: store}).DedupeTask(context.Background(), "t6", false)
	require.NoError(t, err)

	assert.Empty(t, report.Groups)
	assert.Equal(t, 0, store.listCalls)
}

func TestDedupeTask_Missing(t *testing.T) {
	store := &fakeTasks{}

	_, err := NewDeduper(DeduperDependencies{Tasks: store}).DedupeTask(context.Background(), "nope", false)
	assert.True(t, clickup.IsNotFoundError(err))
}
