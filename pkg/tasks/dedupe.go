// Package tasks cleans up ClickUp tasks that automations created twice for
// the same day.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EventDuplicateFound   = "task_duplicate_found"
	EventDuplicateDeleted = "task_duplicate_deleted"
	EventDeleteFailed     = "task_delete_failed"
)

type TaskStore interface {
	GetTask(ctx context.Context, taskID string) (*clickup.Task, error)
	ListAllTasks(ctx context.Context, listID string, includeClosed bool) ([]clickup.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// GroupKey identifies tasks that count as the same piece of work.
type GroupKey struct {
	Name string
	Due  string
}

type DuplicateGroup struct {
	Key        GroupKey
	Keep       clickup.Task
	Duplicates []clickup.Task
}

type Report struct {
	Scanned int
	Groups  []DuplicateGroup
	Deleted []string
	Failed  map[string]error
}

// NormalizeName lowercases, drops punctuation and collapses whitespace so
// "Post: Court Reminder " and "post court reminder" group together.
func NormalizeName(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func keyOf(task clickup.Task, location *time.Location) (GroupKey, bool) {
	due, ok := task.Due()
	if !ok {
		return GroupKey{}, false
	}

	return GroupKey{Name: NormalizeName(task.Name), Due: due.In(location).Format("2006-01-02")}, true
}

// FindDuplicates groups tasks by normalized name and due day and keeps the
// earliest created task of every group with more than one member. Tasks
// without a due date are never treated as duplicates.
func FindDuplicates(tasks []clickup.Task, location *time.Location) []DuplicateGroup {
	if location == nil {
		location = time.UTC
	}

	groups := map[GroupKey][]clickup.Task{}
	for _, task := range tasks {
		key, ok := keyOf(task, location)
		if !ok {
			continue
		}
		groups[key] = append(groups[key], task)
	}

	var duplicates []DuplicateGroup

	for key, members := range groups {
		if len(members) < 2 {
			continue
		}

		sort.SliceStable(members, func(i, j int) bool {
			ci, cj := members[i].CreatedAt(), members[j].CreatedAt()
			if !ci.Equal(cj) {
				return ci.Before(cj)
			}
			return members[i].ID < members[j].ID
		})

		duplicates = append(duplicates, DuplicateGroup{
			Key:        key,
			Keep:       members[0],
			Duplicates: members[1:],
		})
	}

	sort.Slice(duplicates, func(i, j int) bool {
		if duplicates[i].Key.Due != duplicates[j].Key.Due {
			return duplicates[i].Key.Due < duplicates[j].Key.Due
		}
		return duplicates[i].Key.Name < duplicates[j].Key.Name
	})

	return duplicates
}

type Deduper struct {
	tasks    TaskStore
	location *time.Location
	logger   zerolog.Logger
}

type DeduperDependencies struct {
	Tasks    TaskStore
	Location *time.Location
	Logger   *zerolog.Logger
}

func NewDeduper(deps DeduperDependencies) *Deduper {
	location := deps.Location
	if location == nil {
		location = time.UTC
	}

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Deduper{
		tasks:    deps.Tasks,
		location: location,
		logger:   logger.With().Str("component", "dedupe").Logger(),
	}
}

// DedupeList removes every duplicate in a list. With dryRun the duplicates
// are only reported.
func (d *Deduper) DedupeList(ctx context.Context, listID string, dryRun bool) (*Report, error) {
	all, err := d.tasks.ListAllTasks(ctx, listID, false)
	if err != nil {
		return nil, err
	}

	report := &Report{Scanned: len(all), Groups: FindDuplicates(all, d.location)}
	d.deleteGroups(ctx, report, dryRun)

	return report, nil
}

// DedupeTask handles one freshly created task: if an older task with the
// same name and due day exists in its list, the duplicates of that group are
// removed. Other groups in the list are left alone.
func (d *Deduper) DedupeTask(ctx context.Context, taskID string, dryRun bool) (*Report, error) {
	task, err := d.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	key, ok := keyOf(*task, d.location)
	if !ok || task.List.ID == "" {
		return report, nil
	}

	all, err := d.tasks.ListAllTasks(ctx, task.List.ID, false)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(all)

	for _, group := range FindDuplicates(all, d.location) {
		if group.Key == key {
			report.Groups = append(report.Groups, group)
		}
	}

	d.deleteGroups(ctx, report, dryRun)

	return report, nil
}

func (d *Deduper) deleteGroups(ctx context.Context, report *Report, dryRun bool) {
	for _, group := range report.Groups {
		for _, duplicate := range group.Duplicates {
			logger := d.logger.With().
				Str("task_id", duplicate.ID).
				Str("keep_id", group.Keep.ID).
				Str("name", group.Key.Name).
				Str("due", group.Key.Due).
				Logger()

			logger.Info().Str("event", EventDuplicateFound).Bool("dry_run", dryRun).Msg("Duplicate task")

			if dryRun {
				continue
			}

			if err := d.tasks.DeleteTask(ctx, duplicate.ID); err != nil {
				if report.Failed == nil {
					report.Failed = map[string]error{}
				}
				report.Failed[duplicate.ID] = err
				logger.Error().Err(err).Str("event", EventDeleteFailed).Msg("Failed to delete duplicate")
				continue
			}

			report.Deleted = append(report.Deleted, duplicate.ID)
			logger.Info().Str("event", EventDuplicateDeleted).Msg("Deleted duplicate")
		}
	}
}

// Summary renders the report for the CLI.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "scanned %d tasks, %d duplicate groups\n", r.Scanned, len(r.Groups))
	for _, group := range r.Groups {
		fmt.Fprintf(&b, "%s  %q keep %s, duplicates:", group.Key.Due, group.Keep.Name, group.Keep.ID)
		for _, duplicate := range group.Duplicates {
			fmt.Fprintf(&b, " %s", duplicate.ID)
		}
		b.WriteString("\n")
	}

	if len(r.Deleted) > 0 {
		fmt.Fprintf(&b, "deleted %d tasks\n", len(r.Deleted))
	}

	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "%d deletions failed\n", len(r.Failed))
	}

	return b.String()
}
