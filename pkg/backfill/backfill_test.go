package backfill

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []Item

func (s staticSource) Items(ctx context.Context) ([]Item, error) {
	return s, nil
}

type recordingProcessor struct {
	fail  map[string]bool
	calls []string
}

func (p *recordingProcessor) Process(ctx context.Context, item Item) error {
	p.calls = append(p.calls, item.ID)
	if p.fail[item.ID] {
		return fmt.Errorf("downstream rejected %s", item.ID)
	}
	return nil
}

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func items(ids ...string) staticSource {
	out := make(staticSource, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, Date: "2026-10-01"}
	}
	return out
}

func keys(docs map[string]domain.ProcessedDoc) []string {
	out := make([]string, 0, len(docs))
	for id := range docs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func TestRun_SkipsProcessedIDs(t *testing.T) {
	store := NewMemoryStore(map[string]domain.ProcessedDoc{
		"a": {Date: "2026-09-01"},
		"b": {Date: "2026-09-02"},
	})
	processor := &recordingProcessor{}

	report, err := NewRunner(RunnerDependencies{
		Source:    items("a", "c", "b", "d"),
		Store:     store,
		Processor: processor,
		Now:       func() time.Time { return fixedNow },
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, processor.calls)
	assert.Equal(t, 4, report.Seen)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, []string{"c", "d"}, report.ProcessedIDs)

	docs, _ := store.Processed(context.Background())
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys(docs))
	assert.Equal(t, fixedNow, docs["c"].ProcessedAt)
	assert.Equal(t, "2026-10-01", docs["c"].Date)
}

func TestRun_FailedItemIsNeverMarked(t *testing.T) {
	store := NewMemoryStore(nil)
	processor := &recordingProcessor{fail: map[string]bool{"b": true}}

	runner := NewRunner(RunnerDependencies{Source: items("a", "b", "c"), Store: store, Processor: processor})

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b", report.Failures[0].ID)

	docs, _ := store.Processed(context.Background())
	assert.Equal(t, []string{"a", "c"}, keys(docs))

	processor.fail = nil
	processor.calls = nil
	firstRun := report.RunID

	report, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, firstRun, report.RunID)

	assert.Equal(t, []string{"b"}, processor.calls)
	assert.Equal(t, 2, report.Skipped)
}

func TestRun_DuplicateIDsInBatchProcessedOnce(t *testing.T) {
	processor := &recordingProcessor{}

	report, err := NewRunner(RunnerDependencies{
		Source:    items("a", "a", "b"),
		Store:     NewMemoryStore(nil),
		Processor: processor,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, processor.calls)
	assert.Equal(t, 1, report.Skipped)
}

func TestRun_MissingIDIsAFailure(t *testing.T) {
	report, err := NewRunner(RunnerDependencies{
		Source:    staticSource{{Name: "no id"}},
		Store:     NewMemoryStore(nil),
		Processor: &recordingProcessor{},
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Failures[0].Err, ErrMissingID)
}

func TestRun_DryRunDoesNotProcessOrMark(t *testing.T) {
	store := NewMemoryStore(map[string]domain.ProcessedDoc{"a": {}})
	processor := &recordingProcessor{}

	report, err := NewRunner(RunnerDependencies{
		Source:    items("a", "b", "c"),
		Store:     store,
		Processor: processor,
		DryRun:    true,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, processor.calls)
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, []string{"b", "c"}, report.PendingIDs)

	docs, _ := store.Processed(context.Background())
	assert.Equal(t, []string{"a"}, keys(docs))
}

func TestRun_Limit(t *testing.T) {
	processor := &recordingProcessor{}

	report, err := NewRunner(RunnerDependencies{
		Source:    items("a", "b", "c"),
		Store:     NewMemoryStore(nil),
		Processor: processor,
		Limit:     2,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, processor.calls)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, []string{"c"}, report.DeferredIDs)
}

func TestRun_LimitDefersWithoutMarking(t *testing.T) {
	store := NewMemoryStore(nil)
	processor := &recordingProcessor{}

	runner := NewRunner(RunnerDependencies{
		Source:    items("a", "b", "c"),
		Store:     store,
		Processor: processor,
		Limit:     1,
	})

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Deferred)

	report, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []string{"c"}, report.DeferredIDs)

	assert.Equal(t, []string{"a", "b"}, processor.calls)
}

type failingMarkStore struct {
	*MemoryStore
}

func (s failingMarkStore) Mark(ctx context.Context, id string, doc domain.ProcessedDoc) error {
	return errors.New("store unavailable")
}

func TestRun_StopsWhenMarkFails(t *testing.T) {
	processor := &recordingProcessor{}

	report, err := NewRunner(RunnerDependencies{
		Source:    items("a", "b"),
		Store:     failingMarkStore{NewMemoryStore(nil)},
		Processor: processor,
	}).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "item a was processed but could not be marked")
	assert.Equal(t, []string{"a"}, processor.calls)
	assert.Equal(t, 0, report.Processed)
}

// A run interrupted mid-way (the process dies during item n) leaves exactly
// the items that finished before n marked.
func TestRun_CancelledMidRunNeverMarksUnprocessed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore(nil)

	processor := ProcessorFunc(func(ctx context.Context, item Item) error {
		if item.ID == "c" {
			cancel()
			return ctx.Err()
		}
		return nil
	})

	_, err := NewRunner(RunnerDependencies{Source: items("a", "b", "c", "d"), Store: store, Processor: processor}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	docs, _ := store.Processed(context.Background())
	assert.Equal(t, []string{"a", "b"}, keys(docs))
}

// Processed set after a run equals the old set plus the ids whose processor
// succeeded, for random batches and failure patterns.
func TestRun_ProcessedSetIsUnionOfOldAndSuccesses(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 100; run++ {
		old := map[string]domain.ProcessedDoc{}
		oldCount := rng.Intn(10)
		for i := 0; i < oldCount; i++ {
			old[fmt.Sprintf("doc-%d", rng.Intn(30))] = domain.ProcessedDoc{}
		}

		var batch staticSource
		fail := map[string]bool{}
		batchSize := rng.Intn(20)
		for i := 0; i < batchSize; i++ {
			id := fmt.Sprintf("doc-%d", rng.Intn(30))
			batch = append(batch, Item{ID: id})
			if rng.Intn(4) == 0 {
				fail[id] = true
			}
		}

		store := NewMemoryStore(old)
		processor := &recordingProcessor{fail: fail}

		_, err := NewRunner(RunnerDependencies{Source: batch, Store: store, Processor: processor}).Run(context.Background())
		require.NoError(t, err)

		want := map[string]bool{}
		for id := range old {
			want[id] = true
		}
		for _, item := range batch {
			if _, seen := old[item.ID]; !seen && !fail[item.ID] {
				want[item.ID] = true
			}
		}

		got, _ := store.Processed(context.Background())
		require.Len(t, got, len(want), "run %d", run)
		for id := range got {
			assert.True(t, want[id], "run %d: %s marked unexpectedly", run, id)
		}

		for _, id := range processor.calls {
			_, wasOld := old[id]
			assert.False(t, wasOld, "run %d: %s processed twice", run, id)
		}
	}
}
