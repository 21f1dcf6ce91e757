package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/kwassist/internal/queue"
	"github.com/go-scripts/kwassist/internal/types"
)

// scriptedExecutor reports canned visits per keyword and lets a test hook in
// before each task
type scriptedExecutor struct {
	visits map[string][]types.Visit
	before func(ctx context.Context, task types.Task) error
	seen   []types.Task
}

func (e *scriptedExecutor) Name() string { return "scripted" }

func (e *scriptedExecutor) ExecuteTask(ctx context.Context, task types.Task, visit func(types.Visit)) error {
	e.seen = append(e.seen, task)
	if e.before != nil {
		if err := e.before(ctx, task); err != nil {
			return err
		}
	}
	for _, v := range e.visits[task.Keyword] {
		if err := ctx.Err(); err != nil {
			return err
		}
		visit(v)
	}
	return ctx.Err()
}

type memorySink struct {
	mu        sync.Mutex
	entries   []types.LogEntry
	passes    []int
	started   []int
	done      []types.Task
	summaries []types.RunSummary
}

func (s *memorySink) Emit(e types.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *memorySink) PassStarted(pass, _ int) {
	s.passes = append(s.passes, pass)
}

func (s *memorySink) TaskStarted(t types.Task) {
	s.started = append(s.started, t.ID)
}

func (s *memorySink) TaskDone(t types.Task) {
	s.done = append(s.done, t)
}

func (s *memorySink) WriteSummary(summary types.RunSummary) error {
	s.summaries = append(s.summaries, summary)
	return nil
}

func newStore(t *testing.T, keywords ...string) *queue.Store {
	t.Helper()
	s := queue.New()
	for _, kw := range keywords {
		_, err := s.Add("", kw)
		require.NoError(t, err)
	}
	return s
}

func newDriver(store *queue.Store, sink *memorySink, opts ...Option) *Driver {
	opts = append([]Option{WithLogger(log.New(io.Discard)), WithSinks(sink)}, opts...)
	return New(store, opts...)
}

func TestRunSinglePass(t *testing.T) {
	store := newStore(t, "alpha", "beta")
	sink := &memorySink{}
	exec := &scriptedExecutor{visits: map[string][]types.Visit{
		"alpha": {
			{Title: "A1", URL: "https://a1", DwellTime: "120 ms", IP: "10.0.0.1"},
			{Title: "A2", URL: "a2.example", DwellTime: types.DwellIgnored},
		},
		"beta": {
			{Title: "B1", URL: "https://b1", DwellTime: types.DwellTimeout},
		},
	}}

	d := newDriver(store, sink)
	require.NoError(t, d.Run(context.Background(), exec))
	assert.False(t, d.Running())

	require.Len(t, sink.entries, 3)
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{sink.entries[0].Title, sink.entries[1].Title, sink.entries[2].Title})
	assert.Equal(t, 1, sink.entries[0].TaskID)
	assert.Equal(t, 2, sink.entries[2].TaskID)
	assert.Equal(t, "scripted", sink.entries[0].Mode)
	assert.NotEmpty(t, sink.entries[0].RunID)

	for _, task := range store.Snapshot() {
		assert.Equal(t, types.StatusDone, task.Status)
	}
	alpha, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "A2", alpha.Title, "task keeps the latest visit")

	assert.Equal(t, []int{1}, sink.passes)
	assert.Equal(t, []int{1, 2}, sink.started)
	require.Len(t, sink.done, 2)
	assert.Equal(t, types.StatusDone, sink.done[0].Status)

	require.Len(t, sink.summaries, 1)
	summary := sink.summaries[0]
	assert.Equal(t, 1, summary.Passes)
	assert.Equal(t, 3, summary.Visits)
	assert.Equal(t, 1, summary.Ignored)
	assert.Equal(t, 1, summary.Timeouts)
	assert.False(t, summary.Cancelled)
	assert.Empty(t, summary.Error)
	assert.Equal(t, sink.entries[0].RunID, summary.RunID)
}

func TestRunLoopsUntilFlagCleared(t *testing.T) {
	store := newStore(t, "alpha", "beta")
	sink := &memorySink{}
	exec := &scriptedExecutor{}

	d := newDriver(store, sink, WithLoop(true))
	var statusAtStart []types.Status
	exec.before = func(_ context.Context, task types.Task) error {
		current, err := store.Get(task.ID)
		require.NoError(t, err)
		statusAtStart = append(statusAtStart, current.Status)

		// switch looping off halfway through the third pass
		if len(exec.seen) == 5 {
			d.SetLoop(false)
		}
		return nil
	}

	require.NoError(t, d.Run(context.Background(), exec))

	assert.Len(t, exec.seen, 6)
	assert.Equal(t, []int{1, 2, 3}, sink.passes)
	for _, s := range statusAtStart {
		assert.Equal(t, types.StatusPending, s, "every pass starts from pending tasks")
	}
	assert.Equal(t, 3, sink.summaries[0].Passes)
}

func TestStopLeavesCurrentTaskPending(t *testing.T) {
	store := newStore(t, "alpha", "beta")
	sink := &memorySink{}
	exec := &scriptedExecutor{visits: map[string][]types.Visit{
		"alpha": {
			{Title: "A1", URL: "https://a1", DwellTime: "80 ms"},
			{Title: "never reported"},
		},
	}}

	// the operator stops the run right after the first result is logged
	d := New(store, WithLogger(log.New(io.Discard)))
	d.sinks = []Sink{&stopAfterFirstVisit{Sink: sink, driver: d}}

	require.NoError(t, d.Run(context.Background(), exec), "a stop is not an error")

	alpha, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, alpha.Status)
	assert.Equal(t, "A1", alpha.Title, "results recorded before the stop are kept")

	assert.Len(t, exec.seen, 1, "no further tasks after a stop")
	require.Len(t, sink.entries, 1)
	require.Len(t, sink.summaries, 1)
	assert.True(t, sink.summaries[0].Cancelled)
	assert.Empty(t, sink.summaries[0].Error)
}

// stopAfterFirstVisit stops the run as soon as the first entry arrives
type stopAfterFirstVisit struct {
	Sink
	driver *Driver
	once   sync.Once
}

func (s *stopAfterFirstVisit) Emit(e types.LogEntry) {
	s.Sink.Emit(e)
	s.once.Do(s.driver.Stop)
}

func (s *stopAfterFirstVisit) WriteSummary(summary types.RunSummary) error {
	return s.Sink.(SummarySink).WriteSummary(summary)
}

func TestFatalErrorStopsRun(t *testing.T) {
	store := newStore(t, "alpha", "beta", "gamma")
	sink := &memorySink{}
	boom := errors.New("browser crashed")
	exec := &scriptedExecutor{before: func(_ context.Context, task types.Task) error {
		if task.Keyword == "beta" {
			return boom
		}
		return nil
	}}

	d := newDriver(store, sink, WithLoop(true))
	err := d.Run(context.Background(), exec)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, runErr.TaskID)
	assert.Equal(t, "beta", runErr.Keyword)
	assert.Equal(t, "scripted", runErr.Mode)

	first, _ := store.Get(1)
	second, _ := store.Get(2)
	assert.Equal(t, types.StatusDone, first.Status)
	assert.Equal(t, types.StatusPending, second.Status)
	assert.Len(t, exec.seen, 2)
	assert.Contains(t, sink.summaries[0].Error, "browser crashed")
	assert.False(t, d.Running())
}

func TestRunRejectsSecondRun(t *testing.T) {
	store := newStore(t, "alpha")
	sink := &memorySink{}
	started := make(chan struct{})
	exec := &scriptedExecutor{before: func(ctx context.Context, _ types.Task) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}

	d := newDriver(store, sink)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), exec) }()

	<-started
	assert.True(t, d.Running())
	assert.ErrorIs(t, d.Run(context.Background(), &scriptedExecutor{}), ErrAlreadyRunning)

	d.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.False(t, d.Running())
}

func TestRunEmptyStore(t *testing.T) {
	d := newDriver(queue.New(), &memorySink{})
	assert.ErrorIs(t, d.Run(context.Background(), &scriptedExecutor{}), queue.ErrEmpty)
	assert.False(t, d.Running())
}

func TestParentCancellationIsCleanStop(t *testing.T) {
	store := newStore(t, "alpha")
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())
	exec := &scriptedExecutor{before: func(context.Context, types.Task) error {
		cancel()
		return context.Canceled
	}}

	d := newDriver(store, sink)
	assert.NoError(t, d.Run(ctx, exec))
	assert.True(t, sink.summaries[0].Cancelled)
}
