// Package engine runs an executor over the task list, pass after pass, and
// fans every recorded visit out to the registered sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/go-scripts/kwassist/internal/queue"
	"github.com/go-scripts/kwassist/internal/types"
)

// ErrAlreadyRunning is returned when Run is called while another run is active
var ErrAlreadyRunning = errors.New("a run is already active")

// Executor processes one task: it reports a visit for every result found,
// in discovery order, and returns once the task is complete
type Executor interface {
	Name() string
	ExecuteTask(ctx context.Context, task types.Task, visit func(types.Visit)) error
}

// Sink receives every log entry synchronously, before the next result is
// processed
type Sink interface {
	Emit(entry types.LogEntry)
}

// TaskSink is implemented by sinks that track pass and task progress
type TaskSink interface {
	PassStarted(pass, tasks int)
	TaskStarted(task types.Task)
	TaskDone(task types.Task)
}

// SummarySink is implemented by sinks that keep a record of finished runs
type SummarySink interface {
	WriteSummary(summary types.RunSummary) error
}

// RunError reports the task a run failed on
type RunError struct {
	Mode    string
	TaskID  int
	Keyword string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s run failed on task %d (%q): %v", e.Mode, e.TaskID, e.Keyword, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Driver owns the single active run and its cancellation scope
type Driver struct {
	store  *queue.Store
	sinks  []Sink
	logger *log.Logger
	now    func() time.Time
	newID  func() string
	loop   atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option customizes a Driver
type Option func(*Driver)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSinks registers sinks in the order they are notified
func WithSinks(sinks ...Sink) Option {
	return func(d *Driver) { d.sinks = append(d.sinks, sinks...) }
}

// WithLoop sets the initial loop flag
func WithLoop(loop bool) Option {
	return func(d *Driver) { d.loop.Store(loop) }
}

// WithClock replaces time.Now for log entry timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New creates a Driver over store
func New(store *queue.Store, opts ...Option) *Driver {
	d := &Driver{
		store:  store,
		logger: log.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLoop changes the loop flag. It is read at the end of every pass, so
// clearing it lets the current pass finish and then ends the run.
func (d *Driver) SetLoop(loop bool) {
	d.loop.Store(loop)
}

// Loop reports the loop flag
func (d *Driver) Loop() bool {
	return d.loop.Load()
}

// Running reports whether a run is active
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Stop cancels the active run, if any. Run returns once the executor has
// unwound.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Run processes every task with exec until the task list is exhausted and
// the loop flag is off, ctx is cancelled or Stop is called. A stop is a
// clean return; any other failure is returned as a *RunError after the
// results recorded so far have been kept.
func (d *Driver) Run(ctx context.Context, exec Executor) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	if d.store.Len() == 0 {
		d.mu.Unlock()
		return queue.ErrEmpty
	}
	d.cancel = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
	}()

	r := &run{
		driver: d,
		exec:   exec,
		summary: types.RunSummary{
			RunID:     d.newID(),
			Mode:      exec.Name(),
			StartedAt: d.now(),
		},
	}
	r.logger = d.logger.With("run", r.summary.RunID, "mode", r.summary.Mode)
	r.logger.Info("Run started", "tasks", d.store.Len(), "loop", d.Loop())

	err := r.passes(runCtx)

	r.summary.FinishedAt = d.now()
	switch {
	case err == nil:
		r.logger.Info("Run finished", "passes", r.summary.Passes, "visits", r.summary.Visits)
	case runCtx.Err() != nil && isCancellation(err):
		r.summary.Cancelled = true
		r.logger.Info("Run stopped", "passes", r.summary.Passes, "visits", r.summary.Visits)
		err = nil
	default:
		r.summary.Error = err.Error()
		r.logger.Error("Run failed", "err", err)
	}

	d.writeSummary(r.summary)
	return err
}

func (d *Driver) writeSummary(summary types.RunSummary) {
	for _, s := range d.sinks {
		ss, ok := s.(SummarySink)
		if !ok {
			continue
		}
		if err := ss.WriteSummary(summary); err != nil {
			d.logger.Warn("Writing run summary failed", "err", err)
		}
	}
}

// run is the state of one Run call
type run struct {
	driver  *Driver
	exec    Executor
	logger  *log.Logger
	summary types.RunSummary
}

func (r *run) passes(ctx context.Context) error {
	d := r.driver
	for {
		r.summary.Passes++
		pass := r.summary.Passes

		reset := d.store.ResetPass()
		tasks := d.store.Snapshot()
		r.logger.Debug("Pass started", "pass", pass, "tasks", len(tasks), "reset", reset)
		r.eachTaskSink(func(s TaskSink) { s.PassStarted(pass, len(tasks)) })

		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.task(ctx, pass, task); err != nil {
				return err
			}
		}

		if !d.Loop() {
			return nil
		}
	}
}

func (r *run) task(ctx context.Context, pass int, task types.Task) error {
	d := r.driver

	r.logger.Info("Task started", "pass", pass, "task", task.ID, "keyword", task.Keyword)
	r.eachTaskSink(func(s TaskSink) { s.TaskStarted(task) })

	err := r.exec.ExecuteTask(ctx, task, func(v types.Visit) {
		r.record(pass, task, v)
	})
	if err != nil {
		if ctx.Err() != nil && isCancellation(err) {
			return err
		}
		return &RunError{Mode: r.exec.Name(), TaskID: task.ID, Keyword: task.Keyword, Err: err}
	}

	if err := d.store.MarkDone(task.ID); err != nil {
		return &RunError{Mode: r.exec.Name(), TaskID: task.ID, Keyword: task.Keyword, Err: err}
	}
	done, err := d.store.Get(task.ID)
	if err != nil {
		done = task
		done.Status = types.StatusDone
	}
	r.eachTaskSink(func(s TaskSink) { s.TaskDone(done) })
	return nil
}

// record stores the visit on the task and emits its log entry
func (r *run) record(pass int, task types.Task, v types.Visit) {
	d := r.driver
	if _, err := d.store.RecordVisit(task.ID, v); err != nil {
		r.logger.Warn("Recording visit failed", "task", task.ID, "err", err)
	}

	r.summary.Visits++
	switch v.DwellTime {
	case types.DwellIgnored:
		r.summary.Ignored++
	case types.DwellTimeout:
		r.summary.Timeouts++
	}

	entry := types.LogEntry{
		RunID:     r.summary.RunID,
		Mode:      r.summary.Mode,
		Pass:      pass,
		TaskID:    task.ID,
		Keyword:   task.Keyword,
		Title:     v.Title,
		URL:       v.URL,
		DwellTime: v.DwellTime,
		IP:        v.IP,
		Time:      d.now(),
	}
	r.logger.Debug("Visit", "task", task.ID, "title", v.Title, "url", v.URL, "dwell", v.DwellTime)
	for _, s := range d.sinks {
		s.Emit(entry)
	}
}

func (r *run) eachTaskSink(fn func(TaskSink)) {
	for _, s := range r.driver.sinks {
		if ts, ok := s.(TaskSink); ok {
			fn(ts)
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
