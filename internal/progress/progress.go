package progress

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/go-scripts/kwassist/internal/types"
)

// Tracker follows how far the current pass has come. It is registered with
// the engine as a sink.
type Tracker struct {
	bar     progress.Model
	pass    int
	total   int
	done    int
	visits  int
	current string
	mu      sync.Mutex
}

// New creates a Tracker
func New() *Tracker {
	return &Tracker{
		bar: progress.New(progress.WithDefaultGradient()),
	}
}

// SetTotal sets the number of tasks in the pass
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// Done counts one finished task
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done < t.total {
		t.done++
	}
}

// Reset forgets all progress
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pass, t.total, t.done, t.visits = 0, 0, 0, 0
	t.current = ""
}

// Percent returns the finished share of the pass in [0, 1]
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent()
}

func (t *Tracker) percent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.done) / float64(t.total)
}

// View renders the bar followed by the pass counters
func (t *Tracker) View(width int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	bar := t.bar
	if width > 0 {
		bar.Width = width
	}
	line := fmt.Sprintf("%s  pass %d  %d/%d tasks  %d results", bar.ViewAs(t.percent()), t.pass, t.done, t.total, t.visits)
	if t.current != "" {
		line += "  " + t.current
	}
	return line
}

func (t *Tracker) Emit(types.LogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visits++
}

func (t *Tracker) PassStarted(pass, tasks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pass = pass
	t.total = tasks
	t.done = 0
}

func (t *Tracker) TaskStarted(task types.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = task.Keyword
}

func (t *Tracker) TaskDone(types.Task) {
	t.Done()
}
