package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/kwassist/internal/types"
)

func TestTrackerFollowsPasses(t *testing.T) {
	tr := New()
	assert.Zero(t, tr.Percent())

	tr.PassStarted(1, 4)
	tr.TaskStarted(types.Task{ID: 1, Keyword: "golang"})
	tr.Emit(types.LogEntry{})
	tr.Emit(types.LogEntry{})
	tr.TaskDone(types.Task{ID: 1})
	assert.InDelta(t, 0.25, tr.Percent(), 1e-9)

	view := tr.View(20)
	assert.Contains(t, view, "pass 1")
	assert.Contains(t, view, "1/4 tasks")
	assert.Contains(t, view, "2 results")
	assert.Contains(t, view, "golang")

	// a new pass starts from zero but keeps the result count
	tr.PassStarted(2, 4)
	assert.Zero(t, tr.Percent())
	assert.Contains(t, tr.View(20), "2 results")
}

func TestDoneNeverExceedsTotal(t *testing.T) {
	tr := New()
	tr.SetTotal(2)
	for i := 0; i < 5; i++ {
		tr.Done()
	}
	assert.Equal(t, 1.0, tr.Percent())

	tr.Reset()
	assert.Zero(t, tr.Percent())
	assert.Contains(t, tr.View(0), "0/0 tasks")
}
