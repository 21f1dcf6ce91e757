package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/kwassist/internal/types"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := New()

	first, err := s.Add("", "golang")
	require.NoError(t, err)
	n := s.AddGroup(types.Group{Name: "shoes", Keywords: []string{"red shoes", " ", "blue shoes"}})

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, s.Len())

	for i, task := range s.Snapshot() {
		assert.Equal(t, i+1, task.ID)
		assert.Equal(t, types.StatusPending, task.Status)
	}

	second, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "shoes", second.GroupName)
	assert.Equal(t, "red shoes", second.Keyword)
}

func TestAddRejectsBlankKeyword(t *testing.T) {
	s := New()
	_, err := s.Add("g", "   ")
	assert.ErrorIs(t, err, ErrEmptyKeyword)
	assert.Equal(t, 0, s.Len())
}

func TestResetPassStopsAtFirstPending(t *testing.T) {
	s := New()
	for _, kw := range []string{"a", "b", "c"} {
		_, err := s.Add("", kw)
		require.NoError(t, err)
	}

	require.NoError(t, s.MarkDone(1))
	require.NoError(t, s.MarkDone(3))

	// task 2 is pending, so task 3 keeps its status
	assert.Equal(t, 1, s.ResetPass())
	tasks := s.Snapshot()
	assert.Equal(t, types.StatusPending, tasks[0].Status)
	assert.Equal(t, types.StatusPending, tasks[1].Status)
	assert.Equal(t, types.StatusDone, tasks[2].Status)
}

func TestResetPassAfterFullPass(t *testing.T) {
	s := New()
	for _, kw := range []string{"a", "b"} {
		_, err := s.Add("", kw)
		require.NoError(t, err)
	}
	require.NoError(t, s.MarkDone(1))
	require.NoError(t, s.MarkDone(2))

	assert.Equal(t, 2, s.ResetPass())
	assert.Equal(t, 0, s.ResetPass(), "second reset in the same pass is a no-op")
}

func TestRecordVisitOverwritesLatest(t *testing.T) {
	s := New()
	_, err := s.Add("", "kw")
	require.NoError(t, err)

	_, err = s.RecordVisit(1, types.Visit{Title: "one", URL: "a.com", DwellTime: "10 ms", IP: "1.1.1.1"})
	require.NoError(t, err)
	got, err := s.RecordVisit(1, types.Visit{Title: "two", URL: "b.com", DwellTime: types.DwellIgnored})
	require.NoError(t, err)

	assert.Equal(t, "two", got.Title)
	assert.Equal(t, "b.com", got.URL)
	assert.Equal(t, types.DwellIgnored, got.DwellTime)
	assert.Empty(t, got.IP)
}

func TestUnknownID(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.MarkDone(1), ErrNotFound)
	_, err := s.Get(0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.RecordVisit(5, types.Visit{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	s := New()
	_, _ = s.Add("", "a")
	s.Clear()
	assert.Equal(t, 0, s.Len())

	task, err := s.Add("", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, task.ID)
}
