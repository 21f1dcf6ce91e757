package queue

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-scripts/kwassist/internal/types"
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrEmptyKeyword = errors.New("keyword is empty")
	ErrEmpty        = errors.New("no tasks queued")
)

// Store is the ordered task list shared by the engine and the UI.
// Ids are 1-based and match the task's position; the engine relies on it,
// so the list must not be edited while a run is active.
type Store struct {
	tasks []*types.Task
	mu    sync.Mutex
}

// New creates an empty Store
func New() *Store {
	return &Store{
		tasks: make([]*types.Task, 0),
	}
}

// Add appends a pending task and returns a copy of it
func (s *Store) Add(groupName, keyword string) (types.Task, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return types.Task{}, ErrEmptyKeyword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &types.Task{
		ID:        len(s.tasks) + 1,
		GroupName: groupName,
		Keyword:   keyword,
		Status:    types.StatusPending,
	}
	s.tasks = append(s.tasks, t)
	return *t, nil
}

// AddGroup appends one task per keyword of the group, skipping blanks.
// It returns the number of tasks added.
func (s *Store) AddGroup(g types.Group) int {
	added := 0
	for _, kw := range g.Keywords {
		if _, err := s.Add(g.Name, kw); err == nil {
			added++
		}
	}
	return added
}

// Snapshot returns copies of all tasks in order
func (s *Store) Snapshot() []types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}

// Get returns a copy of the task with the given id
func (s *Store) Get(id int) (types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.at(id)
	if err != nil {
		return types.Task{}, err
	}
	return *t, nil
}

// Len returns the number of tasks
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// ResetPass marks tasks pending again before a new pass. It walks the list
// in order and stops at the first task that is already pending, so calling
// it twice in the same pass is harmless.
func (s *Store) ResetPass() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset := 0
	for _, t := range s.tasks {
		if t.Status == types.StatusPending {
			break
		}
		t.Status = types.StatusPending
		reset++
	}
	return reset
}

// MarkDone flags the task as finished for this pass
func (s *Store) MarkDone(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.at(id)
	if err != nil {
		return err
	}
	t.Status = types.StatusDone
	return nil
}

// RecordVisit overwrites the task's per-visit fields and returns the updated copy
func (s *Store) RecordVisit(id int, v types.Visit) (types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.at(id)
	if err != nil {
		return types.Task{}, err
	}
	t.Title = v.Title
	t.URL = v.URL
	t.DwellTime = v.DwellTime
	t.IP = v.IP
	return *t, nil
}

// Clear removes every task
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = s.tasks[:0]
}

// at resolves an id positionally. Caller holds mu.
func (s *Store) at(id int) (*types.Task, error) {
	if id < 1 || id > len(s.tasks) {
		return nil, ErrNotFound
	}
	return s.tasks[id-1], nil
}
