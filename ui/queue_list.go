package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/kwassist/internal/types"
)

// TaskItem is one row of the task list
type TaskItem struct {
	task   types.Task
	active bool
}

// FilterValue implements list.Item interface
func (i TaskItem) FilterValue() string { return i.task.Keyword }

// Title returns the item's title
func (i TaskItem) Title() string {
	marker := " "
	if i.active {
		marker = "▶"
	}
	return fmt.Sprintf("%s %d. %s", marker, i.task.ID, i.task.Keyword)
}

// Description returns the item's description
func (i TaskItem) Description() string {
	group := i.task.GroupName
	if group == "" {
		group = "-"
	}
	desc := fmt.Sprintf("Group: %s | Status: %s", group, i.task.Status)
	if i.task.DwellTime != "" {
		desc += " | Last: " + i.task.DwellTime
	}
	return desc
}

// TaskList shows the queued tasks and their status in the current pass
type TaskList struct {
	list   list.Model
	width  int
	height int
	active int
}

// NewTaskList creates a new task list
func NewTaskList() *TaskList {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("170"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("244"))

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Tasks"
	l.Styles.Title = l.Styles.Title.Foreground(lipgloss.Color("240"))
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	return &TaskList{list: l}
}

// SetSize updates the list dimensions
func (t *TaskList) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.list.SetSize(width, height)
}

// Update handles UI updates
func (t *TaskList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return cmd
}

// View renders the component
func (t *TaskList) View() string {
	return t.list.View()
}

// SetTasks replaces the list with the given tasks, keeping the active marker
func (t *TaskList) SetTasks(tasks []types.Task) {
	items := make([]list.Item, len(tasks))
	pending := 0
	for i, task := range tasks {
		items[i] = TaskItem{task: task, active: task.ID == t.active}
		if task.Status == types.StatusPending {
			pending++
		}
	}
	t.list.SetItems(items)
	t.list.Title = fmt.Sprintf("Tasks (%d pending of %d)", pending, len(tasks))
}

// SetActive marks the task with the given id as the one being processed.
// Zero clears the marker.
func (t *TaskList) SetActive(id int) {
	t.active = id
	for i, item := range t.list.Items() {
		ti, ok := item.(TaskItem)
		if !ok {
			continue
		}
		ti.active = ti.task.ID == id
		t.list.SetItem(i, ti)
		if ti.active {
			t.list.Select(i)
		}
	}
}

// Items returns the rows currently shown
func (t *TaskList) Items() []TaskItem {
	out := make([]TaskItem, 0, len(t.list.Items()))
	for _, item := range t.list.Items() {
		if ti, ok := item.(TaskItem); ok {
			out = append(out, ti)
		}
	}
	return out
}
