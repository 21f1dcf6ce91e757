package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/kwassist/internal/types"
)

// LogTable lists every evaluated result in discovery order
type LogTable struct {
	viewport    viewport.Model
	entries     []types.LogEntry
	width       int
	height      int
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
}

// NewLogTable creates a new log table
func NewLogTable() *LogTable {
	t := &LogTable{
		entries: make([]types.LogEntry, 0),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		cellStyle: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
	}
	t.viewport = viewport.New(0, 0)
	return t
}

// SetSize updates the table dimensions
func (t *LogTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width
	t.viewport.Height = max(height-2, 1)
	t.refresh()
}

// Update handles UI updates
func (t *LogTable) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup":
			t.viewport.HalfViewUp()
		case "pgdown":
			t.viewport.HalfViewDown()
		}
	}

	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

// View renders the table
func (t *LogTable) View() string {
	if len(t.entries) == 0 {
		return infoStyle.Render("No results yet")
	}

	stats := fmt.Sprintf(
		"Results: %d | Visited: %d | Ignored: %d | Timeouts: %d",
		len(t.entries),
		len(t.entries)-t.count(types.DwellIgnored)-t.count(types.DwellTimeout)-t.count(types.DwellMissing),
		t.count(types.DwellIgnored),
		t.count(types.DwellTimeout),
	)

	return t.viewport.View() + "\n" + infoStyle.Render(stats)
}

// AddEntry appends a result row and follows the tail when already there
func (t *LogTable) AddEntry(entry types.LogEntry) {
	follow := t.viewport.AtBottom()
	t.entries = append(t.entries, entry)
	t.refresh()
	if follow {
		t.viewport.GotoBottom()
	}
}

// Clear removes every row
func (t *LogTable) Clear() {
	t.entries = t.entries[:0]
	t.refresh()
}

// Entries returns the rows in order
func (t *LogTable) Entries() []types.LogEntry {
	return t.entries
}

func (t *LogTable) columns() (title, url int) {
	title = min(36, max(t.width/4, 10))
	url = min(48, max(t.width/3, 12))
	return title, url
}

func (t *LogTable) refresh() {
	titleWidth, urlWidth := t.columns()

	header := t.headerStyle.Render(fmt.Sprintf(
		"%4s %-14s %-*s %-*s %-10s %-15s",
		"Task", "Keyword",
		titleWidth, "Title",
		urlWidth, "URL",
		"Dwell",
		"IP",
	))

	rows := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		row := t.cellStyle.Render(fmt.Sprintf(
			"%4d %-14s %-*s %-*s %-10s %-15s",
			e.TaskID,
			truncate(e.Keyword, 14),
			titleWidth, truncate(e.Title, titleWidth),
			urlWidth, truncate(e.URL, urlWidth),
			e.DwellTime,
			e.IP,
		))

		switch e.DwellTime {
		case types.DwellIgnored:
			row = ignoredStyle.Render(row)
		case types.DwellTimeout, types.DwellMissing:
			row = warningStyle.Render(row)
		}
		rows = append(rows, row)
	}

	t.viewport.SetContent(header + "\n" + strings.Join(rows, "\n"))
}

func (t *LogTable) count(marker string) int {
	n := 0
	for _, e := range t.entries {
		if e.DwellTime == marker {
			n++
		}
	}
	return n
}

// truncate shortens s to at most w runes
func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
