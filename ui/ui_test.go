package ui

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/kwassist/internal/types"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestBridgeForwardsEngineEvents(t *testing.T) {
	sender := &recordingSender{}
	b := NewBridge(sender)

	task := types.Task{ID: 1, Keyword: "golang"}
	b.PassStarted(1, 3)
	b.TaskStarted(task)
	b.Emit(types.LogEntry{TaskID: 1, Title: "Go", DwellTime: "3.0s"})
	b.TaskDone(task)

	assert.Equal(t, []tea.Msg{
		PassMsg{Pass: 1, Tasks: 3},
		TaskStartedMsg{Task: task},
		EntryMsg{Entry: types.LogEntry{TaskID: 1, Title: "Go", DwellTime: "3.0s"}},
		TaskDoneMsg{Task: task},
	}, sender.msgs)
}

func TestBridgeWriteSplitsLogLines(t *testing.T) {
	sender := &recordingSender{}
	b := NewBridge(sender)

	input := "INFO Run started tasks=2\nWARN Closing child tabs failed\n\nERRO Run failed err=boom\n"
	n, err := b.Write([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, len(input), n)

	assert.Equal(t, []tea.Msg{
		ConsoleMsg{Level: LevelInfo, Text: "INFO Run started tasks=2"},
		ConsoleMsg{Level: LevelWarning, Text: "WARN Closing child tabs failed"},
		ConsoleMsg{Level: LevelError, Text: "ERRO Run failed err=boom"},
	}, sender.msgs)
}

func TestLineLevel(t *testing.T) {
	tests := []struct {
		line string
		want LogLevel
	}{
		{"2024/01/02 10:00:00 WARN slow", LevelWarning},
		{"DEBU visit", LevelInfo},
		{"FATA cannot start", LevelError},
		{"plain text", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, lineLevel(tt.line))
		})
	}
}

func TestConsoleFilter(t *testing.T) {
	c := NewConsole()
	c.SetSize(80, 10)
	c.AddEntry(LevelInfo, "started")
	c.AddEntry(LevelWarning, "slow page")
	c.AddEntry(LevelError, "browser gone")

	assert.Equal(t, []string{"started", "slow page", "browser gone"}, c.Lines())

	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	assert.Equal(t, []string{"slow page", "browser gone"}, c.Lines())

	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	assert.Equal(t, []string{"browser gone"}, c.Lines())

	assert.Contains(t, c.View(), "Errors: 1 | Warnings: 1")
}

func TestConsoleKeepsRecentEntries(t *testing.T) {
	c := NewConsole()
	for i := 0; i < maxConsoleEntries+5; i++ {
		c.AddEntry(LevelInfo, "line")
	}
	assert.Len(t, c.Lines(), maxConsoleEntries)
}

func TestLogTable(t *testing.T) {
	table := NewLogTable()
	table.SetSize(120, 20)
	assert.Contains(t, table.View(), "No results yet")

	table.AddEntry(types.LogEntry{TaskID: 1, Keyword: "go", Title: "Go", URL: "https://go.dev", DwellTime: "3.0s"})
	table.AddEntry(types.LogEntry{TaskID: 1, Keyword: "go", Title: "Ad", URL: "https://ads.example", DwellTime: types.DwellIgnored})
	table.AddEntry(types.LogEntry{TaskID: 2, Keyword: "rust", Title: "Rust", URL: "https://rust-lang.org", DwellTime: types.DwellTimeout})

	table.AddEntry(types.LogEntry{TaskID: 2, Keyword: "rust", Title: "Gone", DwellTime: types.DwellMissing})

	require.Len(t, table.Entries(), 4)
	assert.Contains(t, table.View(), "Results: 4 | Visited: 1 | Ignored: 1 | Timeouts: 1")

	table.Clear()
	assert.Empty(t, table.Entries())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "关键词...", truncate("关键词搜索助手", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestTaskListActiveMarker(t *testing.T) {
	list := NewTaskList()
	list.SetSize(60, 20)
	list.SetTasks([]types.Task{
		{ID: 1, Keyword: "go", Status: types.StatusDone},
		{ID: 2, Keyword: "rust", Status: types.StatusPending, GroupName: "langs"},
	})
	list.SetActive(2)

	items := list.Items()
	require.Len(t, items, 2)
	assert.False(t, items[0].active)
	assert.True(t, items[1].active)
	assert.Equal(t, "▶ 2. rust", items[1].Title())
	assert.Equal(t, "Group: langs | Status: pending", items[1].Description())
	assert.Equal(t, "Tasks (1 pending of 2)", list.list.Title)

	// the marker survives a refresh of the items
	list.SetTasks([]types.Task{
		{ID: 1, Keyword: "go", Status: types.StatusDone},
		{ID: 2, Keyword: "rust", Status: types.StatusDone, DwellTime: "4.0s"},
	})
	assert.True(t, list.Items()[1].active)
	assert.Contains(t, list.Items()[1].Description(), "Last: 4.0s")
}

func TestStatsPanel(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewStatsPanel()
	p.now = func() time.Time { return now }
	p.SetSize(70, 20)

	assert.Equal(t, "00:00:00", p.formatElapsedTime())

	p.UpdateStats(RunStats{
		Mode:      "quick",
		Running:   true,
		Pass:      2,
		Tasks:     4,
		Done:      1,
		Visits:    10,
		Ignored:   3,
		Timeouts:  1,
		StartTime: now.Add(-(time.Hour + 2*time.Minute + 3*time.Second)),
		Loop:      true,
	})

	assert.Equal(t, "01:02:03", p.formatElapsedTime())
	view := p.View()
	assert.Contains(t, view, "running quick")
	assert.Contains(t, view, "10 (visited 6, ignored 3, timeouts 1)")
	assert.Contains(t, view, "1/4")
}

func TestLayoutRoutesConsoleMessages(t *testing.T) {
	l := NewLayout()
	l.SetSize(120, 40)

	l.Update(ConsoleMsg{Level: LevelWarning, Text: "from logger"})
	l.AddInfo("from operator")
	l.AddEntry(types.LogEntry{TaskID: 1, Title: "Go"})

	assert.Equal(t, []string{"from logger", "from operator"}, l.ConsoleLines())
	assert.Len(t, l.Entries(), 1)

	l.ClearLog()
	assert.Empty(t, l.Entries())
}
