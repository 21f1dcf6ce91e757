package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/kwassist/internal/types"
)

// Base component interface
type Component interface {
	Init() tea.Cmd
	Update(tea.Msg) (Component, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Define common styles
var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			PaddingLeft(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ignoredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Strikethrough(true)
)

type TaskPanel struct {
	style  lipgloss.Style
	width  int
	height int
	tasks  *TaskList
}

func NewTaskPanel() *TaskPanel {
	return &TaskPanel{
		style: borderStyle.Copy().BorderForeground(lipgloss.Color("99")),
		tasks: NewTaskList(),
	}
}

func (p *TaskPanel) Init() tea.Cmd {
	return nil
}

func (p *TaskPanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			p.tasks.list.CursorUp()
			return p, nil
		case "down", "j":
			p.tasks.list.CursorDown()
			return p, nil
		}
	}
	return p, p.tasks.Update(msg)
}

func (p *TaskPanel) View() string {
	return p.style.Width(p.width).Height(p.height).Render(p.tasks.View())
}

func (p *TaskPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.tasks.SetSize(width-4, height-4)
}

type LogPanel struct {
	style  lipgloss.Style
	width  int
	height int
	table  *LogTable
}

func NewLogPanel() *LogPanel {
	return &LogPanel{
		style: borderStyle.Copy().BorderForeground(lipgloss.Color("35")),
		table: NewLogTable(),
	}
}

func (p *LogPanel) Init() tea.Cmd {
	return nil
}

func (p *LogPanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	return p, p.table.Update(msg)
}

func (p *LogPanel) View() string {
	return p.style.Width(p.width).Height(p.height).Render(p.table.View())
}

func (p *LogPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.table.SetSize(width-4, height-4)
}

type ConsolePanel struct {
	style   lipgloss.Style
	width   int
	height  int
	console *Console
}

func NewConsolePanel() *ConsolePanel {
	return &ConsolePanel{
		style:   borderStyle.Copy().BorderForeground(lipgloss.Color("196")),
		console: NewConsole(),
	}
}

func (p *ConsolePanel) Init() tea.Cmd {
	return nil
}

func (p *ConsolePanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	return p, p.console.Update(msg)
}

func (p *ConsolePanel) View() string {
	return p.style.Width(p.width).Height(p.height).Render(p.console.View())
}

func (p *ConsolePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.console.SetSize(width-4, height-4)
}

// Layout arranges the panels: tasks and stats on top, the visit log in the
// middle and the console at the bottom
type Layout struct {
	tasks   Component
	log     Component
	console Component
	stats   *StatsPanel
	width   int
	height  int
}

// NewLayout creates and initializes a new layout with all panels
func NewLayout() *Layout {
	return &Layout{
		tasks:   NewTaskPanel(),
		log:     NewLogPanel(),
		console: NewConsolePanel(),
		stats:   NewStatsPanel(),
	}
}

// SetSize adjusts the layout and all components to the given dimensions
func (l *Layout) SetSize(width, height int) {
	l.width = width
	l.height = height

	halfWidth := width / 2
	topHeight := height * 2 / 5
	logHeight := height * 2 / 5

	l.tasks.SetSize(halfWidth, topHeight)
	l.stats.SetSize(width-halfWidth, topHeight)
	l.log.SetSize(width, logHeight)
	l.console.SetSize(width, height-topHeight-logHeight)
}

// Init initializes all panels
func (l *Layout) Init() tea.Cmd {
	return tea.Batch(
		l.tasks.Init(),
		l.log.Init(),
		l.console.Init(),
		l.stats.Init(),
	)
}

// Update processes messages and updates components
func (l *Layout) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	l.tasks, cmd = l.tasks.Update(msg)
	cmds = append(cmds, cmd)

	l.log, cmd = l.log.Update(msg)
	cmds = append(cmds, cmd)

	l.console, cmd = l.console.Update(msg)
	cmds = append(cmds, cmd)

	cmds = append(cmds, l.stats.Update(msg))

	return l, tea.Batch(cmds...)
}

// View renders the complete layout
func (l *Layout) View() string {
	topRow := lipgloss.JoinHorizontal(
		lipgloss.Top,
		l.tasks.View(),
		l.stats.View(),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		topRow,
		l.log.View(),
		l.console.View(),
	)
}

// SetTasks replaces the task list contents
func (l *Layout) SetTasks(tasks []types.Task) {
	if p, ok := l.tasks.(*TaskPanel); ok {
		p.tasks.SetTasks(tasks)
	}
}

// SetActiveTask highlights the task being processed
func (l *Layout) SetActiveTask(id int) {
	if p, ok := l.tasks.(*TaskPanel); ok {
		p.tasks.SetActive(id)
	}
}

// AddEntry appends a visit to the log panel
func (l *Layout) AddEntry(entry types.LogEntry) {
	if p, ok := l.log.(*LogPanel); ok {
		p.table.AddEntry(entry)
	}
}

// ClearLog empties the log panel
func (l *Layout) ClearLog() {
	if p, ok := l.log.(*LogPanel); ok {
		p.table.Clear()
	}
}

// Log adds a message with the specified level to the console
func (l *Layout) Log(level LogLevel, msg string) {
	if p, ok := l.console.(*ConsolePanel); ok {
		p.console.AddEntry(level, msg)
	}
}

// AddInfo adds an info message to the console
func (l *Layout) AddInfo(msg string) {
	l.Log(LevelInfo, msg)
}

// AddWarning adds a warning message to the console
func (l *Layout) AddWarning(msg string) {
	l.Log(LevelWarning, msg)
}

// AddError adds an error message to the console
func (l *Layout) AddError(msg string) {
	l.Log(LevelError, msg)
}

// UpdateStats replaces the numbers shown in the stats panel
func (l *Layout) UpdateStats(stats RunStats) {
	l.stats.UpdateStats(stats)
}

// Entries returns the rows of the log panel
func (l *Layout) Entries() []types.LogEntry {
	if p, ok := l.log.(*LogPanel); ok {
		return p.table.Entries()
	}
	return nil
}

// ConsoleLines returns the visible console messages
func (l *Layout) ConsoleLines() []string {
	if p, ok := l.console.(*ConsolePanel); ok {
		return p.console.Lines()
	}
	return nil
}
