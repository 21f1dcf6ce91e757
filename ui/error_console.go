package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the severity of a console line
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarning
	LevelError
)

type consoleEntry struct {
	timestamp time.Time
	level     LogLevel
	message   string
}

// Console shows operator messages and the application log
type Console struct {
	viewport  viewport.Model
	entries   []consoleEntry
	width     int
	height    int
	showLevel LogLevel // Filter to show only messages >= this level
	now       func() time.Time
}

var (
	errorLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

// maxConsoleEntries bounds memory on long looping runs
const maxConsoleEntries = 1000

// NewConsole creates a new console
func NewConsole() *Console {
	c := &Console{
		entries:   make([]consoleEntry, 0),
		showLevel: LevelInfo,
		now:       time.Now,
	}
	c.viewport = viewport.New(0, 0)
	return c
}

// SetSize updates the console dimensions
func (c *Console) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.viewport.Width = width
	c.viewport.Height = max(height-2, 1)
}

// AddEntry adds a new line
func (c *Console) AddEntry(level LogLevel, msg string) {
	c.entries = append(c.entries, consoleEntry{
		timestamp: c.now(),
		level:     level,
		message:   msg,
	})
	if len(c.entries) > maxConsoleEntries {
		c.entries = c.entries[len(c.entries)-maxConsoleEntries:]
	}
	c.updateContent()
}

// Update handles UI updates
func (c *Console) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "1":
			c.showLevel = LevelInfo
			c.updateContent()
		case "2":
			c.showLevel = LevelWarning
			c.updateContent()
		case "3":
			c.showLevel = LevelError
			c.updateContent()
		}
	case ConsoleMsg:
		c.AddEntry(msg.Level, msg.Text)
	}

	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return cmd
}

// View renders the console
func (c *Console) View() string {
	filterInfo := fmt.Sprintf(
		"Filter: %s (1:Info 2:Warn 3:Error) | Errors: %d | Warnings: %d",
		levelString(c.showLevel),
		c.countByLevel(LevelError),
		c.countByLevel(LevelWarning),
	)

	return c.viewport.View() + "\n" + infoStyle.Render(filterInfo)
}

// Lines returns the visible messages without styling, oldest first
func (c *Console) Lines() []string {
	var out []string
	for _, entry := range c.entries {
		if entry.level >= c.showLevel {
			out = append(out, entry.message)
		}
	}
	return out
}

func (c *Console) updateContent() {
	var sb strings.Builder

	for _, entry := range c.entries {
		if entry.level < c.showLevel {
			continue
		}

		var logStyle lipgloss.Style
		switch entry.level {
		case LevelError:
			logStyle = errorLogStyle
		case LevelWarning:
			logStyle = warningLogStyle
		default:
			logStyle = infoLogStyle
		}

		fmt.Fprintf(&sb, "%s [%s] %s\n",
			timestampStyle.Render(entry.timestamp.Format("15:04:05")),
			logStyle.Render(levelString(entry.level)),
			entry.message,
		)
	}

	follow := c.viewport.AtBottom()
	c.viewport.SetContent(sb.String())
	if follow {
		c.viewport.GotoBottom()
	}
}

func levelString(level LogLevel) string {
	switch level {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARN"
	default:
		return "INFO"
	}
}

func (c *Console) countByLevel(level LogLevel) int {
	count := 0
	for _, entry := range c.entries {
		if entry.level == level {
			count++
		}
	}
	return count
}
