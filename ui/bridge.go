package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-scripts/kwassist/internal/types"
)

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// EntryMsg carries one recorded result
type EntryMsg struct {
	Entry types.LogEntry
}

// PassMsg announces the start of a pass
type PassMsg struct {
	Pass  int
	Tasks int
}

// TaskStartedMsg announces the task about to be executed
type TaskStartedMsg struct {
	Task types.Task
}

// TaskDoneMsg announces a finished task
type TaskDoneMsg struct {
	Task types.Task
}

// ConsoleMsg is a line for the console panel
type ConsoleMsg struct {
	Level LogLevel
	Text  string
}

// Bridge forwards engine notifications and log output to the program as
// messages. It is registered with the engine as a sink and used as the
// logger's writer.
type Bridge struct {
	sender Sender
}

// NewBridge creates a Bridge sending to s
func NewBridge(s Sender) *Bridge {
	return &Bridge{sender: s}
}

func (b *Bridge) Emit(entry types.LogEntry) {
	b.sender.Send(EntryMsg{Entry: entry})
}

func (b *Bridge) PassStarted(pass, tasks int) {
	b.sender.Send(PassMsg{Pass: pass, Tasks: tasks})
}

func (b *Bridge) TaskStarted(task types.Task) {
	b.sender.Send(TaskStartedMsg{Task: task})
}

func (b *Bridge) TaskDone(task types.Task) {
	b.sender.Send(TaskDoneMsg{Task: task})
}

// Write turns every non-empty line of p into a ConsoleMsg
func (b *Bridge) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.sender.Send(ConsoleMsg{Level: lineLevel(line), Text: line})
	}
	return len(p), nil
}

// lineLevel reads the level from a text formatted log line
func lineLevel(line string) LogLevel {
	fields := strings.Fields(line)
	for i := 0; i < len(fields) && i < 3; i++ {
		switch fields[i] {
		case "ERRO", "ERROR", "FATA", "FATAL":
			return LevelError
		case "WARN", "WARNING":
			return LevelWarning
		case "INFO", "DEBU", "DEBUG":
			return LevelInfo
		}
	}
	return LevelInfo
}
