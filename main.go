package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/kwassist/internal/engine"
	"github.com/go-scripts/kwassist/internal/progress"
	"github.com/go-scripts/kwassist/internal/queue"
	"github.com/go-scripts/kwassist/internal/types"
	"github.com/go-scripts/kwassist/internal/writer"
	"github.com/go-scripts/kwassist/pkg/common"
	"github.com/go-scripts/kwassist/pkg/crawl"
	"github.com/go-scripts/kwassist/ui"
)

// CLI flags structure
type CLIFlags struct {
	Config      string   `help:"Path to configuration file" default:"config.yaml" short:"c"`
	EnvFile     string   `help:"Path to .env file" default:".env"`
	Keyword     []string `help:"Extra keyword to queue, may be repeated" short:"k"`
	Loop        bool     `help:"Repeat the task list until stopped"`
	ShowBrowser bool     `help:"Show the browser window in interactive mode"`
	Output      string   `help:"Path to the visit log" short:"o"`
	LogLevel    string   `help:"Log level (debug, info, warn, error)"`
}

// apply overrides the loaded configuration with the flags that were set
func (f CLIFlags) apply(cfg *common.Config) {
	cfg.Keywords = append(cfg.Keywords, f.Keyword...)
	if f.Loop {
		cfg.Loop = true
	}
	if f.ShowBrowser {
		cfg.ShowBrowser = true
	}
	if f.Output != "" {
		cfg.OutputFile = f.Output
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
}

// Message types
type runFinishedMsg struct {
	mode string
	err  error
}

// Stats ticker message
type statsTickMsg struct{}

func tickStats() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return statsTickMsg{}
	})
}

// runState is what the model knows about the current or last run
type runState struct {
	mode      string
	startTime time.Time
	pass      int
	visits    int
	ignored   int
	timeouts  int

	// cancel is set from start until runFinishedMsg arrives, covering the
	// gap before the driver has registered the run
	cancel context.CancelFunc
}

// Base model structure
type Model struct {
	cfg      *common.Config
	layout   *ui.Layout
	store    *queue.Store
	driver   *engine.Driver
	launcher *crawl.ChromeLauncher
	tracker  *progress.Tracker
	output   string
	ready    bool
	quitting bool
	state    *runState

	newExecutor func(mode string) (engine.Executor, error)
}

// busy reports whether a run was started and has not finished yet
func (m *Model) busy() bool {
	return m.state.cancel != nil || m.driver.Running()
}

// stop cancels the started run, whether or not the driver has picked it up
func (m *Model) stop() {
	if m.state.cancel != nil {
		m.state.cancel()
	}
	m.driver.Stop()
}

// Init is the first function called. It returns an optional initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.layout.Init(),
		tickStats(),
	)
}

// updateStats updates the statistics display
func (m *Model) updateStats() {
	tasks := m.store.Snapshot()
	done := 0
	for _, t := range tasks {
		if t.Status == types.StatusDone {
			done++
		}
	}

	m.layout.UpdateStats(ui.RunStats{
		Mode:        m.state.mode,
		Running:     m.busy(),
		Pass:        m.state.pass,
		Tasks:       len(tasks),
		Done:        done,
		Visits:      m.state.visits,
		Ignored:     m.state.ignored,
		Timeouts:    m.state.timeouts,
		StartTime:   m.state.startTime,
		Loop:        m.driver.Loop(),
		ShowBrowser: m.launcher.Visible(),
		Output:      m.output,
		Progress:    m.tracker.View(30),
	})
}

// start launches a run in mode. The run executes in a command and reports
// back with runFinishedMsg.
func (m *Model) start(mode string) tea.Cmd {
	if m.busy() {
		m.layout.AddWarning("A run is already active, stop it first")
		return nil
	}
	if m.store.Len() == 0 {
		m.layout.AddWarning("No tasks queued, press a to load the configured keywords")
		return nil
	}

	exec, err := m.newExecutor(mode)
	if err != nil {
		m.layout.AddError(err.Error())
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	*m.state = runState{mode: mode, startTime: time.Now(), cancel: cancel}
	m.tracker.Reset()
	m.layout.ClearLog()
	m.layout.AddInfo(fmt.Sprintf("Starting %s run over %d tasks (loop %v)", mode, m.store.Len(), m.driver.Loop()))

	driver := m.driver
	return func() tea.Msg {
		return runFinishedMsg{mode: mode, err: driver.Run(ctx, exec)}
	}
}

func (m *Model) refreshTasks() {
	m.layout.SetTasks(m.store.Snapshot())
}

func (m *Model) handleKey(key string) (tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		if m.busy() {
			m.quitting = true
			m.layout.AddInfo("Stopping run before quitting...")
			m.stop()
			return nil, true
		}
		return tea.Quit, true

	case "r":
		return m.start(common.ModeQuick), true

	case "i":
		return m.start(common.ModeInteractive), true

	case "s":
		if !m.busy() {
			m.layout.AddWarning("No run is active")
			return nil, true
		}
		m.layout.AddInfo("Stopping run...")
		m.stop()
		return nil, true

	case "l":
		m.driver.SetLoop(!m.driver.Loop())
		m.layout.AddInfo(fmt.Sprintf("Loop %v", m.driver.Loop()))
		return nil, true

	case "b", "f12":
		m.launcher.SetVisible(!m.launcher.Visible())
		m.layout.AddInfo(fmt.Sprintf("Browser visible %v, applies from the next task", m.launcher.Visible()))
		return nil, true

	case "c":
		if m.busy() {
			m.layout.AddWarning("Cannot clear tasks while running")
			return nil, true
		}
		m.store.Clear()
		m.layout.ClearLog()
		m.refreshTasks()
		m.layout.AddInfo("Tasks cleared")
		return nil, true

	case "a":
		if m.busy() {
			m.layout.AddWarning("Cannot add tasks while running")
			return nil, true
		}
		added := m.cfg.Tasks(m.store)
		m.refreshTasks()
		m.layout.AddInfo(fmt.Sprintf("Queued %d tasks", added))
		return nil, true
	}
	return nil, false
}

// Update handles all the updates and state transitions
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case statsTickMsg:
		m.updateStats()
		return m, tickStats()

	case tea.WindowSizeMsg:
		m.layout.SetSize(msg.Width, msg.Height)
		m.ready = true

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg.String()); handled {
			m.updateStats()
			return m, cmd
		}

	case ui.PassMsg:
		m.state.pass = msg.Pass
		m.refreshTasks()

	case ui.TaskStartedMsg:
		m.layout.SetActiveTask(msg.Task.ID)

	case ui.TaskDoneMsg:
		m.refreshTasks()

	case ui.EntryMsg:
		m.state.visits++
		switch msg.Entry.DwellTime {
		case types.DwellIgnored:
			m.state.ignored++
		case types.DwellTimeout:
			m.state.timeouts++
		}
		m.layout.AddEntry(msg.Entry)

	case runFinishedMsg:
		if m.state.cancel != nil {
			m.state.cancel()
			m.state.cancel = nil
		}
		m.layout.SetActiveTask(0)
		m.refreshTasks()
		var runErr *engine.RunError
		switch {
		case msg.err == nil:
			m.layout.AddInfo(fmt.Sprintf("%s run ended after %d results", msg.mode, m.state.visits))
		case errors.Is(msg.err, queue.ErrEmpty), errors.Is(msg.err, engine.ErrAlreadyRunning):
			m.layout.AddWarning(msg.err.Error())
		case errors.As(msg.err, &runErr):
			m.layout.AddError(runErr.Error())
		default:
			m.layout.AddError(msg.err.Error())
		}
		if m.quitting {
			return m, tea.Quit
		}
	}

	m.updateStats()

	layoutModel, layoutCmd := m.layout.Update(msg)
	if updatedLayout, ok := layoutModel.(*ui.Layout); ok {
		m.layout = updatedLayout
	}
	cmds = append(cmds, layoutCmd)

	return m, tea.Batch(cmds...)
}

// View returns a string representation of the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing...\n"
	}
	return m.layout.View()
}

// relay hands bridge messages to the program once it exists
type relay struct {
	program *tea.Program
}

func (r *relay) Send(msg tea.Msg) {
	if r.program != nil {
		r.program.Send(msg)
	}
}

// newModel wires the store, the sinks and the driver around cfg
func newModel(cfg *common.Config, logger *log.Logger, sinks ...engine.Sink) Model {
	store := queue.New()
	cfg.Tasks(store)

	tracker := progress.New()
	launcher := crawl.NewChromeLauncher(cfg.ShowBrowser)

	m := Model{
		cfg:      cfg,
		layout:   ui.NewLayout(),
		store:    store,
		launcher: launcher,
		tracker:  tracker,
		output:   cfg.OutputFile,
		state:    &runState{},
	}
	m.driver = engine.New(store,
		engine.WithLogger(logger),
		engine.WithLoop(cfg.Loop),
		engine.WithSinks(append(sinks, tracker)...),
	)
	m.newExecutor = func(mode string) (engine.Executor, error) {
		return cfg.Executor(mode, launcher, logger)
	}
	m.refreshTasks()
	return m
}

func main() {
	var flags CLIFlags

	// Parse command line flags using kong
	kong.Parse(&flags,
		kong.Name("kwassist"),
		kong.Description("Keyword search assistant with an interactive console."),
	)

	cfg, err := common.LoadConfig(flags.Config, flags.EnvFile)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()

	out, err := writer.New(cfg.OutputFile)
	if err != nil {
		fmt.Printf("Error opening output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	// The logger writes into the console panel
	r := &relay{}
	bridge := ui.NewBridge(r)
	logger := log.NewWithOptions(bridge, log.Options{Level: level})

	model := newModel(cfg, logger, out, bridge)
	model.layout.AddInfo(fmt.Sprintf("Loaded %d tasks, writing results to %s", model.store.Len(), out.Path()))

	// Run the Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen())
	r.program = p
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
	if err := out.Err(); err != nil {
		fmt.Printf("Some results could not be written: %v\n", err)
	}
}
