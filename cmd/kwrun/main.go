package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/kwassist/internal/engine"
	"github.com/go-scripts/kwassist/internal/queue"
	"github.com/go-scripts/kwassist/internal/types"
	"github.com/go-scripts/kwassist/internal/writer"
	"github.com/go-scripts/kwassist/pkg/common"
)

type CLI struct {
	Mode        string   `help:"Execution mode" enum:"quick,interactive" default:"quick" short:"m"`
	Config      string   `help:"Path to configuration file" default:"config.yaml" short:"c"`
	EnvFile     string   `help:"Path to .env file" default:".env"`
	Keyword     []string `help:"Extra keyword to queue, may be repeated" short:"k"`
	Loop        bool     `help:"Repeat the task list until interrupted"`
	ShowBrowser bool     `help:"Show the browser window in interactive mode"`
	Output      string   `help:"Path to the visit log" short:"o"`
	LogLevel    string   `help:"Log level (debug, info, warn, error)"`
	Quiet       bool     `help:"Disable the status spinner" short:"q"`
}

func (c *CLI) config() (*common.Config, error) {
	cfg, err := common.LoadConfig(c.Config, c.EnvFile)
	if err != nil {
		return nil, err
	}
	cfg.Keywords = append(cfg.Keywords, c.Keyword...)
	if c.Loop {
		cfg.Loop = true
	}
	if c.ShowBrowser {
		cfg.ShowBrowser = true
	}
	if c.Output != "" {
		cfg.OutputFile = c.Output
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	return cfg, cfg.Validate()
}

// status keeps the spinner line in step with the run
type status struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	pass    int
	tasks   int
	done    int
	visits  int
	current string
}

func newStatus(quiet bool) *status {
	s := &status{}
	if !quiet {
		s.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	}
	return s
}

func (s *status) start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

func (s *status) stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

func (s *status) refresh() {
	if s.spinner == nil {
		return
	}
	s.spinner.Lock()
	s.spinner.Suffix = fmt.Sprintf(" pass %d  task %d/%d  %d results  %s", s.pass, s.done, s.tasks, s.visits, s.current)
	s.spinner.Unlock()
}

func (s *status) Emit(entry types.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits++
	s.current = fmt.Sprintf("%s: %s (%s)", entry.Keyword, entry.Title, entry.DwellTime)
	s.refresh()
}

func (s *status) PassStarted(pass, tasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pass, s.tasks, s.done = pass, tasks, 0
	s.refresh()
}

func (s *status) TaskStarted(task types.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = task.Keyword
	s.refresh()
}

func (s *status) TaskDone(types.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	s.refresh()
}

func run(cli *CLI, logger *log.Logger) error {
	cfg, err := cli.config()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	level, _ := cfg.Level()
	logger.SetLevel(level)

	store := queue.New()
	if cfg.Tasks(store) == 0 {
		return queue.ErrEmpty
	}

	exec, err := cfg.Executor(cli.Mode, nil, logger)
	if err != nil {
		return err
	}

	out, err := writer.New(cfg.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	st := newStatus(cli.Quiet)
	driver := engine.New(store,
		engine.WithLogger(logger),
		engine.WithLoop(cfg.Loop),
		engine.WithSinks(out, st),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting", "mode", cli.Mode, "tasks", store.Len(), "output", out.Path())
	st.start()
	err = driver.Run(ctx, exec)
	st.stop()
	if err != nil {
		return err
	}
	if err := out.Err(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	logger.Info("Done", "results", st.visits, "summary", writer.SummaryPath(out.Path()))
	return nil
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("kwrun"),
		kong.Description("Runs the keyword task list without the interactive console."),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if err := run(&cli, logger); err != nil {
		logger.Error("Run failed", "err", err)
		os.Exit(1)
	}
}
