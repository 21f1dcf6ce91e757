package common

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/kwassist/internal/crawler"
	"github.com/go-scripts/kwassist/internal/delay"
	"github.com/go-scripts/kwassist/internal/engine"
	"github.com/go-scripts/kwassist/pkg/crawl"
)

const (
	ModeQuick       = "quick"
	ModeInteractive = "interactive"
)

// Delays builds the delay scheduler for the configured ranges
func (c *Config) Delays() *delay.Scheduler {
	return delay.New(c.Settings, delay.WithPace(c.Pace()), delay.WithSettle(c.Settle()))
}

// Executor builds the executor for mode. launcher is only used by the
// interactive mode.
func (c *Config) Executor(mode string, launcher crawl.Launcher, logger *log.Logger) (engine.Executor, error) {
	switch mode {
	case ModeQuick:
		return crawler.New(c.QuickConfig(), c.Settings, c.Filter(), c.Extractor(), c.Delays(),
			crawler.WithLogger(logger)), nil
	case ModeInteractive:
		if launcher == nil {
			launcher = crawl.NewChromeLauncher(c.ShowBrowser)
		}
		return crawl.New(launcher, c.InteractiveConfig(), c.Settings, c.Filter(), c.Extractor(), c.Delays(),
			crawl.WithLogger(logger)), nil
	default:
		return nil, &ConfigError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}
}
