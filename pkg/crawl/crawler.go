// Package crawl implements interactive mode: a real browser types the keyword,
// clicks legal results and stays on them for a random dwell time.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/kwassist/internal/crawler"
	"github.com/go-scripts/kwassist/internal/delay"
	"github.com/go-scripts/kwassist/internal/extract"
	"github.com/go-scripts/kwassist/internal/filter"
	"github.com/go-scripts/kwassist/internal/types"
)

const (
	DefaultHomeURL   = "https://www.baidu.com"
	DefaultSearchBox = "#kw"
	DefaultSubmit    = "#su"
	DefaultResults   = "#content_left"
	DefaultPager     = "#page a.n"
	DefaultNextLabel = "下一页"
)

// Configuration locates the search engine's pages and controls
type Configuration struct {
	HomeURL    string
	ResultsURL string
	SearchBox  string
	Submit     string
	// Results appears once a results page has rendered
	Results   string
	Pager     string
	NextLabel string
}

func (c *Configuration) defaults() {
	if c.HomeURL == "" {
		c.HomeURL = DefaultHomeURL
	}
	if c.ResultsURL == "" {
		c.ResultsURL = crawler.DefaultResultsURL
	}
	if c.SearchBox == "" {
		c.SearchBox = DefaultSearchBox
	}
	if c.Submit == "" {
		c.Submit = DefaultSubmit
	}
	if c.Results == "" {
		c.Results = DefaultResults
	}
	if c.Pager == "" {
		c.Pager = DefaultPager
	}
	if c.NextLabel == "" {
		c.NextLabel = DefaultNextLabel
	}
}

// Crawler drives one browser session per task
type Crawler struct {
	launcher  Launcher
	config    Configuration
	settings  types.Settings
	filter    *filter.Filter
	extractor *extract.Extractor
	delays    *delay.Scheduler
	logger    *log.Logger
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithLogger sets the logger. A nil logger keeps the default one.
func WithLogger(l *log.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an interactive mode executor
func New(launcher Launcher, config Configuration, settings types.Settings, f *filter.Filter, x *extract.Extractor, d *delay.Scheduler, opts ...Option) *Crawler {
	config.defaults()
	c := &Crawler{
		launcher:  launcher,
		config:    config,
		settings:  settings,
		filter:    f,
		extractor: x,
		delays:    d,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the mode in logs
func (c *Crawler) Name() string {
	return "interactive"
}

// ExecuteTask searches the task's keyword in a fresh session and reports one
// visit per result, in page then result order. The session is closed before
// returning, whatever the outcome.
func (c *Crawler) ExecuteTask(ctx context.Context, task types.Task, visit func(types.Visit)) error {
	session, err := c.launcher.Open(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("open browser for %q: %w", task.Keyword, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			c.logger.Warn("Closing browser failed", "task", task.ID, "err", closeErr)
		}
	}()

	if err := c.search(ctx, session, task); err != nil {
		return err
	}

	for page := c.settings.PageMin; page <= c.settings.PageMax; page++ {
		if err := c.crawlPage(ctx, session, task, page, visit); err != nil {
			return err
		}
		if page == c.settings.PageMax {
			break
		}

		more, err := c.nextPage(ctx, session)
		if err != nil {
			return c.fail(ctx, err, "turn to page %d for %q", page+1, task.Keyword)
		}
		if !more {
			c.logger.Info("No further results pages", "task", task.ID, "page", page)
			break
		}
	}

	return nil
}

// search opens the home page, submits the keyword and lands on page_min
func (c *Crawler) search(ctx context.Context, s Session, task types.Task) error {
	if err := c.delays.Settle(ctx); err != nil {
		return err
	}

	c.logger.Debug("Opening home page", "task", task.ID, "url", c.config.HomeURL)
	if err := s.Navigate(ctx, c.config.HomeURL); err != nil {
		return c.fail(ctx, err, "open %s", c.config.HomeURL)
	}
	if _, err := c.delays.Draw(ctx, delay.Interval); err != nil {
		return err
	}

	var submitted bool
	if err := s.Evaluate(ctx, searchScript(c.config.SearchBox, c.config.Submit, task.Keyword), &submitted); err != nil {
		return c.fail(ctx, err, "submit %q", task.Keyword)
	}
	if !submitted {
		return fmt.Errorf("submit %q: search box %s or button %s not found",
			task.Keyword, c.config.SearchBox, c.config.Submit)
	}

	if err := c.pageTurn(ctx, s, task.Keyword, c.settings.PageMin); err != nil {
		return c.fail(ctx, err, "turn to page %d for %q", c.settings.PageMin, task.Keyword)
	}

	_, err := c.delays.Draw(ctx, delay.SearchDwell)
	return err
}

// pageTurn jumps straight to the given results page
func (c *Crawler) pageTurn(ctx context.Context, s Session, keyword string, page int) error {
	if page > 1 {
		if err := s.Navigate(ctx, crawler.SearchURL(c.config.ResultsURL, keyword, page)); err != nil {
			return err
		}
	}
	return s.WaitReady(ctx, c.config.Results)
}

// nextPage follows the pager to the following results page. It reports
// false when the pager has no next link.
func (c *Crawler) nextPage(ctx context.Context, s Session) (bool, error) {
	var next string
	if err := s.Evaluate(ctx, nextPageScript(c.config.Pager, c.config.NextLabel), &next); err != nil {
		return false, err
	}
	if next == "" {
		return false, nil
	}
	if err := s.Navigate(ctx, next); err != nil {
		return false, err
	}
	return true, s.WaitReady(ctx, c.config.Results)
}

func (c *Crawler) crawlPage(ctx context.Context, s Session, task types.Task, page int, visit func(types.Visit)) error {
	anchors := c.extractor.Rules().Anchors

	var found int
	if err := s.Evaluate(ctx, prepareScript(anchors), &found); err != nil {
		return c.fail(ctx, err, "prepare results page %d for %q", page, task.Keyword)
	}

	var source string
	if err := s.Evaluate(ctx, sourceScript, &source); err != nil {
		return c.fail(ctx, err, "read results page %d for %q", page, task.Keyword)
	}
	results, err := c.extractor.ExtractString(source)
	if err != nil {
		return fmt.Errorf("extract results page %d for %q: %w", page, task.Keyword, err)
	}
	c.logger.Debug("Results page rendered", "task", task.ID, "page", page, "anchors", found, "results", len(results))

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return err
		}

		v := types.Visit{Title: result.Title, URL: result.LandingFragment}
		if !c.filter.IsLegal(result.Title, result.LandingFragment) {
			v.DwellTime = types.DwellIgnored
			visit(v)
			continue
		}

		dwell, clicked, err := c.click(ctx, s, result)
		if err != nil {
			return err
		}
		v.DwellTime = types.FormatSeconds(dwell)
		if !clicked {
			v.DwellTime = types.DwellMissing
		}
		visit(v)
	}

	return nil
}

// click opens a result, stays on it and closes whatever the click opened.
// It reports false without waiting when the result's anchor is not in the page.
func (c *Crawler) click(ctx context.Context, s Session, result types.SearchResult) (time.Duration, bool, error) {
	var clicked bool
	if err := s.Evaluate(ctx, clickScript(result.Index), &clicked); err != nil {
		return 0, false, c.fail(ctx, err, "click result %d", result.Index)
	}
	if !clicked {
		c.logger.Warn("Result anchor missing in page", "index", result.Index, "title", result.Title)
		return 0, false, nil
	}

	dwell, err := c.delays.Draw(ctx, delay.ClickDwell)
	if err != nil {
		return 0, false, err
	}

	if err := s.CloseChildren(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}
		c.logger.Warn("Closing result tab failed", "index", result.Index, "err", err)
	}
	return dwell, true, nil
}

// fail prefers the cancellation cause over the browser's own error
func (c *Crawler) fail(ctx context.Context, err error, format string, args ...any) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
