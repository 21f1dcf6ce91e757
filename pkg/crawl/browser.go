package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Session is one browser instance driven by the interactive executor
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Evaluate runs script in the current page and decodes its value into res
	Evaluate(ctx context.Context, script string, res any) error
	WaitReady(ctx context.Context, selector string) error
	// CloseChildren closes every tab other than the session's own
	CloseChildren(ctx context.Context) error
	Close() error
}

// Launcher opens browser sessions
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// ChromeLauncher starts a new Chrome process for every session. Visibility
// can be flipped while a run is active and applies to the next session.
type ChromeLauncher struct {
	visible atomic.Bool
	opts    []chromedp.ExecAllocatorOption
}

// NewChromeLauncher creates a launcher; extra options are appended to the
// chromedp defaults
func NewChromeLauncher(visible bool, extra ...chromedp.ExecAllocatorOption) *ChromeLauncher {
	l := &ChromeLauncher{opts: extra}
	l.visible.Store(visible)
	return l
}

// SetVisible shows or hides the browser window of future sessions
func (l *ChromeLauncher) SetVisible(v bool) {
	l.visible.Store(v)
}

// Visible reports whether new sessions get a window
func (l *ChromeLauncher) Visible() bool {
	return l.visible.Load()
}

// Open starts the browser and returns once its first tab is ready
func (l *ChromeLauncher) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !l.visible.Load()),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-popup-blocking", true),
	)
	opts = append(opts, l.opts...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromeSession{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// run executes actions on the session tab and gives up as soon as ctx is done
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, res any) error {
	return s.run(ctx, chromedp.Evaluate(script, res))
}

func (s *chromeSession) WaitReady(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromeSession) CloseChildren(ctx context.Context) error {
	targets, err := chromedp.Targets(s.ctx)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}

	own := chromedp.FromContext(s.ctx).Target.TargetID
	var errs []error
	for _, info := range targets {
		if info.Type != "page" || info.TargetID == own {
			continue
		}
		if err := s.closeTarget(ctx, info.TargetID); err != nil {
			errs = append(errs, err)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.Join(errs...)
}

func (s *chromeSession) closeTarget(ctx context.Context, id target.ID) error {
	childCtx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(id))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(childCtx, page.Close()); err != nil {
		return fmt.Errorf("close tab %s: %w", id, err)
	}
	return nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
