// Package crawler implements quick mode: search result links are followed
// with plain HTTP requests instead of a browser.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/kwassist/internal/delay"
	"github.com/go-scripts/kwassist/internal/extract"
	"github.com/go-scripts/kwassist/internal/filter"
	"github.com/go-scripts/kwassist/internal/types"
)

const (
	DefaultResultsURL = "http://www.baidu.com/s"
	DefaultTimeout    = 8000 * time.Millisecond
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	resultsPerPage = 10
)

// Doer sends a single HTTP request
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Configuration holds the quick mode endpoint settings
type Configuration struct {
	ResultsURL string
	Timeout    time.Duration
	UserAgent  string
}

// Crawler walks result pages and follows each legal result through the
// engine's redirect link to its real destination
type Crawler struct {
	config    Configuration
	settings  types.Settings
	client    Doer
	filter    *filter.Filter
	extractor *extract.Extractor
	delays    *delay.Scheduler
	now       func() time.Time
	logger    *log.Logger

	// referer is sent with every request while set
	referer string
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithClient replaces the default HTTP client
func WithClient(d Doer) Option {
	return func(c *Crawler) { c.client = d }
}

// WithClock replaces time.Now when measuring chains
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// WithLogger sets the logger. A nil logger keeps the default one.
func WithLogger(l *log.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a quick mode executor
func New(config Configuration, settings types.Settings, f *filter.Filter, x *extract.Extractor, d *delay.Scheduler, opts ...Option) *Crawler {
	if config.ResultsURL == "" {
		config.ResultsURL = DefaultResultsURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	c := &Crawler{
		config:    config,
		settings:  settings,
		client:    NewClient(config.Timeout),
		filter:    f,
		extractor: x,
		delays:    d,
		now:       time.Now,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient returns a client that never follows redirects on its own
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Name identifies the mode in logs
func (c *Crawler) Name() string {
	return "quick"
}

// ExecuteTask crawls every configured page for the task's keyword and reports
// one visit per result, in page then result order
func (c *Crawler) ExecuteTask(ctx context.Context, task types.Task, visit func(types.Visit)) error {
	for page := c.settings.PageMin; page <= c.settings.PageMax; page++ {
		if err := c.crawlPage(ctx, task, page, visit); err != nil {
			return err
		}
		c.referer = ""
	}
	return nil
}

func (c *Crawler) crawlPage(ctx context.Context, task types.Task, page int, visit func(types.Visit)) error {
	address := c.SearchURL(task.Keyword, page)

	c.logger.Debug("Fetching results page", "task", task.ID, "keyword", task.Keyword, "page", page)
	resp, body, err := c.get(ctx, address, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("fetch results page %d for %q: %w", page, task.Keyword, err)
	}
	c.logger.Debug("Results page fetched", "status", resp.StatusCode, "bytes", len(body))

	results, err := c.extractor.Extract(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("extract results page %d for %q: %w", page, task.Keyword, err)
	}

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return err
		}

		v := types.Visit{Title: result.Title}
		if !c.filter.IsLegal(result.Title, result.LandingFragment) {
			v.URL = result.LandingFragment
			v.DwellTime = types.DwellIgnored
			visit(v)
			continue
		}

		hop, err := c.follow(ctx, address, result.Link)
		if err != nil {
			return err
		}
		v.URL = hop.url
		v.DwellTime = hop.dwell
		v.IP = hop.ip
		visit(v)

		if err := c.delays.Pace(ctx); err != nil {
			return err
		}
	}

	return nil
}

// chain is the outcome of following one result link
type chain struct {
	url   string
	dwell string
	ip    string
}

// follow requests the result's redirect link with the results page as
// referer, then requests the Location target with the link as referer
func (c *Crawler) follow(ctx context.Context, searchURL, link string) (chain, error) {
	target, err := resolve(searchURL, link)
	if err != nil {
		return chain{}, fmt.Errorf("resolve result link %q: %w", link, err)
	}

	start := c.now()

	c.referer = searchURL
	first, _, err := c.get(ctx, target, nil)
	if err != nil {
		return c.interrupted(ctx, start, target, err)
	}
	requested := first.Request.URL.String()

	location, err := first.Location()
	if errors.Is(err, http.ErrNoLocation) {
		// not a redirect, the link itself is the destination
		return chain{url: requested, dwell: types.FormatMillis(c.now().Sub(start))}, nil
	}
	if err != nil {
		return chain{}, fmt.Errorf("read redirect from %s: %w", requested, err)
	}

	c.referer = requested
	var ip string
	final, _, err := c.get(ctx, location.String(), &ip)
	if err != nil {
		return c.interrupted(ctx, start, requested, err)
	}

	return chain{
		url:   final.Request.URL.String(),
		dwell: types.FormatMillis(c.now().Sub(start)),
		ip:    ip,
	}, nil
}

// interrupted sorts a failed chain into a local timeout, which is recorded,
// or a cancellation or failure, which is returned. A cancellation-shaped
// error counts as our own timeout once the chain has used up the request budget.
func (c *Crawler) interrupted(ctx context.Context, start time.Time, last string, err error) (chain, error) {
	if !isCancellation(err) {
		return chain{}, fmt.Errorf("follow %s: %w", last, err)
	}

	elapsed := c.now().Sub(start)
	if elapsed >= c.config.Timeout {
		c.logger.Warn("Result timed out", "url", last, "elapsed", elapsed.Round(time.Millisecond))
		return chain{url: last, dwell: types.DwellTimeout}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return chain{}, ctxErr
	}
	return chain{}, err
}

// get issues a GET with the common headers and reads the whole body.
// When ip is non-nil it receives the remote address of the connection used.
func (c *Crawler) get(ctx context.Context, address string, ip *string) (*http.Response, []byte, error) {
	if ip != nil {
		ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
			GotConn: func(info httptrace.GotConnInfo) {
				if info.Conn == nil {
					return
				}
				if host, _, err := net.SplitHostPort(info.Conn.RemoteAddr().String()); err == nil {
					*ip = host
				}
			},
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.Request == nil {
		resp.Request = req
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (c *Crawler) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
}

// SearchURL builds the results page address for a keyword and 1-based page
func (c *Crawler) SearchURL(keyword string, page int) string {
	return SearchURL(c.config.ResultsURL, keyword, page)
}

// SearchURL builds a results page address: wd carries the keyword and pn
// the offset of the page's first result
func SearchURL(base, keyword string, page int) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("wd", keyword)
	q.Set("pn", strconv.Itoa((page-1)*resultsPerPage))
	u.RawQuery = q.Encode()
	return u.String()
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func isCancellation(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
