// Package delay draws the randomized pauses used to pace a run.
package delay

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-scripts/kwassist/internal/types"
)

// Kind selects which configured range a delay is drawn from
type Kind int

const (
	// Interval separates opening the home page from typing the keyword
	Interval Kind = iota
	// SearchDwell is the reading time on the first results page
	SearchDwell
	// ClickDwell is the time spent on a clicked result
	ClickDwell
)

func (k Kind) String() string {
	switch k {
	case Interval:
		return "interval"
	case SearchDwell:
		return "search"
	case ClickDwell:
		return "click"
	default:
		return "unknown"
	}
}

const (
	// DefaultPace separates page-level round trips in quick mode
	DefaultPace = 2 * time.Second
	// DefaultSettle lets a fresh browser session initialize
	DefaultSettle = time.Second
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler hands out delays from the configured ranges
type Scheduler struct {
	settings types.Settings
	intn     func(n int) int
	sleep    SleepFunc
	pace     time.Duration
	settle   time.Duration
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithRand draws from r instead of the process-wide source
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.intn = r.Intn }
}

// WithSleep replaces the real sleeper
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithPace overrides the fixed quick mode pacing delay
func WithPace(d time.Duration) Option {
	return func(s *Scheduler) { s.pace = d }
}

// WithSettle overrides the browser settle delay
func WithSettle(d time.Duration) Option {
	return func(s *Scheduler) { s.settle = d }
}

// New creates a Scheduler. By default it shares math/rand's global source.
func New(settings types.Settings, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings: settings,
		intn:     rand.Intn,
		sleep:    Sleep,
		pace:     DefaultPace,
		settle:   DefaultSettle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next draws a whole number of seconds uniformly from the kind's inclusive range
func (s *Scheduler) Next(kind Kind) time.Duration {
	lo, hi := s.bounds(kind)
	if hi < lo {
		hi = lo
	}
	n := lo + s.intn(hi-lo+1)
	return time.Duration(n) * time.Second
}

// Wait sleeps for d unless ctx is cancelled first
func (s *Scheduler) Wait(ctx context.Context, d time.Duration) error {
	return s.sleep(ctx, d)
}

// Draw picks a delay of the given kind, waits it out and returns it
func (s *Scheduler) Draw(ctx context.Context, kind Kind) (time.Duration, error) {
	d := s.Next(kind)
	return d, s.sleep(ctx, d)
}

// Pace waits the fixed delay between quick mode round trips
func (s *Scheduler) Pace(ctx context.Context) error {
	return s.sleep(ctx, s.pace)
}

// Settle waits for a new browser session to come up
func (s *Scheduler) Settle(ctx context.Context) error {
	return s.sleep(ctx, s.settle)
}

func (s *Scheduler) bounds(kind Kind) (int, int) {
	switch kind {
	case Interval:
		return s.settings.IntervalMin, s.settings.IntervalMax
	case SearchDwell:
		return s.settings.SearchMin, s.settings.SearchMax
	case ClickDwell:
		return s.settings.ClickMin, s.settings.ClickMax
	default:
		return 0, 0
	}
}

// Sleep is a context-aware time.Sleep
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
