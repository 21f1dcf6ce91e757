package types

import (
	"fmt"
	"time"
)

// Status is the processing state of a task within the current pass
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Dwell time markers recorded instead of a measured duration
const (
	DwellIgnored = "ignored"
	DwellTimeout = "timeout"
	// DwellMissing marks a legal result whose anchor was gone when clicked
	DwellMissing = "missing"
)

// Task is one keyword queued for processing. Visit fields hold the latest
// result only; the full history lives in the log stream.
type Task struct {
	ID        int    `json:"id"`
	GroupName string `json:"group_name"`
	Keyword   string `json:"keyword"`
	Status    Status `json:"status"`

	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	DwellTime string `json:"dwell_time,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// SearchResult is a candidate result found on a results page
type SearchResult struct {
	// Index addresses the result's anchor among the page's result anchors
	Index           int    `json:"index"`
	Title           string `json:"title"`
	Link            string `json:"link"`
	LandingFragment string `json:"landing_fragment"`
}

// Visit is the outcome of evaluating one search result
type Visit struct {
	Title     string
	URL       string
	DwellTime string
	IP        string
}

// Ignored reports whether the result was filtered out
func (v Visit) Ignored() bool {
	return v.DwellTime == DwellIgnored
}

// LogEntry is emitted once per visited or ignored result
type LogEntry struct {
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	Pass      int       `json:"pass"`
	TaskID    int       `json:"task_id"`
	Keyword   string    `json:"keyword"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	DwellTime string    `json:"dwell_time"`
	IP        string    `json:"ip"`
	Time      time.Time `json:"time"`
}

// Ignored reports whether the entry should be shown as skipped
func (e LogEntry) Ignored() bool {
	return e.DwellTime == DwellIgnored
}

// Settings are the pacing and paging knobs read by the executors.
// Ranges are inclusive and expressed in whole seconds.
type Settings struct {
	PageMin     int `yaml:"page_min" json:"page_min"`
	PageMax     int `yaml:"page_max" json:"page_max"`
	IntervalMin int `yaml:"interval_min" json:"interval_min"`
	IntervalMax int `yaml:"interval_max" json:"interval_max"`
	SearchMin   int `yaml:"search_min" json:"search_min"`
	SearchMax   int `yaml:"search_max" json:"search_max"`
	ClickMin    int `yaml:"click_min" json:"click_min"`
	ClickMax    int `yaml:"click_max" json:"click_max"`
}

// DefaultSettings mirrors the values shipped with the desktop tool
func DefaultSettings() Settings {
	return Settings{
		PageMin:     1,
		PageMax:     1,
		IntervalMin: 1,
		IntervalMax: 3,
		SearchMin:   2,
		SearchMax:   5,
		ClickMin:    5,
		ClickMax:    10,
	}
}

// Group is a named list of keywords
type Group struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// RunSummary describes one finished run
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Passes     int       `json:"passes"`
	Visits     int       `json:"visits"`
	Ignored    int       `json:"ignored"`
	Timeouts   int       `json:"timeouts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cancelled  bool      `json:"cancelled"`
	Error      string    `json:"error,omitempty"`
}

// FormatMillis renders a measured chain duration
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%d ms", d.Milliseconds())
}

// FormatSeconds renders a simulated dwell in whole seconds
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%d s", int(d/time.Second))
}
