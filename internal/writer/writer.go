package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-scripts/kwassist/internal/types"
)

// LogWriter appends every log entry to a JSON lines file and keeps the
// summary of the latest run next to it
type LogWriter struct {
	path        string
	summaryPath string

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	err     error
}

// New opens path for appending, creating its directory when needed
func New(path string) (*LogWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &LogWriter{
		path:        path,
		summaryPath: SummaryPath(path),
		file:        file,
		encoder:     json.NewEncoder(file),
	}, nil
}

// SummaryPath derives the summary file name from the log file name
func SummaryPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".summary.json"
}

// Path returns the log file location
func (w *LogWriter) Path() string {
	return w.path
}

// Emit appends one entry. Write failures are kept and reported by Err and Close.
func (w *LogWriter) Emit(entry types.LogEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.encoder.Encode(entry); err != nil {
		w.err = fmt.Errorf("failed to encode entry: %w", err)
	}
}

// Err returns the first write failure
func (w *LogWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// WriteSummary replaces the summary file with the given run summary
func (w *LogWriter) WriteSummary(summary types.RunSummary) error {
	file, err := os.Create(w.summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	return nil
}

// Close flushes and closes the log file
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return w.err
	}
	err := w.file.Close()
	w.file = nil
	if w.err != nil {
		return w.err
	}
	return err
}
