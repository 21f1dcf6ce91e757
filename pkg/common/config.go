package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/go-scripts/kwassist/internal/crawler"
	"github.com/go-scripts/kwassist/internal/extract"
	"github.com/go-scripts/kwassist/internal/filter"
	"github.com/go-scripts/kwassist/internal/queue"
	"github.com/go-scripts/kwassist/internal/types"
	"github.com/go-scripts/kwassist/pkg/crawl"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
	DefaultOutputFile = "kwassist.jsonl"
)

// Config holds everything the tool reads at startup
type Config struct {
	Settings    types.Settings `yaml:"settings"`
	AllowList   []string       `yaml:"allow_list"`
	DenyList    []string       `yaml:"deny_list"`
	ShowBrowser bool           `yaml:"show_browser"`
	Loop        bool           `yaml:"loop"`
	Search      SearchConfig   `yaml:"search"`
	Selectors   SelectorConfig `yaml:"selectors"`
	Groups      []types.Group  `yaml:"groups"`
	// Keywords are queued as tasks without a group
	Keywords   []string `yaml:"keywords"`
	LogLevel   string   `yaml:"log_level"`
	OutputFile string   `yaml:"output_file"`
}

// SearchConfig holds the search engine endpoints and request pacing
type SearchConfig struct {
	HomeURL    string `yaml:"home_url"`
	ResultsURL string `yaml:"results_url"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	PaceMS     int    `yaml:"pace_ms"`
	SettleMS   int    `yaml:"settle_ms"`
	UserAgent  string `yaml:"user_agent"`
}

// SelectorConfig describes the results page layout and the search form
type SelectorConfig struct {
	extract.Rules `yaml:",inline"`

	SearchBox string `yaml:"search_box"`
	Submit    string `yaml:"submit"`
	Results   string `yaml:"results"`
	Pager     string `yaml:"pager"`
	NextLabel string `yaml:"next_label"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Settings: types.DefaultSettings(),
		Search: SearchConfig{
			HomeURL:    crawl.DefaultHomeURL,
			ResultsURL: crawler.DefaultResultsURL,
			TimeoutMS:  int(crawler.DefaultTimeout / time.Millisecond),
			PaceMS:     2000,
			SettleMS:   1000,
			UserAgent:  crawler.DefaultUserAgent,
		},
		Selectors: SelectorConfig{
			Rules:     extract.DefaultRules(),
			SearchBox: crawl.DefaultSearchBox,
			Submit:    crawl.DefaultSubmit,
			Results:   crawl.DefaultResults,
			Pager:     crawl.DefaultPager,
			NextLabel: crawl.DefaultNextLabel,
		},
		LogLevel:   "info",
		OutputFile: DefaultOutputFile,
	}
}

// LoadConfig reads the .env file, the YAML file at path and the environment,
// in that order. Missing files are not an error.
func LoadConfig(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from KWA_* environment variables
func (c *Config) ApplyEnv() {
	c.LogLevel = getEnv("KWA_LOG_LEVEL", c.LogLevel)
	c.ShowBrowser = getEnvAsBool("KWA_SHOW_BROWSER", c.ShowBrowser)
	c.Loop = getEnvAsBool("KWA_LOOP", c.Loop)
	c.OutputFile = getEnv("KWA_OUTPUT_FILE", c.OutputFile)
	c.Search.ResultsURL = getEnv("KWA_SEARCH_BASE_URL", c.Search.ResultsURL)
}

// Validate checks the ranges and values the engine relies on
func (c *Config) Validate() error {
	s := c.Settings
	if s.PageMin < 1 {
		return &ConfigError{Field: "settings.page_min", Message: "page_min must be at least 1"}
	}

	ranges := []struct {
		field    string
		min, max int
	}{
		{"settings.page", s.PageMin, s.PageMax},
		{"settings.interval", s.IntervalMin, s.IntervalMax},
		{"settings.search", s.SearchMin, s.SearchMax},
		{"settings.click", s.ClickMin, s.ClickMax},
	}
	for _, r := range ranges {
		if err := validateRange(r.field, r.min, r.max); err != nil {
			return err
		}
	}

	if c.Search.TimeoutMS <= 0 {
		return &ConfigError{Field: "search.timeout_ms", Message: "request timeout must be positive"}
	}
	if c.Search.PaceMS < 0 || c.Search.SettleMS < 0 {
		return &ConfigError{Field: "search", Message: "pace_ms and settle_ms must not be negative"}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses the configured log level
func (c *Config) Level() (log.Level, error) {
	level, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return log.InfoLevel, &ConfigError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid log level '%s'. Valid levels are: debug, info, warn, error", c.LogLevel),
		}
	}
	return level, nil
}

// Timeout is the quick mode budget for one result chain
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Search.TimeoutMS) * time.Millisecond
}

// Pace is the fixed delay between quick mode round trips
func (c *Config) Pace() time.Duration {
	return time.Duration(c.Search.PaceMS) * time.Millisecond
}

// Settle is the wait after a browser session starts
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Search.SettleMS) * time.Millisecond
}

// Filter builds the legality filter from the allow and deny lists
func (c *Config) Filter() *filter.Filter {
	return filter.New(c.AllowList, c.DenyList)
}

// Extractor builds the result extractor from the selectors
func (c *Config) Extractor() *extract.Extractor {
	return extract.New(c.Selectors.Rules)
}

// QuickConfig returns the quick mode endpoint settings
func (c *Config) QuickConfig() crawler.Configuration {
	return crawler.Configuration{
		ResultsURL: c.Search.ResultsURL,
		Timeout:    c.Timeout(),
		UserAgent:  c.Search.UserAgent,
	}
}

// InteractiveConfig returns the interactive mode page settings
func (c *Config) InteractiveConfig() crawl.Configuration {
	return crawl.Configuration{
		HomeURL:    c.Search.HomeURL,
		ResultsURL: c.Search.ResultsURL,
		SearchBox:  c.Selectors.SearchBox,
		Submit:     c.Selectors.Submit,
		Results:    c.Selectors.Results,
		Pager:      c.Selectors.Pager,
		NextLabel:  c.Selectors.NextLabel,
	}
}

// Tasks queues the configured keywords and groups on store and returns how
// many tasks were added. Blank keywords are skipped.
func (c *Config) Tasks(store *queue.Store) int {
	added := 0
	for _, kw := range c.Keywords {
		if _, err := store.Add("", kw); err == nil {
			added++
		}
	}
	for _, g := range c.Groups {
		added += store.AddGroup(g)
	}
	return added
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateRange(field string, min, max int) error {
	if min < 0 || max < 0 {
		return &ConfigError{Field: field, Message: fmt.Sprintf("range %d..%d must not be negative", min, max)}
	}
	if min > max {
		return &ConfigError{Field: field, Message: fmt.Sprintf("minimum %d is greater than maximum %d", min, max)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
