package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"trainercal/internal/clock"
	"trainercal/internal/model"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the periodic PNG snapshot of the calendar page.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Output is where the PNG is written and served from /preview.png.
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// APIBaseURL is the session backend, e.g. "http://localhost:8000".
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// SessionToken is sent as the trainer_session cookie. Its "sub" claim
	// names the trainer that owns created session groups.
	SessionToken string `yaml:"session_token" json:"-"`

	// UTCOffset is the fixed operating offset, e.g. "-05:00". All grid math
	// happens at this offset; there is no DST.
	UTCOffset string `yaml:"utc_offset" json:"utc_offset"`

	// WeekStart controls which weekday starts a week view. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DefaultView is "week" or "day".
	DefaultView string `yaml:"default_view" json:"default_view"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") for re-warming
	// the current window and re-capturing the preview.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheTTLSeconds bounds how long a fetched window is reused.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// ViewportHeight is the visible grid height used to center "now".
	ViewportHeight int `yaml:"viewport_height" json:"viewport_height"`

	// RecurrenceHorizonDays bounds open-ended repeat bookings.
	RecurrenceHorizonDays int `yaml:"recurrence_horizon_days" json:"recurrence_horizon_days"`

	// MaxRecurrences caps the sessions one repeat booking may create.
	MaxRecurrences int `yaml:"max_recurrences" json:"max_recurrences"`

	// Locations names location ids in the iCalendar export.
	Locations map[int64]string `yaml:"locations,omitempty" json:"locations,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultAPIBaseURL     = "http://localhost:8000"
	defaultUTCOffset      = "+00:00"
	defaultRefreshCron    = "*/15 * * * *"
	defaultCacheTTL       = 30
	defaultViewportHeight = 720
	defaultHorizonDays    = 365
	defaultMaxRecurrences = 52
	defaultCaptureOutput  = "./cache/preview.png"
	defaultCaptureWidth   = 1280
	defaultCaptureHeight  = 900
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                defaultListen,
		APIBaseURL:            defaultAPIBaseURL,
		UTCOffset:             defaultUTCOffset,
		WeekStart:             "monday",
		DefaultView:           string(model.ViewWeek),
		RefreshCron:           defaultRefreshCron,
		CacheTTLSeconds:       defaultCacheTTL,
		ViewportHeight:        defaultViewportHeight,
		RecurrenceHorizonDays: defaultHorizonDays,
		MaxRecurrences:        defaultMaxRecurrences,
		Capture: CaptureConfig{
			Output: defaultCaptureOutput,
			Width:  defaultCaptureWidth,
			Height: defaultCaptureHeight,
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.UTCOffset == "" {
		c.UTCOffset = defaultUTCOffset
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	c.DefaultView = string(model.ParseViewMode(c.DefaultView, model.ViewWeek))
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = defaultCacheTTL
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = defaultViewportHeight
	}
	if c.RecurrenceHorizonDays <= 0 {
		c.RecurrenceHorizonDays = defaultHorizonDays
	}
	if c.MaxRecurrences <= 0 {
		c.MaxRecurrences = defaultMaxRecurrences
	}
	if c.Capture.Output == "" {
		c.Capture.Output = defaultCaptureOutput
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureHeight
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = "info"
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := clock.ParseOffset(c.UTCOffset); err != nil {
		return fmt.Errorf("config: utc_offset: %w", err)
	}
	return nil
}

// Zone returns the fixed operating zone. Call Validate first; an invalid
// offset yields UTC here.
func (c *Config) Zone() clock.Zone {
	z, err := clock.ParseOffset(c.UTCOffset)
	if err != nil {
		return clock.FixedZone(0)
	}
	return z
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// ViewMode returns DefaultView as a model.ViewMode.
func (c *Config) ViewMode() model.ViewMode {
	return model.ParseViewMode(c.DefaultView, model.ViewWeek)
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".trainercal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
