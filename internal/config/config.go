// Package config provides configuration file and environment variable support for campusdesk.
//
// Configuration priority (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (CAMPUSDESK_*), including values from a .env file
//  3. Config file (~/.campusdesk/config.toml)
//  4. Built-in defaults
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/campusdesk/campusdesk/internal/common"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/campusdesk/campusdesk/internal/sla"
)

// Config represents the campusdesk configuration.
type Config struct {
	// DB is the path to the database file.
	// Default: ~/.campusdesk/campusdesk.db
	DB string `toml:"db"`

	// NoColor disables colored output.
	NoColor bool `toml:"no_color"`

	// Timezone is the IANA zone used for civil dates and display.
	// Empty means Asia/Ho_Chi_Minh.
	Timezone string `toml:"timezone"`

	SLA    SLAConfig    `toml:"sla"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Backup BackupConfig `toml:"backup"`
}

// SLAConfig selects the deadline policy.
type SLAConfig struct {
	Mode        string  `toml:"mode"`
	UrgentHours float64 `toml:"urgent_hours"`
	HighHours   float64 `toml:"high_hours"`
	MediumHours float64 `toml:"medium_hours"`
	LowHours    float64 `toml:"low_hours"`

	// AutoCloseHours closes resolved tickets after this many hours.
	// Zero disables auto-close.
	AutoCloseHours float64 `toml:"auto_close_hours"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for listening.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// BackupConfig controls database snapshots.
type BackupConfig struct {
	// Enabled turns snapshots on. Default: true
	Enabled bool `toml:"enabled"`

	// IntervalHours is the minimum age of the newest snapshot before a
	// routine one is taken. Imports and init --force always snapshot.
	IntervalHours int `toml:"interval_hours"`

	// MaxCount is the number of rotated snapshots to keep.
	MaxCount int `toml:"max_count"`

	// Path is the snapshot directory. Empty means next to the database.
	Path string `toml:"path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		SLA: SLAConfig{
			Mode:        string(sla.ModePriority),
			UrgentHours: sla.DefaultPriorityHours[models.PriorityUrgent],
			HighHours:   sla.DefaultPriorityHours[models.PriorityHigh],
			MediumHours: sla.DefaultPriorityHours[models.PriorityMedium],
			LowHours:    sla.DefaultPriorityHours[models.PriorityLow],
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Log:    LogConfig{Level: "info", Format: "console"},
		Backup: BackupConfig{Enabled: true, IntervalHours: 24, MaxCount: 5},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".campusdesk", "config.toml")
}

// Load loads configuration from the default config file, a .env file in the
// working directory and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return LoadFromPath(DefaultConfigPath())
}

// LoadFromPath loads configuration from a specific file path.
// Environment variables take precedence over file settings.
// Returns default config if the config file doesn't exist.
func LoadFromPath(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if db := os.Getenv("CAMPUSDESK_DB"); db != "" {
		c.DB = db
	}
	if _, ok := os.LookupEnv("CAMPUSDESK_NO_COLOR"); ok {
		c.NoColor = true
	}
	if tz := os.Getenv("CAMPUSDESK_TIMEZONE"); tz != "" {
		c.Timezone = tz
	}
	if mode := os.Getenv("CAMPUSDESK_SLA_MODE"); mode != "" {
		c.SLA.Mode = strings.ToLower(mode)
	}
	if level := os.Getenv("CAMPUSDESK_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if port := os.Getenv("CAMPUSDESK_SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("CAMPUSDESK_SERVER_PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks values that would otherwise fail later at use.
func (c *Config) Validate() error {
	if !sla.Mode(c.SLA.Mode).IsValid() {
		return fmt.Errorf("sla.mode must be %q or %q, got %q", sla.ModePriority, sla.ModeCategory, c.SLA.Mode)
	}
	for name, h := range map[string]float64{
		"urgent_hours": c.SLA.UrgentHours,
		"high_hours":   c.SLA.HighHours,
		"medium_hours": c.SLA.MediumHours,
		"low_hours":    c.SLA.LowHours,
	} {
		if h <= 0 || h > models.MaxAllowanceHours {
			return fmt.Errorf("sla.%s must be in (0, %d], got %v", name, models.MaxAllowanceHours, h)
		}
	}
	if c.SLA.AutoCloseHours < 0 {
		return fmt.Errorf("sla.auto_close_hours must not be negative")
	}
	if c.Backup.IntervalHours < 0 {
		return fmt.Errorf("backup.interval_hours must not be negative")
	}
	if c.Backup.Enabled && c.Backup.MaxCount < 1 {
		return fmt.Errorf("backup.max_count must be at least 1, got %d", c.Backup.MaxCount)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := common.LoadLocation(c.Timezone); err != nil {
		return err
	}
	return nil
}

// GetDB returns the database path, or empty to signal db.DefaultDBPath.
func (c *Config) GetDB() string {
	return c.DB
}

// Policy builds the SLA policy described by the [sla] section.
func (c *Config) Policy() sla.Policy {
	return sla.Policy{
		Mode: sla.Mode(c.SLA.Mode),
		PriorityHours: map[models.Priority]float64{
			models.PriorityUrgent: c.SLA.UrgentHours,
			models.PriorityHigh:   c.SLA.HighHours,
			models.PriorityMedium: c.SLA.MediumHours,
			models.PriorityLow:    c.SLA.LowHours,
		},
	}
}

// Location returns the display zone.
func (c *Config) Location() *time.Location {
	loc, err := common.LoadLocation(c.Timezone)
	if err != nil {
		return common.DisplayLocation()
	}
	return loc
}

// AutoCloseGrace returns the auto-close delay, zero when disabled.
func (c *Config) AutoCloseGrace() time.Duration {
	return time.Duration(c.SLA.AutoCloseHours * float64(time.Hour))
}

// SampleConfig returns a sample configuration file content.
func SampleConfig() string {
	return `# campusdesk configuration
# Location: ~/.campusdesk/config.toml
#
# Configuration priority (highest to lowest):
#   1. Command-line flags
#   2. Environment variables (CAMPUSDESK_*), also read from ./.env
#   3. This config file
#   4. Built-in defaults

# Path to the database file
# Default: ~/.campusdesk/campusdesk.db
# Environment: CAMPUSDESK_DB
# db = "/path/to/campusdesk.db"

# Disable colored output
# Environment: CAMPUSDESK_NO_COLOR (any value = true)
# no_color = false

# Zone for civil dates in listings and views
# Default: Asia/Ho_Chi_Minh
# Environment: CAMPUSDESK_TIMEZONE
# timezone = "Asia/Ho_Chi_Minh"

[sla]
# "priority" uses the hour table below, "category" uses each category's hours
# Environment: CAMPUSDESK_SLA_MODE
mode = "priority"
urgent_hours = 4
high_hours = 24
medium_hours = 48
low_hours = 72
# Close resolved tickets automatically after this many hours (0 = never)
auto_close_hours = 0

[server]
host = "127.0.0.1"
# Environment: CAMPUSDESK_SERVER_PORT
port = 8080

[log]
# debug, info, warn, error
# Environment: CAMPUSDESK_LOG_LEVEL
level = "info"
# console or json
format = "console"

[backup]
# Snapshot the database before imports and at most once per interval otherwise
enabled = true
interval_hours = 24
max_count = 5
# Snapshot directory, default is next to the database
# path = "/path/to/backups"
`
}

// WriteConfigFile writes the sample config file to the specified path.
// Creates parent directories if needed.
func WriteConfigFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(SampleConfig()), 0644)
}
