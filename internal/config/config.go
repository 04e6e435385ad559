// Package config provides configuration management for the batch tracker.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (SERVER_PORT, STORE_BACKEND, ADMIN_SECRET, ...)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	Shift    ShiftConfig    `mapstructure:"shift"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Display  DisplayConfig  `mapstructure:"display"`
	Mixers   MixersConfig   `mapstructure:"mixers"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS for the dashboard frontend.
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StoreConfig selects and configures the ticket persistence backend.
type StoreConfig struct {
	Backend     string `mapstructure:"backend"` // file or sqlite
	ActivePath  string `mapstructure:"active_path"`
	ArchivePath string `mapstructure:"archive_path"`
	MetaPath    string `mapstructure:"meta_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	BackupDir   string `mapstructure:"backup_dir"`
}

// RedisConfig configures the ticket event publisher.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	NotifyPoolSize  int `mapstructure:"notify_pool_size"`
}

// TimeoutConfig holds the advisory overdue thresholds.
type TimeoutConfig struct {
	Production time.Duration `mapstructure:"production"`
	Lab        time.Duration `mapstructure:"lab"`
}

// ShiftConfig defines the two shift boundaries in the display zone.
type ShiftConfig struct {
	DayStartHour   int `mapstructure:"day_start_hour"`
	NightStartHour int `mapstructure:"night_start_hour"`
	UTCOffsetHours int `mapstructure:"utc_offset_hours"`
}

// MonitorConfig controls the periodic overdue scan.
type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// BackupConfig controls the scheduled daily snapshot. Manual backups through
// the admin API are always available.
type BackupConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	At      string `mapstructure:"at"` // HH:MM in the display zone
}

// AdminConfig holds the shared secret guarding destructive admin operations.
// SecretHash (bcrypt) takes precedence over the plain Secret.
type AdminConfig struct {
	Secret     string `mapstructure:"secret"`
	SecretHash string `mapstructure:"secret_hash"`
}

// DisplayConfig selects the label locale for exports and notifications.
type DisplayConfig struct {
	Locale string `mapstructure:"locale"` // en or ru
}

// MixersConfig is the product → eligible mixer numbers table.
type MixersConfig struct {
	Products map[string][]int `mapstructure:"products"`
}

// NotifyConfig toggles ticket notifications.
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/batchtrack")

	// store.backend → STORE_BACKEND
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Store.Backend)
	}
	if c.Admin.Secret == "" && c.Admin.SecretHash == "" {
		return fmt.Errorf("admin.secret or admin.secret_hash must be set")
	}
	if c.Shift.DayStartHour < 0 || c.Shift.DayStartHour > 23 ||
		c.Shift.NightStartHour < 0 || c.Shift.NightStartHour > 23 {
		return fmt.Errorf("shift hours must be within 0..23")
	}
	if c.Shift.DayStartHour >= c.Shift.NightStartHour {
		return fmt.Errorf("shift.day_start_hour must be before shift.night_start_hour")
	}
	if c.Timeouts.Production <= 0 || c.Timeouts.Lab <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if len(c.Mixers.Products) == 0 {
		return fmt.Errorf("mixers.products must not be empty")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when redis is enabled")
	}
	if c.Backup.Enabled {
		if _, _, err := ParseClock(c.Backup.At); err != nil {
			return fmt.Errorf("backup.at: %w", err)
		}
	}
	return nil
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q as HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// DefaultMixerTable is the production floor layout: mixers 1–8 are the legacy
// generation, 9 and above the new one.
func DefaultMixerTable() map[string][]int {
	return map[string][]int{
		"Gel":         {1, 2, 3, 9, 10},
		"Dishware":    {4, 5, 6, 7, 8},
		"AS":          {11, 12, 13},
		"Conditioner": {2, 6, 10, 14},
	}
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", false)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Store
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.active_path", "tickets.json")
	v.SetDefault("store.archive_path", "archive_tickets.json")
	v.SetDefault("store.meta_path", "tickets_meta.json")
	v.SetDefault("store.sqlite_path", "tickets.db")
	v.SetDefault("store.backup_dir", "backups")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "batchtrack:tickets")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 16)
	v.SetDefault("worker.notify_pool_size", 8)

	// Timeouts
	v.SetDefault("timeouts.production", "70m")
	v.SetDefault("timeouts.lab", "60m")

	// Shifts (Moscow time)
	v.SetDefault("shift.day_start_hour", 7)
	v.SetDefault("shift.night_start_hour", 19)
	v.SetDefault("shift.utc_offset_hours", 3)

	// Monitor
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "5m")

	// Backup
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.at", "06:55")

	// Admin
	v.SetDefault("admin.secret", "")
	v.SetDefault("admin.secret_hash", "")

	// Display
	v.SetDefault("display.locale", "en")

	// Notifications
	v.SetDefault("notify.enabled", true)

	// Mixers
	v.SetDefault("mixers.products", DefaultMixerTable())
}
