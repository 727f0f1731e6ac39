// Package config provides centralized configuration management for the application.
// Process settings come from environment variables with sensible defaults and are
// validated on startup to fail fast on misconfiguration. The tracked package and app
// lists live in a separate entities file (see entities.go).
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Steam    SteamConfig
	Sync     SyncConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File, when set, also writes logs to a rotating file
	File string `env:"LOG_FILE"`

	// MaxSizeMB is the size at which the log file is rotated (default: 50)
	MaxSizeMB int `env:"LOG_MAX_SIZE_MB" default:"50"`

	// MaxBackups is the number of rotated files to keep (default: 5)
	MaxBackups int `env:"LOG_MAX_BACKUPS" default:"5"`

	// MaxAgeDays is how long rotated files are kept (default: 30)
	MaxAgeDays int `env:"LOG_MAX_AGE_DAYS" default:"30"`
}

// SteamConfig holds remote endpoint settings.
type SteamConfig struct {
	// PartnerURL serves the CSV reports
	PartnerURL string `env:"STEAM_PARTNER_URL" default:"https://partner.steampowered.com"`

	// CommunityURL serves the follower counts
	CommunityURL string `env:"STEAM_COMMUNITY_URL" default:"https://steamcommunity.com"`

	// CookieFormat is the Cookie header template; ${runAs} is replaced per entity
	CookieFormat string `env:"STEAM_COOKIE_FORMAT"`

	// HTTPTimeout bounds each request; 0 disables the timeout (default: 0s)
	HTTPTimeout time.Duration `env:"STEAM_HTTP_TIMEOUT" default:"0s"`

	// UserAgent is sent on every request
	UserAgent string `env:"STEAM_USER_AGENT" default:"steamsync/1.0"`
}

// SyncConfig holds scheduler and ingestion settings.
type SyncConfig struct {
	// EntitiesFile lists the tracked packages and apps (default: steamsync.yaml)
	EntitiesFile string `env:"SYNC_ENTITIES_FILE" default:"steamsync.yaml"`

	// WatchEntities reloads EntitiesFile when it changes (default: true)
	WatchEntities bool `env:"SYNC_WATCH_ENTITIES" default:"true"`

	// DailyAt is the UTC wall-clock time of the daily run, HH:MM (default: 12:05)
	DailyAt string `env:"SYNC_DAILY_AT" default:"12:05"`

	// Interval is the period between runs after the first daily run (default: 24h)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"24h"`

	// RetentionDays is the trailing window of sales rows kept (default: 35)
	RetentionDays int `env:"SYNC_RETENTION_DAYS" default:"35"`

	// RunOnStart triggers one run immediately at startup (default: true)
	RunOnStart bool `env:"SYNC_RUN_ON_START" default:"true"`
}

// ServerConfig holds the status HTTP server settings.
type ServerConfig struct {
	// Enabled starts the status server alongside the scheduler (default: true)
	Enabled bool `env:"SERVER_ENABLED" default:"true"`

	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including an in-flight run (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKey, when set, is required in X-API-Key to trigger a manual run
	APIKey string `env:"SERVER_API_KEY"`

	// TrustedProxies is a comma-separated list of CIDRs whose X-Real-IP and
	// X-Forwarded-For headers are believed
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// TrustedProxyList splits TrustedProxies on commas.
func (c *ServerConfig) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DailyOffset parses DailyAt into an offset from UTC midnight.
func (c *SyncConfig) DailyOffset() (time.Duration, error) {
	t, err := time.Parse("15:04", c.DailyAt)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
