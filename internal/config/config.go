package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const appDir = ".config/timernudge"

// Config holds process-level configuration. User-editable reminder settings
// (poll interval, work apps, identity overrides) live in the settings file.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Settings file configuration
	Settings SettingsConfig

	// Remote timer API configuration
	API APIConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Logging configuration
	Log LogConfig

	// Web server configuration
	Web WebConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// SettingsConfig locates the YAML settings file
type SettingsConfig struct {
	Path string
}

// APIConfig holds remote timer API configuration
type APIConfig struct {
	BaseURL    string
	AuthHeader string        // "X-Api-Key", or "Authorization" for a bearer token
	Timeout    time.Duration // Bound on each remote call
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // Daemon log file
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/timernudge/timernudge.db
		},
		Settings: SettingsConfig{
			Path: "", // Empty means use default ~/.config/timernudge/settings.yaml
		},
		API: APIConfig{
			BaseURL:    "https://api.clockify.me/api/v1",
			AuthHeader: "X-Api-Key",
			Timeout:    15 * time.Second,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/timernudge-%d.pid", os.Getuid()),
		},
		Log: LogConfig{
			Level: "info",
			File:  fmt.Sprintf("/tmp/timernudge-%d.log", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 17000 + os.Getuid()%1000,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API base URL %q is not an absolute URL", c.API.BaseURL)
	}

	if c.API.AuthHeader == "" {
		return fmt.Errorf("API auth header cannot be empty")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive, got %v", c.API.Timeout)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// WebAddress returns host:port of the local control API
func (c *Config) WebAddress() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// DefaultPath returns ~/.config/timernudge/<name>, creating the directory.
func DefaultPath(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, name), nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Settings:
    Path: %s
  API:
    Base URL: %s
    Auth Header: %s
    Timeout: %v
  Daemon:
    PID File: %s
  Log:
    Level: %s
    File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Settings.Path,
		c.API.BaseURL,
		c.API.AuthHeader,
		c.API.Timeout,
		c.Daemon.PIDFile,
		c.Log.Level,
		c.Log.File,
		c.Web.Host,
		c.Web.Port,
	)
}
