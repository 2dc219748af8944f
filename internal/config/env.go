package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	if dbPath := os.Getenv("TIMERNUDGE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if settingsPath := os.Getenv("TIMERNUDGE_SETTINGS_PATH"); settingsPath != "" {
		cfg.Settings.Path = settingsPath
	}

	if baseURL := os.Getenv("TIMERNUDGE_API_URL"); baseURL != "" {
		cfg.API.BaseURL = strings.TrimRight(baseURL, "/")
	}

	if header := os.Getenv("TIMERNUDGE_API_AUTH_HEADER"); header != "" {
		cfg.API.AuthHeader = header
	}

	if timeout := os.Getenv("TIMERNUDGE_API_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			cfg.API.Timeout = time.Duration(seconds) * time.Second
		}
	}

	if pidFile := os.Getenv("TIMERNUDGE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if level := os.Getenv("TIMERNUDGE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}

	if logFile := os.Getenv("TIMERNUDGE_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}

	if webHost := os.Getenv("TIMERNUDGE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("TIMERNUDGE_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
