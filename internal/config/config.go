package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Environment overrides
const (
	EnvAPIURL        = "OASPRACTICE_API_URL"
	EnvStorageDriver = "OASPRACTICE_STORAGE_DRIVER"
	EnvStorageDSN    = "OASPRACTICE_STORAGE_DSN"
	EnvPort          = "OASPRACTICE_PORT"
	EnvScenariosPath = "OASPRACTICE_SCENARIOS_PATH"
	EnvAMQPURL       = "OASPRACTICE_AMQP_URL"
	EnvLogLevel      = "OASPRACTICE_LOG_LEVEL"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// applyEnv overlays environment variables onto cfg
func applyEnv(cfg *LocalConfig) {
	cfg.Client.APIURL = getEnv(EnvAPIURL, cfg.Client.APIURL)
	cfg.Storage.Driver = getEnv(EnvStorageDriver, cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv(EnvStorageDSN, cfg.Storage.DSN)
	cfg.Daemon.Port = getEnvInt(EnvPort, cfg.Daemon.Port)
	cfg.Daemon.ScenariosPath = getEnv(EnvScenariosPath, cfg.Daemon.ScenariosPath)

	if url := os.Getenv(EnvAMQPURL); url != "" {
		cfg.Events.AMQPURL = url
		cfg.Events.Enabled = true
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Client.LogLevel = level
		cfg.Daemon.LogLevel = level
	}
}

// Validate checks settings that would otherwise fail late
func (c *LocalConfig) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite, DriverBadger:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage driver postgres requires a dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Daemon.Port < 1 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: daemon port %d out of range", ErrInvalidConfig, c.Daemon.Port)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Daemon.LogLevel)) {
		return fmt.Errorf("%w: daemon log level %q", ErrInvalidConfig, c.Daemon.LogLevel)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Client.LogLevel)) {
		return fmt.Errorf("%w: client log level %q", ErrInvalidConfig, c.Client.LogLevel)
	}
	if c.Client.APIURL == "" {
		return fmt.Errorf("%w: client api_url is empty", ErrInvalidConfig)
	}
	if c.Events.Enabled && c.Events.AMQPURL == "" {
		return fmt.Errorf("%w: events enabled without amqp_url", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the daemon listen address
func (c DaemonConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
