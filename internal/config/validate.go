package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	if c.Sync.IntervalSeconds <= 0 {
		return errors.New("sync.interval_seconds must be positive")
	}
	if err := c.validateUpdate(); err != nil {
		return err
	}
	if _, _, err := net.SplitHostPort(c.UI.Bind); err != nil {
		return fmt.Errorf("ui.bind: %w", err)
	}
	return c.validateLogging()
}

func (c *Config) validateDaemon() error {
	if strings.ContainsAny(c.Daemon.AppDir, `/\`) {
		return errors.New("daemon.app_dir must be a single directory name")
	}
	if c.Daemon.RequestTimeoutSeconds <= 0 {
		return errors.New("daemon.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.PollIntervalMillis <= 0 {
		return errors.New("supervisor.poll_interval_ms must be positive")
	}
	if c.Supervisor.MaxAttempts <= 0 {
		return errors.New("supervisor.max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateUpdate() error {
	parsed, err := url.Parse(c.Update.URL)
	if err != nil {
		return fmt.Errorf("update.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("update.url must be http or https, got %q", c.Update.URL)
	}
	if c.Update.TimeoutSeconds <= 0 {
		return errors.New("update.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
