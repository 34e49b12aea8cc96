package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeDaemon()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Update.URL = strings.TrimSpace(c.Update.URL)
	if c.Update.URL == "" {
		c.Update.URL = defaultUpdateURL
	}
	c.Update.CurrentVersion = strings.TrimSpace(c.Update.CurrentVersion)
	c.UI.Bind = strings.TrimSpace(c.UI.Bind)
	if c.UI.Bind == "" {
		c.UI.Bind = defaultUIBind
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDaemon() {
	c.Daemon.AppDir = strings.TrimSpace(c.Daemon.AppDir)
	if c.Daemon.AppDir == "" {
		c.Daemon.AppDir = defaultAppDir
	}
	c.Daemon.Executable = strings.TrimSpace(c.Daemon.Executable)
	if c.Daemon.Executable == "" {
		c.Daemon.Executable = defaultExecutable
	}
	if c.Daemon.Args == nil {
		c.Daemon.Args = []string{"daemon"}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if dir := strings.TrimSpace(c.Daemon.ResourceDir); dir != "" {
		if c.Daemon.ResourceDir, err = expandPath(dir); err != nil {
			return fmt.Errorf("daemon.resource_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
