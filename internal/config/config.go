package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Daemon describes how the feishu-cli daemon is found and reached.
type Daemon struct {
	AppDir                string   `toml:"app_dir"`
	Executable            string   `toml:"executable"`
	Args                  []string `toml:"args"`
	ResourceDir           string   `toml:"resource_dir"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
}

// Supervisor controls the start-and-wait loop.
type Supervisor struct {
	PollIntervalMillis int  `toml:"poll_interval_ms"`
	MaxAttempts        int  `toml:"max_attempts"`
	AutoStart          bool `toml:"auto_start"`
}

// Sync controls the tray status refresh loop.
type Sync struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Update contains the release check settings.
type Update struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CurrentVersion string `toml:"current_version"`
}

// UI contains the front-end bridge listener settings.
type UI struct {
	Bind string `toml:"bind"`
}

// Paths contains directories owned by the companion.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for feishu-tray.
type Config struct {
	Daemon     Daemon     `toml:"daemon"`
	Supervisor Supervisor `toml:"supervisor"`
	Sync       Sync       `toml:"sync"`
	Update     Update     `toml:"update"`
	UI         UI         `toml:"ui"`
	Paths      Paths      `toml:"paths"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/feishu-tray/config.toml")
}

// Load locates, parses, and validates a configuration file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogDir is where `run` writes its log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// StateDBPath is the SQLite database holding update check history.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// LockPath is the single-instance lock used by `run`.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "feishu-tray.lock")
}

// RequestTimeout bounds one daemon exchange.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Daemon.RequestTimeoutSeconds) * time.Second
}

// PollInterval is the delay between readiness probes after a spawn.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Supervisor.PollIntervalMillis) * time.Millisecond
}

// SyncInterval is the tray refresh period.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// UpdateTimeout bounds one release check.
func (c *Config) UpdateTimeout() time.Duration {
	return time.Duration(c.Update.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
