package config

const (
	defaultAppDir                = ".feishu-cli"
	defaultExecutable            = "feishu-cli"
	defaultRequestTimeoutSeconds = 10
	defaultPollIntervalMillis    = 300
	defaultMaxAttempts           = 20
	defaultSyncIntervalSeconds   = 5
	defaultUpdateURL             = "https://api.github.com/repos/feishu-cli/feishu-cli/releases/latest"
	defaultUpdateTimeoutSeconds  = 15
	defaultUIBind                = "127.0.0.1:47621"
	defaultStateDir              = "~/.local/share/feishu-tray"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			AppDir:                defaultAppDir,
			Executable:            defaultExecutable,
			Args:                  []string{"daemon"},
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Supervisor: Supervisor{
			PollIntervalMillis: defaultPollIntervalMillis,
			MaxAttempts:        defaultMaxAttempts,
			AutoStart:          true,
		},
		Sync: Sync{
			IntervalSeconds: defaultSyncIntervalSeconds,
		},
		Update: Update{
			URL:            defaultUpdateURL,
			TimeoutSeconds: defaultUpdateTimeoutSeconds,
		},
		UI: UI{
			Bind: defaultUIBind,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
