package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"feishu-tray/internal/config"
	"feishu-tray/internal/daemonctl"
	"feishu-tray/internal/diagbundle"
	"feishu-tray/internal/endpoint"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/logging"
	"feishu-tray/internal/updatecheck"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	outputFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		outputFlag:   outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level := c.logLevel(); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
}

func (c *commandContext) output() outputFormat {
	if c.outputFlag == nil {
		return outputTable
	}
	format, err := parseOutputFormat(*c.outputFlag)
	if err != nil {
		return outputTable
	}
	return format
}

// commandLogger writes to stderr so stdout stays parseable.
func (c *commandContext) commandLogger() *slog.Logger {
	logger, err := logging.NewFromConfig(c.configValue())
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// services are the wired components shared by `run` and the one-shot commands.
type services struct {
	cfg        *config.Config
	locator    *endpoint.Locator
	client     *ipc.Client
	supervisor *daemonctl.Supervisor
	exporter   *diagbundle.Exporter
	checker    *updatecheck.Checker
}

func (c *commandContext) services(logger *slog.Logger) *services {
	cfg := c.configValue()
	locator := endpoint.NewLocator(cfg.Daemon.AppDir)
	client := ipc.NewClient(locator, ipc.NewTransport(cfg.RequestTimeout()), logger)
	supervisor := daemonctl.New(client, daemonctl.Options{
		Executable:   cfg.Daemon.Executable,
		Args:         cfg.Daemon.Args,
		ResourceDir:  cfg.Daemon.ResourceDir,
		PollInterval: cfg.PollInterval(),
		MaxAttempts:  cfg.Supervisor.MaxAttempts,
	}, logger)
	return &services{
		cfg:        cfg,
		locator:    locator,
		client:     client,
		supervisor: supervisor,
		exporter:   diagbundle.New(locator, version, logger),
		checker:    updatecheck.New(cfg.Update.URL, cfg.UpdateTimeout(), "feishu-tray/"+version, logger),
	}
}

// currentVersion is the daemon version compared against releases.
func (s *services) currentVersion() string {
	if v := strings.TrimSpace(s.cfg.Update.CurrentVersion); v != "" {
		return v
	}
	return version
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
