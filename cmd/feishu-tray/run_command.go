package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"feishu-tray/internal/logging"
	"feishu-tray/internal/statussync"
	"feishu-tray/internal/tray"
	"feishu-tray/internal/uibridge"
	"feishu-tray/internal/updatecheck"
	"feishu-tray/internal/updatestate"
)

// ErrAlreadyRunning reports that another companion holds the instance lock.
var ErrAlreadyRunning = errors.New("feishu-tray is already running")

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tray companion until interrupted or quit from the menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompanion(cmd.Context(), ctx)
		},
	}
}

func runCompanion(parent context.Context, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	logger, logPath, err := logging.NewForRun(cfg, runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.PruneLogs(logger, cfg.LogDir(), logging.LogFilePattern, cfg.Logging.RetentionDays, logPath)

	signalCtx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	runCtx, quit := context.WithCancel(signalCtx)
	defer quit()

	svc := ctx.services(logger)

	store, err := updatestate.Open(cfg.StateDBPath())
	if err != nil {
		return fmt.Errorf("open update state: %w", err)
	}
	defer store.Close()

	var bridge *uibridge.Server
	handle := tray.New(tray.Actions{
		Open: func() {
			logger.Info("settings window requested",
				logging.String(logging.FieldEventType, "tray_open"),
				logging.String("ui_address", "ws://"+bridge.Addr()+"/ws"),
			)
		},
		Stop: svc.supervisor.Stop,
		Quit: func() {
			logger.Info("quit requested", logging.String(logging.FieldEventType, "tray_quit"))
			quit()
		},
	}, logger)

	bridge = uibridge.New(cfg.UI.Bind, uibridge.Deps{
		Daemon:    svc.client,
		Lifecycle: svc.supervisor,
		Exporter:  svc.exporter,
		Update: func(ctx context.Context, etag string) (updatecheck.Result, error) {
			return svc.checkForUpdate(ctx, store, etag)
		},
		Tray: handle,
	}, logger)
	if err := bridge.Start(runCtx); err != nil {
		return err
	}
	defer bridge.Close()

	logger.Info("feishu-tray started",
		logging.String(logging.FieldEventType, "companion_started"),
		logging.String("version", version),
		logging.String("config_state_dir", cfg.Paths.StateDir),
		logging.String("log_path", logPath),
		logging.String("ui_address", bridge.Addr()),
	)

	var wg sync.WaitGroup
	if cfg.Supervisor.AutoStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.supervisor.AutoStart(runCtx)
		}()
	}

	syncer := statussync.New(svc.client, handle, cfg.SyncInterval(), logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.Run(runCtx)
	}()

	<-runCtx.Done()
	logger.Info("feishu-tray stopping", logging.String(logging.FieldEventType, "companion_stopping"))
	wg.Wait()
	return nil
}
