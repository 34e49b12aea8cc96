package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feishu-tray/internal/daemonctl"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/statussync"
	"feishu-tray/internal/tray"
)

type startOutput struct {
	State      daemonctl.State `json:"state" yaml:"state"`
	Launched   bool            `json:"launched" yaml:"launched"`
	Executable string          `json:"executable,omitempty" yaml:"executable,omitempty"`
	Attempts   int             `json:"attempts" yaml:"attempts"`
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the feishu-cli daemon and wait until it answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			result, err := svc.supervisor.EnsureRunning(cmd.Context())
			if err != nil {
				switch {
				case errors.Is(err, daemonctl.ErrExecutableNotFound):
					return fmt.Errorf("%w (set daemon.executable or daemon.resource_dir)", err)
				case errors.Is(err, daemonctl.ErrGaveUp):
					return fmt.Errorf("%w; check the daemon log in %s", err, dataDirHint(svc))
				}
				return err
			}
			out := startOutput{State: result.State, Launched: result.Launched, Executable: result.Executable, Attempts: result.Attempts}
			if handled, err := writeStructured(cmd, ctx.output(), out); handled {
				return err
			}
			stdout := cmd.OutOrStdout()
			if !result.Launched {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintf(stdout, "Daemon not running, launched %s\n", result.Executable)
			fmt.Fprintf(stdout, "Daemon started after %d checks\n", result.Attempts)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the feishu-cli daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			outcome := svc.client.Stop(cmd.Context())
			if handled, err := writeStructured(cmd, ctx.output(), outcome); handled {
				return err
			}
			if outcome.OK {
				fmt.Fprintln(cmd.OutOrStdout(), "Stop request sent")
				return nil
			}
			if daemonDown(cmd.Context(), svc, outcome) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			return fmt.Errorf("stop daemon: %s", outcome.Error)
		},
	}

	var watch bool
	var interval time.Duration
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.commandLogger()
			svc := ctx.services(logger)
			if watch {
				return watchStatus(cmd, ctx, svc, interval)
			}

			status := svc.client.ReadStatus(cmd.Context())
			if handled, err := writeStructured(cmd, ctx.output(), status); handled {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Daemon Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonStatusLines(status, endpointHint(svc), colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !status.Running {
				return nil
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Sessions", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(status.Sessions) == 0 {
				fmt.Fprintln(stdout, "No active sessions")
				return nil
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Session", "CLI", "Status", "Interactive bot", "Push bot", "Working dir"},
				sessionRows(status.Sessions),
				nil,
				colorize,
			))
			return nil
		},
	}
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing like the tray does until interrupted")
	statusCmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval for --watch (defaults to sync.interval_seconds)")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

// watchStatus drives the same synchronizer as the tray and prints each label
// change.
func watchStatus(cmd *cobra.Command, ctx *commandContext, svc *services, interval time.Duration) error {
	watchCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if interval <= 0 {
		interval = svc.cfg.SyncInterval()
	}
	logger := ctx.commandLogger()
	handle := tray.New(tray.Actions{}, logger)

	format := ctx.output()
	var mu sync.Mutex
	last := make(map[tray.ItemID]string)
	unwatch := handle.Watch(func(id tray.ItemID, text string) {
		mu.Lock()
		defer mu.Unlock()
		if last[id] == text {
			return
		}
		last[id] = text
		if format == outputJSON {
			_ = writeJSON(cmd, struct {
				Item tray.ItemID `json:"item"`
				Text string      `json:"text"`
				At   time.Time   `json:"at"`
			}{id, text, time.Now()})
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", time.Now().Format(time.TimeOnly), text)
	})
	defer unwatch()

	syncer := statussync.New(svc.client, handle, interval, logger)
	syncer.Tick(watchCtx)
	syncer.Run(watchCtx)
	return nil
}

func endpointHint(svc *services) string {
	ep, err := svc.locator.Resolve()
	if err != nil {
		return ""
	}
	return ep.String()
}

func dataDirHint(svc *services) string {
	dir, err := svc.locator.DataDir()
	if err != nil {
		return "the daemon data directory"
	}
	return dir
}

// daemonDown reports whether a failed stop means nothing is listening. With a
// home directory the endpoint always resolves, so an unanswered request is
// only "not running" once a status probe fails too.
func daemonDown(ctx context.Context, svc *services, outcome ipc.Outcome) bool {
	switch outcome.Error {
	case ipc.ErrTextNotRunning:
		return true
	case ipc.ErrTextNoResponse:
		return svc.client.Probe(ctx) != nil
	}
	return false
}
