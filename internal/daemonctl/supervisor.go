package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"feishu-tray/internal/ipc"
	"feishu-tray/internal/logging"
)

const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultMaxAttempts  = 20
)

var (
	// ErrExecutableNotFound means no candidate directory held the daemon binary.
	ErrExecutableNotFound = errors.New("daemon executable not found")
	// ErrGaveUp means the daemon never answered within the attempt budget.
	ErrGaveUp = errors.New("daemon did not become ready")
)

// State is the supervisor's view of the daemon.
type State string

const (
	StateUnknown    State = "unknown"
	StateNotRunning State = "not_running"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateGaveUp     State = "gave_up"
)

// Daemon is the slice of the IPC client the supervisor needs.
type Daemon interface {
	Probe(ctx context.Context) error
	Stop(ctx context.Context) ipc.Outcome
}

// Options configures lookup and polling.
type Options struct {
	Executable   string
	Args         []string
	ResourceDir  string
	PollInterval time.Duration
	MaxAttempts  int
}

// StartResult describes how EnsureRunning ended.
type StartResult struct {
	State      State
	Launched   bool
	Executable string
	Attempts   int
}

// Supervisor starts and stops the daemon.
type Supervisor struct {
	daemon Daemon
	opts   Options
	logger *slog.Logger

	selfPath func() (string, error)
	launch   func(path string, args []string) error
	sleep    func(ctx context.Context, d time.Duration) error
}

// New builds a Supervisor. Zero poll settings take the defaults.
func New(daemon Daemon, opts Options, logger *slog.Logger) *Supervisor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Executable == "" {
		opts.Executable = defaultExecutable
	}
	if opts.Args == nil {
		opts.Args = []string{"daemon"}
	}
	return &Supervisor{
		daemon:   daemon,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		selfPath: os.Executable,
		launch:   launchDetached,
		sleep:    sleepContext,
	}
}

// EnsureRunning probes the daemon and starts it when it is down. The error
// wraps ErrExecutableNotFound, ErrGaveUp or the spawn failure.
func (s *Supervisor) EnsureRunning(ctx context.Context) (StartResult, error) {
	if err := s.daemon.Probe(ctx); err == nil {
		s.logger.Debug("daemon already running", logging.String(logging.FieldEventType, "daemon_running"))
		return StartResult{State: StateRunning}, nil
	}

	path, err := s.LocateExecutable()
	if err != nil {
		return StartResult{State: StateNotRunning}, err
	}

	if err := s.launch(path, s.opts.Args); err != nil {
		return StartResult{State: StateNotRunning, Executable: path}, fmt.Errorf("spawn %s: %w", path, err)
	}
	s.logger.Info("daemon spawned",
		logging.String("executable", path),
		logging.String(logging.FieldEventType, "daemon_spawned"),
	)

	result := StartResult{State: StateStarting, Launched: true, Executable: path}
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
			return result, err
		}
		result.Attempts = attempt
		if err := s.daemon.Probe(ctx); err == nil {
			result.State = StateRunning
			s.logger.Info("daemon ready",
				logging.Int("attempts", attempt),
				logging.String(logging.FieldEventType, "daemon_ready"),
			)
			return result, nil
		}
	}
	result.State = StateGaveUp
	return result, fmt.Errorf("%w after %d attempts", ErrGaveUp, s.opts.MaxAttempts)
}

// AutoStart runs EnsureRunning and only logs failures, so it never keeps the
// front end from opening.
func (s *Supervisor) AutoStart(ctx context.Context) StartResult {
	result, err := s.EnsureRunning(ctx)
	if err == nil {
		return result
	}
	if errors.Is(err, context.Canceled) {
		return result
	}
	hint := "start feishu-cli manually or set daemon.resource_dir"
	if errors.Is(err, ErrGaveUp) {
		hint = "check the daemon's own logs under ~/.feishu-cli"
	}
	logging.WarnWithContext(s.logger, "daemon auto-start failed", "daemon_autostart_failed",
		logging.Error(err),
		logging.String("state", string(result.State)),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "tray shows the daemon as not running until it is started"),
	)
	return result
}

// Stop sends one stop request and reports the daemon's ok flag.
func (s *Supervisor) Stop(ctx context.Context) bool {
	out := s.daemon.Stop(ctx)
	if out.OK {
		s.logger.Info("daemon stop requested", logging.String(logging.FieldEventType, "daemon_stop_requested"))
		return true
	}
	logging.WarnWithContext(s.logger, "daemon stop request failed", "daemon_stop_failed",
		logging.String("reason", out.Error),
		logging.String(logging.FieldErrorHint, "check whether the daemon is running"),
		logging.String(logging.FieldImpact, "daemon keeps running"),
	)
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
