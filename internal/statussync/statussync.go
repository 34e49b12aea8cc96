// Package statussync keeps the tray's daemon labels current.
//
// A Synchronizer ticks on a fixed interval. Each tick is independent: it asks
// the daemon for status and writes both labels, with no memoization and no
// suppression of repeated values. Run stops when its context is cancelled.
package statussync

import (
	"context"
	"log/slog"
	"time"

	"feishu-tray/internal/ipc"
	"feishu-tray/internal/logging"
	"feishu-tray/internal/tray"
)

// DefaultInterval is the tick period.
const DefaultInterval = 5 * time.Second

// StatusSource reports daemon state. ipc.Client satisfies it.
type StatusSource interface {
	Status(ctx context.Context) (ipc.DaemonState, error)
}

// Snapshot is the result of one tick.
type Snapshot struct {
	Running        bool      `json:"running" yaml:"running"`
	ActiveSessions int64     `json:"active_sessions" yaml:"active_sessions"`
	StatusText     string    `json:"status_text" yaml:"status_text"`
	SessionsText   string    `json:"sessions_text" yaml:"sessions_text"`
	At             time.Time `json:"at" yaml:"at"`
}

// Synchronizer refreshes a tray handle from the daemon.
type Synchronizer struct {
	source   StatusSource
	handle   *tray.Handle
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Synchronizer. A non-positive interval uses DefaultInterval.
func New(source StatusSource, handle *tray.Handle, interval time.Duration, logger *slog.Logger) *Synchronizer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Synchronizer{
		source:   source,
		handle:   handle,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "statussync"),
		now:      time.Now,
	}
}

// Run waits one interval, ticks, and repeats until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("status sync started", logging.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("status sync stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one refresh and returns what it wrote.
func (s *Synchronizer) Tick(ctx context.Context) Snapshot {
	snap := Snapshot{At: s.now()}
	state, err := s.source.Status(ctx)
	if err != nil {
		snap.StatusText = tray.StatusNotRunning
		s.logger.Debug("daemon status unavailable", logging.Error(err))
	} else {
		snap.Running = true
		snap.ActiveSessions = state.ActiveSessions
		snap.StatusText = tray.StatusRunning
	}
	snap.SessionsText = tray.SessionsText(snap.ActiveSessions)

	if s.handle != nil {
		s.handle.SetText(tray.ItemStatus, snap.StatusText)
		s.handle.SetText(tray.ItemSessions, snap.SessionsText)
	}
	return snap
}
