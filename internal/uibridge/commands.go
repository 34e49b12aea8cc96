package uibridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"feishu-tray/internal/daemonctl"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/logging"
	"feishu-tray/internal/tray"
)

type commandFunc func(ctx context.Context, args json.RawMessage) (any, error)

var errUnknownCommand = errors.New("unknown command")

// StartReply answers start_daemon.
type StartReply struct {
	OK         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
	State      daemonctl.State `json:"state"`
	Launched   bool            `json:"launched"`
	Executable string          `json:"executable,omitempty"`
	Attempts   int             `json:"attempts"`
}

// ExportReply answers export_diagnostics.
type ExportReply struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Path     string `json:"path,omitempty"`
	BundleID string `json:"bundle_id,omitempty"`
}

// UpdateReply answers check_update.
type UpdateReply struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	NotModified    bool   `json:"not_modified"`
	ETag           string `json:"etag,omitempty"`
	HasUpdate      bool   `json:"has_update"`
	CurrentVersion string `json:"current_version,omitempty"`
	LatestVersion  string `json:"latest_version,omitempty"`
	ReleaseURL     string `json:"release_url,omitempty"`
	ReleaseNotes   string `json:"release_notes,omitempty"`
	KnownUpdate    bool   `json:"known_update,omitempty"`
}

type botArgs struct {
	BotType   string          `json:"botType"`
	BotID     string          `json:"botId"`
	SessionID string          `json:"sessionId"`
	Config    json.RawMessage `json:"config"`
}

func (s *Server) dispatch(ctx context.Context, msg Message) Reply {
	reply := Reply{ID: msg.ID}
	fn, ok := s.commands[msg.Command]
	if !ok {
		reply.Error = fmt.Sprintf("%s: %q", errUnknownCommand, msg.Command)
		return reply
	}
	result, err := fn(ctx, msg.Args)
	if err != nil {
		s.logger.Debug("ui command rejected",
			logging.String("command", msg.Command),
			logging.Error(err),
		)
		reply.Error = err.Error()
		return reply
	}
	reply.Result = result
	return reply
}

func (s *Server) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"read_daemon_status": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.ReadStatus(ctx)
		}),
		"list_bots": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.ListBots(ctx)
		}),
		"save_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.SaveBot(ctx, a.BotType, a.Config)
		}),
		"delete_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.DeleteBot(ctx, a.BotType, a.BotID)
		}),
		"bind_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.BindBot(ctx, a.SessionID, a.BotType, a.BotID)
		}),
		"unbind_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.UnbindBot(ctx, a.SessionID, a.BotType)
		}),
		"test_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.TestBot(ctx, a.BotType, a.BotID)
		}),
		"activate_bot": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.ActivateBot(ctx, a.BotID)
		}),
		"get_config": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.GetConfig(ctx)
		}),
		"save_config": s.withDaemon(func(ctx context.Context, d Daemon, a botArgs) any {
			return d.SaveConfig(ctx, a.Config)
		}),
		"check_codex_config": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.CheckCodexConfig(ctx)
		}),
		"setup_codex_config": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.SetupCodexConfig(ctx)
		}),
		"check_claude_config": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.CheckClaudeConfig(ctx)
		}),
		"setup_claude_config": s.withDaemon(func(ctx context.Context, d Daemon, _ botArgs) any {
			return d.SetupClaudeConfig(ctx)
		}),
		"start_daemon":       s.startDaemon,
		"stop_daemon":        s.stopDaemon,
		"export_diagnostics": s.exportDiagnostics,
		"check_update":       s.checkUpdate,
		"menu_event":         s.menuEvent,
	}
}

// withDaemon decodes the common bot arguments and forwards to the daemon.
func (s *Server) withDaemon(fn func(ctx context.Context, d Daemon, args botArgs) any) commandFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		if s.deps.Daemon == nil {
			return nil, errors.New("daemon client not configured")
		}
		var args botArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, s.deps.Daemon, args), nil
	}
}

func (s *Server) startDaemon(ctx context.Context, _ json.RawMessage) (any, error) {
	if s.deps.Lifecycle == nil {
		return nil, errors.New("supervisor not configured")
	}
	res, err := s.deps.Lifecycle.EnsureRunning(ctx)
	reply := StartReply{
		OK:         err == nil,
		State:      res.State,
		Launched:   res.Launched,
		Executable: res.Executable,
		Attempts:   res.Attempts,
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply, nil
}

func (s *Server) stopDaemon(ctx context.Context, _ json.RawMessage) (any, error) {
	if s.deps.Lifecycle == nil {
		return nil, errors.New("supervisor not configured")
	}
	if !s.deps.Lifecycle.Stop(ctx) {
		return ipc.Outcome{OK: false, Error: "stop request failed"}, nil
	}
	return ipc.Outcome{OK: true}, nil
}

func (s *Server) exportDiagnostics(_ context.Context, raw json.RawMessage) (any, error) {
	if s.deps.Exporter == nil {
		return nil, errors.New("diagnostics exporter not configured")
	}
	var args struct {
		Destination string `json:"destination"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	dest := strings.TrimSpace(args.Destination)
	if dest == "" {
		return nil, errors.New("destination is required")
	}
	res, err := s.deps.Exporter.Export(dest)
	if err != nil {
		return ExportReply{OK: false, Error: err.Error()}, nil
	}
	return ExportReply{OK: true, Path: res.Path, BundleID: res.BundleID}, nil
}

func (s *Server) checkUpdate(ctx context.Context, raw json.RawMessage) (any, error) {
	if s.deps.Update == nil {
		return nil, errors.New("update checker not configured")
	}
	var args struct {
		ETag string `json:"etag"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	res, err := s.deps.Update(ctx, args.ETag)
	if err != nil {
		return UpdateReply{OK: false, Error: err.Error()}, nil
	}
	return UpdateReply{
		OK:             true,
		NotModified:    res.NotModified,
		ETag:           res.ETag,
		HasUpdate:      res.HasUpdate,
		CurrentVersion: res.CurrentVersion,
		LatestVersion:  res.LatestVersion,
		ReleaseURL:     res.ReleaseURL,
		ReleaseNotes:   res.ReleaseNotes,
		KnownUpdate:    res.KnownUpdate,
	}, nil
}

func (s *Server) menuEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	if s.deps.Tray == nil {
		return nil, errors.New("tray not configured")
	}
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	handled := s.deps.Tray.Dispatch(ctx, tray.ItemID(args.ID))
	return struct {
		Handled bool `json:"handled"`
	}{Handled: handled}, nil
}

// decodeArgs accepts absent or null args as an empty object.
func decodeArgs(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}
