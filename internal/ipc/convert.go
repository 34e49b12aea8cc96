package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errShape = errors.New("payload shape mismatch")

func decodeStatus(payload json.RawMessage) (DaemonState, error) {
	var wire wireStatus
	if err := json.Unmarshal(payload, &wire); err != nil {
		return DaemonState{}, fmt.Errorf("%w: status: %w", errShape, err)
	}
	if wire.DaemonPID == nil || wire.ActiveSessions == nil || wire.Sessions == nil {
		return DaemonState{}, fmt.Errorf("%w: status missing daemonPid, activeSessions or sessions", errShape)
	}

	state := DaemonState{
		DaemonPID:      *wire.DaemonPID,
		ActiveSessions: *wire.ActiveSessions,
		Sessions:       make([]Session, 0, len(*wire.Sessions)),
		Warnings:       make([]BotWarning, 0, len(wire.Warnings)),
	}
	for i, s := range *wire.Sessions {
		if s.SessionID == nil || s.CLI == nil || s.Cwd == nil || s.Status == nil || s.StartedAt == nil {
			return DaemonState{}, fmt.Errorf("%w: session %d missing required field", errShape, i)
		}
		state.Sessions = append(state.Sessions, Session{
			SessionID:               *s.SessionID,
			CLI:                     *s.CLI,
			Cwd:                     *s.Cwd,
			Status:                  *s.Status,
			StartedAt:               *s.StartedAt,
			InteractiveBotID:        s.InteractiveBotID,
			InteractiveBotConnected: s.InteractiveBotConnected,
			PushBotID:               s.PushBotID,
			PushEnabled:             s.PushEnabled,
		})
	}
	for i, w := range wire.Warnings {
		if w.BotID == nil || w.Message == nil {
			return DaemonState{}, fmt.Errorf("%w: warning %d missing required field", errShape, i)
		}
		state.Warnings = append(state.Warnings, BotWarning{BotID: *w.BotID, Message: *w.Message})
	}
	return state, nil
}

func decodeOutcome(payload json.RawMessage) (Outcome, error) {
	var wire wireOutcome
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Outcome{}, fmt.Errorf("%w: outcome: %w", errShape, err)
	}
	if wire.OK == nil {
		return Outcome{}, fmt.Errorf("%w: outcome missing ok", errShape)
	}
	out := Outcome{OK: *wire.OK}
	if wire.Error != nil {
		out.Error = *wire.Error
	}
	return out, nil
}
