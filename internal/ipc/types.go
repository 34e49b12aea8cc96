package ipc

import "encoding/json"

// Verb type strings understood by the daemon.
const (
	VerbStatus            = "status_request"
	VerbStop              = "stop_request"
	VerbListBots          = "list_bots_request"
	VerbSaveBot           = "save_bot_request"
	VerbDeleteBot         = "delete_bot_request"
	VerbBindBot           = "bind_bot_request"
	VerbUnbindBot         = "unbind_bot_request"
	VerbTestBot           = "test_bot_request"
	VerbActivateBot       = "activate_bot_request"
	VerbGetConfig         = "get_config_request"
	VerbSaveConfig        = "save_config_request"
	VerbCheckCodexConfig  = "check_codex_config_request"
	VerbSetupCodexConfig  = "setup_codex_config_request"
	VerbCheckClaudeConfig = "check_claude_config_request"
	VerbSetupClaudeConfig = "setup_claude_config_request"
)

// Bot types accepted by save_bot_request.
const (
	BotTypeInteractive = "interactive"
	BotTypePush        = "push"
)

// Outcome errors returned in place of a daemon answer.
const (
	ErrTextNotRunning = "daemon not running"
	ErrTextNoResponse = "no response from daemon"
)

// Request is one line sent to the daemon.
type Request struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope is one line received from the daemon.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outcome is the generic result of a mutating verb.
type Outcome struct {
	OK    bool   `json:"ok" yaml:"ok"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Session is a daemon-tracked CLI session. A nil bot id means not bound.
type Session struct {
	SessionID               string  `json:"session_id" yaml:"session_id"`
	CLI                     string  `json:"cli" yaml:"cli"`
	Cwd                     string  `json:"cwd" yaml:"cwd"`
	Status                  string  `json:"status" yaml:"status"`
	StartedAt               string  `json:"started_at" yaml:"started_at"`
	InteractiveBotID        *string `json:"interactive_bot_id" yaml:"interactive_bot_id"`
	InteractiveBotConnected *bool   `json:"interactive_bot_connected" yaml:"interactive_bot_connected"`
	PushBotID               *string `json:"push_bot_id" yaml:"push_bot_id"`
	PushEnabled             *bool   `json:"push_enabled" yaml:"push_enabled"`
}

// BotWarning is a per-bot problem reported with the status.
type BotWarning struct {
	BotID   string `json:"bot_id" yaml:"bot_id"`
	Message string `json:"message" yaml:"message"`
}

// DaemonState is the status payload in UI field names.
type DaemonState struct {
	DaemonPID      int64        `json:"daemon_pid" yaml:"daemon_pid"`
	ActiveSessions int64        `json:"active_sessions" yaml:"active_sessions"`
	Sessions       []Session    `json:"sessions" yaml:"sessions"`
	Warnings       []BotWarning `json:"warnings" yaml:"warnings"`
}

// GUIStatus is the folded status read used by the UI. When the daemon is
// unreachable Running is false and the collections are empty.
type GUIStatus struct {
	Running        bool         `json:"running" yaml:"running"`
	DaemonPID      *int64       `json:"daemon_pid" yaml:"daemon_pid"`
	ActiveSessions int64        `json:"active_sessions" yaml:"active_sessions"`
	Sessions       []Session    `json:"sessions" yaml:"sessions"`
	Warnings       []BotWarning `json:"warnings" yaml:"warnings"`
}

// NotRunningStatus is the status reported when the daemon cannot be reached.
func NotRunningStatus() GUIStatus {
	return GUIStatus{Sessions: []Session{}, Warnings: []BotWarning{}}
}

// wire shapes use the daemon's camelCase names. Pointers mark required
// fields so a missing field fails the shape check.

type wireSession struct {
	SessionID               *string `json:"sessionId"`
	CLI                     *string `json:"cli"`
	Cwd                     *string `json:"cwd"`
	Status                  *string `json:"status"`
	StartedAt               *string `json:"startedAt"`
	InteractiveBotID        *string `json:"interactiveBotId"`
	InteractiveBotConnected *bool   `json:"interactiveBotConnected"`
	PushBotID               *string `json:"pushBotId"`
	PushEnabled             *bool   `json:"pushEnabled"`
}

type wireWarning struct {
	BotID   *string `json:"botId"`
	Message *string `json:"message"`
}

type wireStatus struct {
	DaemonPID      *int64         `json:"daemonPid"`
	ActiveSessions *int64         `json:"activeSessions"`
	Sessions       *[]wireSession `json:"sessions"`
	Warnings       []wireWarning  `json:"warnings"`
}

type wireOutcome struct {
	OK    *bool   `json:"ok"`
	Error *string `json:"error"`
}
