package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"feishu-tray/internal/endpoint"
	"feishu-tray/internal/logging"
)

// ErrNotRunning reports that no endpoint could be resolved.
var ErrNotRunning = errors.New("daemon not running")

// Resolver yields the endpoint for the next request.
type Resolver interface {
	Resolve() (endpoint.Endpoint, error)
}

var (
	defaultBotList = json.RawMessage(`{"interactive":[],"push":[]}`)
	defaultNull    = json.RawMessage(`null`)
)

// Client maps daemon verbs onto typed calls.
type Client struct {
	resolver  Resolver
	transport Transport
	logger    *slog.Logger
}

// NewClient builds a client. A nil logger discards output.
func NewClient(resolver Resolver, transport Transport, logger *slog.Logger) *Client {
	return &Client{
		resolver:  resolver,
		transport: transport,
		logger:    logging.NewComponentLogger(logger, "ipc"),
	}
}

// call resolves, sends and unwraps the envelope payload.
func (c *Client) call(ctx context.Context, verb string, payload any) (json.RawMessage, error) {
	ep, err := c.resolver.Resolve()
	if err != nil {
		c.logger.Debug("endpoint unresolved", logging.String(logging.FieldVerb, verb), logging.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNotRunning, err)
	}

	line, err := json.Marshal(Request{Type: verb, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrUnreachable, verb, err)
	}

	raw, err := c.transport.Send(ctx, ep, line)
	if err != nil {
		c.logger.Debug("daemon request failed",
			logging.String(logging.FieldVerb, verb),
			logging.String(logging.FieldEndpoint, ep.Address),
			logging.Error(err),
		)
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w: envelope: %w", ErrUnreachable, errShape, err)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: %w: %s reply has no payload", ErrUnreachable, errShape, verb)
	}
	return env.Payload, nil
}

// Status returns the daemon state, or an error wrapping ErrUnreachable or
// ErrNotRunning. It doubles as the liveness probe.
func (c *Client) Status(ctx context.Context) (DaemonState, error) {
	payload, err := c.call(ctx, VerbStatus, nil)
	if err != nil {
		return DaemonState{}, err
	}
	state, err := decodeStatus(payload)
	if err != nil {
		c.logger.Debug("status payload rejected", logging.Error(err))
		return DaemonState{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return state, nil
}

// Probe reports whether a status request succeeds.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

// ReadStatus folds Status into the UI shape and never fails.
func (c *Client) ReadStatus(ctx context.Context) GUIStatus {
	state, err := c.Status(ctx)
	if err != nil {
		return NotRunningStatus()
	}
	pid := state.DaemonPID
	return GUIStatus{
		Running:        true,
		DaemonPID:      &pid,
		ActiveSessions: state.ActiveSessions,
		Sessions:       state.Sessions,
		Warnings:       state.Warnings,
	}
}

func (c *Client) read(ctx context.Context, verb string, fallback json.RawMessage) json.RawMessage {
	payload, err := c.call(ctx, verb, nil)
	if err != nil {
		return append(json.RawMessage(nil), fallback...)
	}
	return payload
}

func (c *Client) mutate(ctx context.Context, verb string, payload any) Outcome {
	reply, err := c.call(ctx, verb, payload)
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return Outcome{Error: ErrTextNotRunning}
		}
		return Outcome{Error: ErrTextNoResponse}
	}
	out, err := decodeOutcome(reply)
	if err != nil {
		c.logger.Debug("outcome payload rejected", logging.String(logging.FieldVerb, verb), logging.Error(err))
		return Outcome{Error: ErrTextNoResponse}
	}
	return out
}

// Stop asks the daemon to exit. It is sent once and never retried.
func (c *Client) Stop(ctx context.Context) Outcome {
	return c.mutate(ctx, VerbStop, nil)
}

// ListBots returns the daemon's bot list document.
func (c *Client) ListBots(ctx context.Context) json.RawMessage {
	return c.read(ctx, VerbListBots, defaultBotList)
}

// SaveBot stores a bot configuration. Any type other than interactive is
// saved as a push bot.
func (c *Client) SaveBot(ctx context.Context, botType string, cfg json.RawMessage) Outcome {
	if botType != BotTypeInteractive {
		botType = BotTypePush
	}
	if len(cfg) == 0 {
		cfg = defaultNull
	}
	return c.mutate(ctx, VerbSaveBot, map[string]any{
		"botType": botType,
		botType:   cfg,
	})
}

type botRef struct {
	BotType string `json:"botType"`
	BotID   string `json:"botId"`
}

type sessionBinding struct {
	SessionID string `json:"sessionId"`
	BotType   string `json:"botType"`
	BotID     string `json:"botId,omitempty"`
}

func (c *Client) DeleteBot(ctx context.Context, botType, botID string) Outcome {
	return c.mutate(ctx, VerbDeleteBot, botRef{BotType: botType, BotID: botID})
}

func (c *Client) BindBot(ctx context.Context, sessionID, botType, botID string) Outcome {
	return c.mutate(ctx, VerbBindBot, sessionBinding{SessionID: sessionID, BotType: botType, BotID: botID})
}

func (c *Client) UnbindBot(ctx context.Context, sessionID, botType string) Outcome {
	return c.mutate(ctx, VerbUnbindBot, sessionBinding{SessionID: sessionID, BotType: botType})
}

func (c *Client) TestBot(ctx context.Context, botType, botID string) Outcome {
	return c.mutate(ctx, VerbTestBot, botRef{BotType: botType, BotID: botID})
}

func (c *Client) ActivateBot(ctx context.Context, botID string) Outcome {
	return c.mutate(ctx, VerbActivateBot, struct {
		BotID string `json:"botId"`
	}{BotID: botID})
}

// GetConfig returns the daemon configuration document, or null.
func (c *Client) GetConfig(ctx context.Context) json.RawMessage {
	return c.read(ctx, VerbGetConfig, defaultNull)
}

// SaveConfig sends doc as the request payload.
func (c *Client) SaveConfig(ctx context.Context, doc json.RawMessage) Outcome {
	if len(doc) == 0 {
		doc = defaultNull
	}
	return c.mutate(ctx, VerbSaveConfig, doc)
}

func (c *Client) CheckCodexConfig(ctx context.Context) json.RawMessage {
	return c.read(ctx, VerbCheckCodexConfig, defaultNull)
}

func (c *Client) SetupCodexConfig(ctx context.Context) Outcome {
	return c.mutate(ctx, VerbSetupCodexConfig, nil)
}

func (c *Client) CheckClaudeConfig(ctx context.Context) json.RawMessage {
	return c.read(ctx, VerbCheckClaudeConfig, defaultNull)
}

func (c *Client) SetupClaudeConfig(ctx context.Context) Outcome {
	return c.mutate(ctx, VerbSetupClaudeConfig, nil)
}
