// Package tray holds the state behind the system tray menu.
//
// The native widget lives outside this process; Handle is the object both the
// status synchronizer and menu-event handling write to. Each item's text is
// replaced atomically. Sets are serialized, so observers see them in the
// order the stores happened. Observers must not call SetText.
package tray

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"feishu-tray/internal/logging"
)

// ItemID names a tray menu entry.
type ItemID string

const (
	ItemOpen     ItemID = "open"
	ItemSessions ItemID = "sessions"
	ItemStatus   ItemID = "status"
	ItemStop     ItemID = "stop"
	ItemQuit     ItemID = "quit"
)

// Item is one menu entry as rendered.
type Item struct {
	ID      ItemID `json:"id"`
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
}

// Actions are the side effects of clickable items. Nil entries are skipped.
type Actions struct {
	Open func()
	Stop func(ctx context.Context) bool
	Quit func()
}

// Observer receives every text change.
type Observer func(id ItemID, text string)

type item struct {
	id      ItemID
	enabled bool
	text    atomic.Pointer[string]
}

// Handle owns the tray items.
type Handle struct {
	items   []*item
	byID    map[ItemID]*item
	actions Actions
	logger  *slog.Logger

	// setMu orders stores and observer calls across setters.
	setMu sync.Mutex

	mu        sync.Mutex
	nextID    int
	observers map[int]Observer
}

// New returns a handle with the initial labels.
func New(actions Actions, logger *slog.Logger) *Handle {
	h := &Handle{
		byID:      make(map[ItemID]*item),
		actions:   actions,
		logger:    logging.NewComponentLogger(logger, "tray"),
		observers: make(map[int]Observer),
	}
	for _, def := range []struct {
		id      ItemID
		text    string
		enabled bool
	}{
		{ItemOpen, "Open panel", true},
		{ItemSessions, SessionsText(0), false},
		{ItemStatus, StatusReading, false},
		{ItemStop, "Stop daemon", true},
		{ItemQuit, "Quit", true},
	} {
		it := &item{id: def.id, enabled: def.enabled}
		text := def.text
		it.text.Store(&text)
		h.items = append(h.items, it)
		h.byID[def.id] = it
	}
	return h
}

// SetText replaces an item's text. Unknown ids are ignored.
func (h *Handle) SetText(id ItemID, text string) {
	it, ok := h.byID[id]
	if !ok {
		return
	}
	h.setMu.Lock()
	defer h.setMu.Unlock()
	it.text.Store(&text)

	h.mu.Lock()
	observers := make([]Observer, 0, len(h.observers))
	for _, fn := range h.observers {
		observers = append(observers, fn)
	}
	h.mu.Unlock()
	for _, fn := range observers {
		fn(id, text)
	}
}

// Text returns the current text of id.
func (h *Handle) Text(id ItemID) string {
	it, ok := h.byID[id]
	if !ok {
		return ""
	}
	return *it.text.Load()
}

// Snapshot returns every item in menu order.
func (h *Handle) Snapshot() []Item {
	out := make([]Item, 0, len(h.items))
	for _, it := range h.items {
		out = append(out, Item{ID: it.id, Text: *it.text.Load(), Enabled: it.enabled})
	}
	return out
}

// Watch registers fn and returns a function that removes it.
func (h *Handle) Watch(fn Observer) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.observers, id)
		h.mu.Unlock()
	}
}

// Dispatch routes a menu click. It reports whether id was a clickable item.
func (h *Handle) Dispatch(ctx context.Context, id ItemID) bool {
	switch id {
	case ItemOpen:
		if h.actions.Open != nil {
			h.actions.Open()
		}
	case ItemStop:
		if h.actions.Stop == nil {
			return true
		}
		if h.actions.Stop(ctx) {
			h.logger.Info("stop daemon requested", logging.String(logging.FieldEventType, "tray_stop"))
		} else {
			h.logger.Info("daemon stop request failed", logging.String(logging.FieldEventType, "tray_stop_failed"))
		}
	case ItemQuit:
		if h.actions.Quit != nil {
			h.actions.Quit()
		}
	default:
		return false
	}
	return true
}
