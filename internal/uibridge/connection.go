package uibridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"feishu-tray/internal/logging"
	"feishu-tray/internal/tray"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Message is one inbound command.
type Message struct {
	ID      json.RawMessage `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Reply answers a Message with the same id.
type Reply struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// TrayEvent is pushed whenever a tray item's text changes.
type TrayEvent struct {
	Event string      `json:"event"`
	Item  tray.ItemID `json:"item"`
	Text  string      `json:"text"`
}

type connection struct {
	ws     *websocket.Conn
	server *Server
	send   chan []byte

	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	unwatch func()
}

func newConnection(parent context.Context, ws *websocket.Conn, server *Server) *connection {
	ctx, cancel := context.WithCancel(parent)
	return &connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// attachTray sends the current menu and subscribes to changes. It runs before
// the loops start.
func (c *connection) attachTray(h *tray.Handle) {
	if h == nil {
		return
	}
	for _, item := range h.Snapshot() {
		c.pushTray(item.ID, item.Text)
	}
	c.unwatch = h.Watch(c.pushTray)
}

// readLoop decodes messages and hands each to its own goroutine.
func (c *connection) readLoop() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.server.logger.Debug("websocket read failed", logging.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(Reply{ID: json.RawMessage("null"), Error: "invalid message: " + err.Error()})
			continue
		}
		if len(msg.ID) == 0 {
			msg.ID = json.RawMessage("null")
		}
		go func() { c.enqueue(c.server.dispatch(c.ctx, msg)) }()
	}
}

// writeLoop is the only writer on ws.
func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.server.logger.Debug("websocket write failed", logging.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// pushTray runs on the goroutine that set the text and never blocks it. A
// full buffer drops the event; the next set carries the current text.
func (c *connection) pushTray(id tray.ItemID, text string) {
	data, err := json.Marshal(TrayEvent{Event: "tray", Item: id, Text: text})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.server.logger.Debug("tray event dropped", logging.String("item", string(id)))
	}
}

// enqueue blocks until the writer takes v or the connection closes.
func (c *connection) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.server.logger.Warn("encode websocket message failed", logging.Error(err))
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		if c.unwatch != nil {
			c.unwatch()
		}
		c.cancel()
	})
}
