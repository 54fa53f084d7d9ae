package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stashdrop/stashdrop/pkg/launcher"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

// Message types sent on the event stream.
const (
	MessageVisibility = "visibility"
	MessageOutcome    = "outcome"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message is one event stream frame.
type Message struct {
	Type    string          `json:"type"`
	Visible *bool           `json:"visible,omitempty"`
	Event   *launcher.Event `json:"event,omitempty"`
}

// VisibilityMessage reports the window's visibility.
func VisibilityMessage(visible bool) Message {
	return Message{Type: MessageVisibility, Visible: &visible}
}

// OutcomeMessage reports a finished download or clipboard request.
func OutcomeMessage(ev launcher.Event) Message {
	return Message{Type: MessageOutcome, Event: &ev}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected websocket client. A client that falls behind is
// disconnected rather than allowed to block publishers.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub accepting upgrades from origins approved by checkOrigin.
func NewHub(checkOrigin func(origin string) bool, logger *logging.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r.Header.Get("Origin"))
			},
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events until the client goes away. hello is sent
// first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, hello Message) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("failed to upgrade event stream", "error", err)
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if payload, err := json.Marshal(hello); err == nil {
		cl.send <- payload
	}
	if !h.add(cl) {
		_ = conn.Close()
		return
	}
	h.logger.Debug(messages.MsgEventClientJoined, "remote", r.RemoteAddr)

	go h.write(cl)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event stream closed unexpectedly", "error", err)
			}
			break
		}
	}
	h.remove(cl)
	h.logger.Debug(messages.MsgEventClientLeft, "remote", r.RemoteAddr)
}

// Publish sends msg to every client.
func (h *Hub) Publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to encode event", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// write drains the client's queue. When the queue is closed it says goodbye and closes the
// connection, which also ends the read loop in Serve.
func (h *Hub) write(cl *client) {
	defer cl.conn.Close()
	for payload := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("event stream write failed", "error", err)
			h.remove(cl)
			return
		}
	}
	_ = cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
}
