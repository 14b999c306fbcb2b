package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages viewer connections per test
type Hub struct {
	// testID -> connections
	viewers map[string]map[*Connection]struct{}

	mu     sync.RWMutex
	logger *slog.Logger

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	done      chan struct{}
	closeOnce sync.Once
}

// Connection represents a WebSocket connection watching one test
type Connection struct {
	TestID string
	UserID string
	Send   chan []byte
}

// BroadcastMessage is a message for every viewer of a test
type BroadcastMessage struct {
	TestID  string
	Message *Message
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		viewers:    make(map[string]map[*Connection]struct{}),
		logger:     logger,
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Close stops the hub loop and disconnects every viewer. It is safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for testID, conns := range h.viewers {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.viewers, testID)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.viewers[conn.TestID] == nil {
				h.viewers[conn.TestID] = make(map[*Connection]struct{})
			}
			h.viewers[conn.TestID][conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("viewer connected", "testId", conn.TestID, "userId", conn.UserID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.viewers[conn.TestID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.viewers, conn.TestID)
					}
					h.logger.Info("viewer disconnected", "testId", conn.TestID, "userId", conn.UserID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error("failed to encode broadcast", "error", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.viewers[msg.TestID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection. On a closed hub the connection's Send is closed at once.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastToTest sends a message to every viewer of a test (implements events.Broadcaster)
func (h *Hub) BroadcastToTest(testID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode payload", "type", msgType, "error", err)
		return
	}
	msg := &BroadcastMessage{
		TestID: testID,
		Message: &Message{
			Type:    msgType,
			Payload: data,
		},
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ViewerCount returns the number of live viewers of a test
func (h *Hub) ViewerCount(testID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[testID])
}
