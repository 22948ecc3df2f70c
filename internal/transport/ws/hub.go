package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the WebSocket envelope format. Type is model.MsgResultsUpdate
// for results pushes.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections of results viewers
type Hub struct {
	// health check ID -> viewers
	viewers map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once
}

// Connection is one viewer of one health check's results
type Connection struct {
	HealthCheckID string
	Send          chan []byte
	Hub           *Hub
}

// BroadcastMessage is a message for every viewer of one health check
type BroadcastMessage struct {
	HealthCheckID string
	Message       *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		viewers:    make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// NewConnection creates a viewer connection bound to this hub
func (h *Hub) NewConnection(healthCheckID string) *Connection {
	return &Connection{
		HealthCheckID: healthCheckID,
		Send:          make(chan []byte, 16),
		Hub:           h,
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.viewers[conn.HealthCheckID] == nil {
				h.viewers[conn.HealthCheckID] = make(map[*Connection]struct{})
			}
			h.viewers[conn.HealthCheckID][conn] = struct{}{}
			log.Printf("[WS] viewer connected to %s (%d watching)", conn.HealthCheckID, len(h.viewers[conn.HealthCheckID]))
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.viewers[conn.HealthCheckID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.viewers, conn.HealthCheckID)
					}
					log.Printf("[WS] viewer left %s", conn.HealthCheckID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("[WS] encode %s: %v", msg.Message.Type, err)
				continue
			}
			h.mu.RLock()
			for conn := range h.viewers[msg.HealthCheckID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, conns := range h.viewers {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.viewers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
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

// Viewers returns how many connections watch a health check
func (h *Hub) Viewers(healthCheckID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[healthCheckID])
}

// BroadcastResults sends a message to every viewer of a health check.
// Together with Viewers it implements service.Broadcaster.
func (h *Hub) BroadcastResults(healthCheckID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] encode %s payload: %v", msgType, err)
		return
	}
	msg := &BroadcastMessage{
		HealthCheckID: healthCheckID,
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

// Close disconnects every viewer and stops the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
