// Package ws connects chat clients to the agent over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrHubStopped is returned when the hub is no longer running.
var ErrHubStopped = errors.New("hub stopped")

// Connection is a single WebSocket client.
type Connection struct {
	ID          string
	RoomID      string
	EntityID    string
	EntityName  string
	ChannelType domain.RoomType
	Source      string
	Conn        *websocket.Conn
	Send        chan []byte
	mu          sync.Mutex
}

// roomMessage is a payload for every connection of a room.
type roomMessage struct {
	RoomID string
	Data   []byte
}

// Hub tracks connections by room.
type Hub struct {
	connections map[string]*Connection
	rooms       map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan *roomMessage
	done       chan struct{}

	logger  *zap.Logger
	mu      sync.RWMutex
	stopped bool
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]bool),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *roomMessage, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		h.stopped = true
		close(h.done)
		for id, conn := range h.connections {
			close(conn.Send)
			delete(h.connections, id)
		}
		h.rooms = make(map[string]map[string]bool)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.leaveRoomLocked(conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("connection unregistered", zap.String("conn_id", conn.ID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.rooms[msg.RoomID] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					h.logger.Warn("connection buffer full, closing", zap.String("conn_id", connID))
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection wraps a WebSocket.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register adds a connection to the hub. The connection can be sent to as
// soon as Register returns.
func (h *Hub) Register(conn *Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrHubStopped
	}
	h.connections[conn.ID] = conn
	h.logger.Debug("connection registered", zap.String("conn_id", conn.ID))
	return nil
}

// Unregister removes a connection and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BindRoom moves a connection into a room.
func (h *Hub) BindRoom(conn *Connection, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(conn)
	conn.RoomID = roomID
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][conn.ID] = true
}

func (h *Hub) leaveRoomLocked(conn *Connection) {
	if conn.RoomID == "" || h.rooms[conn.RoomID] == nil {
		return
	}
	delete(h.rooms[conn.RoomID], conn.ID)
	if len(h.rooms[conn.RoomID]) == 0 {
		delete(h.rooms, conn.RoomID)
	}
}

// Broadcast queues data for every connection of a room.
func (h *Hub) Broadcast(roomID string, data []byte) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- &roomMessage{RoomID: roomID, Data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// BroadcastJSON encodes v and broadcasts it to a room.
func (h *Hub) BroadcastJSON(roomID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Broadcast(roomID, data)
}

// SendJSONToConnection encodes v and queues it for one connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrHubStopped
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasActiveConnections reports whether a room has any connection.
func (h *Hub) HasActiveConnections(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID]) > 0
}

// Deliver broadcasts an agent response to its room.
func (h *Hub) Deliver(_ context.Context, roomID string, response domain.Memory) error {
	return h.BroadcastJSON(roomID, ReplyFrame{
		BaseFrame: BaseFrame{
			Type:   TypeReply,
			Ts:     time.Now().UnixMilli(),
			RoomID: roomID,
		},
		MessageID: response.ID,
		EntityID:  response.EntityID,
		Text:      response.Content.Text,
		Actions:   response.Content.Actions,
		InReplyTo: response.Content.InReplyTo,
	})
}

// WriteMessage writes to the socket with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline of the socket.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline of the socket.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the socket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
