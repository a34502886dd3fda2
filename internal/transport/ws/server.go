package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Intake turns client input into memories. AcceptMessage also mints the
// message's generation token, so it must run in arrival order.
type Intake interface {
	AcceptMessage(ctx context.Context, roomID string, req domain.CreateMessageRequest) (domain.MessagePayload, error)
	ReceiveReaction(ctx context.Context, roomID string, req domain.CreateReactionRequest) (*domain.Memory, error)
}

// Emitter hands accepted input to the event handlers.
type Emitter interface {
	EmitAsync(ctx context.Context, event domain.EventType, payload any)
}

// Settings holds connection timing and size limits.
type Settings struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func (s Settings) withDefaults() Settings {
	if s.PingInterval <= 0 {
		s.PingInterval = 30 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 60 * time.Second
	}
	if s.MaxMessageSize <= 0 {
		s.MaxMessageSize = 64 * 1024
	}
	return s
}

// Server handles WebSocket connections.
type Server struct {
	settings Settings
	hub      *Hub
	intake   Intake
	events   Emitter
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(settings Settings, h *Hub, intake Intake, events Emitter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		settings: settings.withDefaults(),
		hub:      h,
		intake:   intake,
		events:   events,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	if err := s.hub.Register(conn); err != nil {
		ws.Close()
		return nil
	}
	ws.SetReadLimit(s.settings.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		s.handleFrame(conn, message)
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.settings.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("websocket write failed", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(conn *Connection, data []byte) {
	var base BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON frame")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, data)
	case TypeMessage:
		s.handleMessage(conn, data)
	case TypeReaction:
		s.handleReaction(conn, data)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown frame type: "+base.Type)
	}
}

func (s *Server) handleHello(conn *Connection, data []byte) {
	var frame HelloFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid hello frame")
		return
	}
	if frame.RoomID == "" || frame.EntityID == "" {
		s.sendError(conn, frame.RequestID, ErrorCodeInvalidMessage, "room_id and entity_id are required")
		return
	}

	conn.EntityID = frame.EntityID
	conn.EntityName = frame.EntityName
	conn.ChannelType = frame.ChannelType
	conn.Source = frame.Source
	if conn.Source == "" {
		conn.Source = "websocket"
	}
	s.hub.BindRoom(conn, frame.RoomID)

	s.hub.SendJSONToConnection(conn, BaseFrame{
		Type:      TypeHelloAck,
		Ts:        time.Now().UnixMilli(),
		RequestID: frame.RequestID,
		RoomID:    frame.RoomID,
	})
	s.logger.Info("websocket bound to room",
		zap.String("conn_id", conn.ID),
		zap.String("room_id", frame.RoomID),
		zap.String("entity_id", frame.EntityID))
}

func (s *Server) handleMessage(conn *Connection, data []byte) {
	var frame MessageFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid message frame")
		return
	}
	if conn.RoomID == "" {
		s.sendError(conn, frame.RequestID, ErrorCodeHelloRequired, "must send hello first")
		return
	}

	ctx := context.Background()
	payload, err := s.intake.AcceptMessage(ctx, conn.RoomID, domain.CreateMessageRequest{
		ID:          frame.ID,
		EntityID:    conn.EntityID,
		EntityName:  conn.EntityName,
		Text:        frame.Text,
		Source:      conn.Source,
		InReplyTo:   frame.InReplyTo,
		ChannelType: conn.ChannelType,
	})
	if err != nil {
		s.sendError(conn, frame.RequestID, ErrorCodeRejected, err.Error())
		return
	}

	s.events.EmitAsync(ctx, domain.EventMessageReceived, payload)
	s.accept(conn, frame.RequestID, payload.Message.ID)
}

func (s *Server) handleReaction(conn *Connection, data []byte) {
	var frame ReactionFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid reaction frame")
		return
	}
	if conn.RoomID == "" {
		s.sendError(conn, frame.RequestID, ErrorCodeHelloRequired, "must send hello first")
		return
	}

	ctx := context.Background()
	reaction, err := s.intake.ReceiveReaction(ctx, conn.RoomID, domain.CreateReactionRequest{
		EntityID:  conn.EntityID,
		Reaction:  frame.Reaction,
		InReplyTo: frame.InReplyTo,
		Source:    conn.Source,
	})
	if err != nil {
		s.sendError(conn, frame.RequestID, ErrorCodeRejected, err.Error())
		return
	}

	s.events.EmitAsync(ctx, domain.EventReactionReceived, domain.ReactionPayload{RoomID: conn.RoomID, Reaction: reaction})
	s.accept(conn, frame.RequestID, reaction.ID)
}

func (s *Server) accept(conn *Connection, requestID, messageID string) {
	s.hub.SendJSONToConnection(conn, AcceptedFrame{
		BaseFrame: BaseFrame{
			Type:      TypeAccepted,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			RoomID:    conn.RoomID,
		},
		MessageID: messageID,
	})
}

func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.hub.SendJSONToConnection(conn, ErrorFrame{
		BaseFrame: BaseFrame{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			RoomID:    conn.RoomID,
		},
		Code:    code,
		Message: message,
	})
}
