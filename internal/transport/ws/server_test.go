package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeIntake struct {
	mu        sync.Mutex
	messages  []domain.CreateMessageRequest
	reactions []domain.CreateReactionRequest
}

func (f *fakeIntake) AcceptMessage(_ context.Context, roomID string, req domain.CreateMessageRequest) (domain.MessagePayload, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.MessagePayload{}, errors.New("invalid request: text is required")
	}
	f.mu.Lock()
	f.messages = append(f.messages, req)
	n := len(f.messages)
	f.mu.Unlock()
	return domain.MessagePayload{
		RoomID:     roomID,
		Message:    &domain.Memory{ID: "msg-1", RoomID: roomID, EntityID: req.EntityID, Content: domain.Content{Text: req.Text}},
		Generation: fmt.Sprintf("gen-%d", n),
	}, nil
}

func (f *fakeIntake) ReceiveReaction(_ context.Context, roomID string, req domain.CreateReactionRequest) (*domain.Memory, error) {
	f.mu.Lock()
	f.reactions = append(f.reactions, req)
	f.mu.Unlock()
	return &domain.Memory{ID: "reaction-1", RoomID: roomID, EntityID: req.EntityID}, nil
}

type emitted struct {
	event   domain.EventType
	payload any
}

type fakeEmitter struct {
	ch chan emitted
}

func (f *fakeEmitter) EmitAsync(_ context.Context, event domain.EventType, payload any) {
	f.ch <- emitted{event: event, payload: payload}
}

type harness struct {
	hub     *Hub
	intake  *fakeIntake
	emitter *fakeEmitter
	url     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	h := &harness{
		hub:     hub,
		intake:  &fakeIntake{},
		emitter: &fakeEmitter{ch: make(chan emitted, 8)},
	}
	srv := NewServer(Settings{}, hub, h.intake, h.emitter, nil)

	e := echo.New()
	e.GET("/ws", srv.HandleWebSocket)
	ts := httptest.NewServer(e)
	h.url = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func hello(t *testing.T, conn *websocket.Conn, roomID, entityID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        TypeHello,
		"room_id":     roomID,
		"entity_id":   entityID,
		"entity_name": "Alice",
	}))
	ack := readFrame(t, conn)
	require.Equal(t, TypeHelloAck, ack["type"])
	require.Equal(t, roomID, ack["room_id"])
}

func TestMessageRequiresHello(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeMessage, "text": "hi"}))
	frame := readFrame(t, conn)
	assert.Equal(t, TypeError, frame["type"])
	assert.Equal(t, ErrorCodeHelloRequired, frame["code"])
}

func TestUnknownFrameType(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "nope"}))
	frame := readFrame(t, conn)
	assert.Equal(t, TypeError, frame["type"])
	assert.Equal(t, ErrorCodeInvalidMessage, frame["code"])
}

func TestMessageIsAcceptedAndEmitted(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	hello(t, conn, "room-1", "user-1")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeMessage, "text": "hello there", "request_id": "r1"}))
	frame := readFrame(t, conn)
	assert.Equal(t, TypeAccepted, frame["type"])
	assert.Equal(t, "msg-1", frame["message_id"])
	assert.Equal(t, "r1", frame["request_id"])

	select {
	case got := <-h.emitter.ch:
		assert.Equal(t, domain.EventMessageReceived, got.event)
		payload, ok := got.payload.(domain.MessagePayload)
		require.True(t, ok)
		assert.Equal(t, "room-1", payload.RoomID)
		assert.Equal(t, "hello there", payload.Message.Content.Text)
		assert.Equal(t, "gen-1", payload.Generation, "the token is minted before the message is emitted")
	case <-time.After(2 * time.Second):
		t.Fatal("message was not emitted")
	}

	h.intake.mu.Lock()
	defer h.intake.mu.Unlock()
	require.Len(t, h.intake.messages, 1)
	assert.Equal(t, "user-1", h.intake.messages[0].EntityID)
	assert.Equal(t, "Alice", h.intake.messages[0].EntityName)
	assert.Equal(t, "websocket", h.intake.messages[0].Source)
}

func TestRejectedMessageIsNotEmitted(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	hello(t, conn, "room-1", "user-1")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeMessage, "text": "  "}))
	frame := readFrame(t, conn)
	assert.Equal(t, TypeError, frame["type"])
	assert.Equal(t, ErrorCodeRejected, frame["code"])
	assert.Empty(t, h.emitter.ch)
}

func TestReactionIsEmitted(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	hello(t, conn, "room-1", "user-1")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeReaction, "reaction": "+1", "in_reply_to": "msg-0"}))
	frame := readFrame(t, conn)
	assert.Equal(t, TypeAccepted, frame["type"])

	got := <-h.emitter.ch
	assert.Equal(t, domain.EventReactionReceived, got.event)
}

func TestDeliverReachesRoomOnly(t *testing.T) {
	h := newHarness(t)
	inRoom := h.dial(t)
	hello(t, inRoom, "room-1", "user-1")
	elsewhere := h.dial(t)
	hello(t, elsewhere, "room-2", "user-2")

	err := h.hub.Deliver(context.Background(), "room-1", domain.Memory{
		ID:       "resp-1",
		EntityID: "agent-1",
		Content:  domain.Content{Text: "hi Alice", Actions: []string{"REPLY"}, InReplyTo: "msg-1"},
	})
	require.NoError(t, err)

	frame := readFrame(t, inRoom)
	assert.Equal(t, TypeReply, frame["type"])
	assert.Equal(t, "hi Alice", frame["text"])
	assert.Equal(t, "resp-1", frame["message_id"])
	assert.Equal(t, "msg-1", frame["in_reply_to"])

	require.NoError(t, elsewhere.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var none map[string]any
	assert.Error(t, elsewhere.ReadJSON(&none))
}

func TestHubRebindMovesRoom(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	hello(t, conn, "room-1", "user-1")
	hello(t, conn, "room-2", "user-1")

	assert.Eventually(t, func() bool {
		return h.hub.HasActiveConnections("room-2") && !h.hub.HasActiveConnections("room-1")
	}, time.Second, 10*time.Millisecond)
}

func TestStoppedHubRejectsBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.ErrorIs(t, hub.Broadcast("room-1", []byte("x")), ErrHubStopped)
	assert.Zero(t, hub.ConnectionCount())
}
