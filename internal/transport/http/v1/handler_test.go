package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	store "github.com/baYsed-BuidlAI/luna/internal/repository"
	"github.com/baYsed-BuidlAI/luna/internal/service"
	"github.com/baYsed-BuidlAI/luna/internal/testutil"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.EventType
	last   any
}

func (r *recordingEmitter) EmitAsync(_ context.Context, event domain.EventType, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.last = payload
}

func newTestHandler(t *testing.T) (*Handler, *recordingEmitter, store.Store) {
	t.Helper()
	db := testutil.NewTestSQLiteStore(t)
	svc := service.New(service.Options{
		AgentID:   "agent-1",
		AgentName: "SarahBot",
		Store:     db,
	})
	emitter := &recordingEmitter{}
	return NewHandler(svc, emitter), emitter, db
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateMessageAccepted(t *testing.T) {
	e := echo.New()
	h, emitter, db := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/v1/rooms/room-1/messages",
		`{"entity_id":"user-1","entity_name":"Alice","text":"hello"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.CreateMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.CreateMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MessageID == "" || resp.RoomID != "room-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(emitter.events) != 1 || emitter.events[0] != domain.EventMessageReceived {
		t.Fatalf("expected one MESSAGE_RECEIVED, got %v", emitter.events)
	}
	payload, ok := emitter.last.(domain.MessagePayload)
	if !ok || payload.Message.ID != resp.MessageID || payload.Generation == "" {
		t.Fatalf("unexpected payload: %#v", emitter.last)
	}

	entities, err := db.GetEntitiesForRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("GetEntitiesForRoom failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected sender and agent in room, got %d entities", len(entities))
	}
}

func TestCreateMessageValidation(t *testing.T) {
	e := echo.New()
	h, emitter, _ := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/v1/rooms/room-1/messages", `{"entity_id":"user-1"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.CreateMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %v", emitter.events)
	}
}

func TestCreateMessageInvalidBody(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/v1/rooms/room-1/messages", `{"entity_id":`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.CreateMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetMessagesDefaults(t *testing.T) {
	e := echo.New()
	h, _, db := newTestHandler(t)
	ctx := context.Background()

	if err := db.EnsureRoom(ctx, &domain.Room{RoomID: "room-1"}); err != nil {
		t.Fatalf("EnsureRoom failed: %v", err)
	}
	msg := &domain.Memory{RoomID: "room-1", EntityID: "user-1", AgentID: "agent-1", Content: domain.Content{Text: "hello"}}
	if err := db.CreateMemory(ctx, domain.MemoryTableMessages, msg); err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/room-1/messages", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.GetMessages(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Messages []domain.Memory `json:"messages"`
		HasMore  bool            `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 1 || resp.HasMore {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Messages[0].Content.Text != "hello" {
		t.Fatalf("unexpected message: %+v", resp.Messages[0])
	}
}

func TestCreateReactionRequiresTarget(t *testing.T) {
	e := echo.New()
	h, emitter, _ := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/v1/rooms/room-1/reactions", `{"entity_id":"user-1","reaction":"+1"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %v", emitter.events)
	}
}

func TestCreateReactionAccepted(t *testing.T) {
	e := echo.New()
	h, emitter, _ := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPost, "/v1/rooms/room-1/reactions",
		`{"entity_id":"user-1","reaction":"+1","in_reply_to":"msg-1"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")

	if err := h.CreateReaction(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(emitter.events) != 1 || emitter.events[0] != domain.EventReactionReceived {
		t.Fatalf("expected one REACTION_RECEIVED, got %v", emitter.events)
	}
}

func TestParticipantStateRoundTrip(t *testing.T) {
	e := echo.New()
	h, _, db := newTestHandler(t)
	ctx := context.Background()

	if err := db.EnsureRoom(ctx, &domain.Room{RoomID: "room-1"}); err != nil {
		t.Fatalf("EnsureRoom failed: %v", err)
	}
	if err := db.EnsureEntity(ctx, &domain.Entity{EntityID: "agent-1"}); err != nil {
		t.Fatalf("EnsureEntity failed: %v", err)
	}

	c, rec := jsonContext(e, http.MethodPut, "/v1/rooms/room-1/participant", `{"state":"MUTED"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")
	if err := h.SetParticipantState(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/room-1/participant", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")
	if err := h.GetParticipantState(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		State domain.ParticipantState `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != domain.ParticipantStateMuted {
		t.Fatalf("expected MUTED, got %q", resp.State)
	}
}

func TestSetParticipantStateRejectsUnknown(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	c, rec := jsonContext(e, http.MethodPut, "/v1/rooms/room-1/participant", `{"state":"SLEEPING"}`)
	c.SetParamNames("room_id")
	c.SetParamValues("room-1")
	if err := h.SetParticipantState(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRelationships(t *testing.T) {
	e := echo.New()
	h, _, db := newTestHandler(t)
	ctx := context.Background()

	rel := &domain.Relationship{SourceEntityID: "a", TargetEntityID: "b", Tags: []string{"dm_interaction"}}
	if err := db.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/entities/b/relationships", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("entity_id")
	c.SetParamValues("b")
	if err := h.GetRelationships(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Relationships []domain.Relationship `json:"relationships"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Relationships) != 1 || resp.Relationships[0].SourceEntityID != "a" {
		t.Fatalf("unexpected relationships: %+v", resp.Relationships)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
