package internalapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/events"
	"github.com/baYsed-BuidlAI/luna/internal/service"
	"github.com/baYsed-BuidlAI/luna/internal/testutil"
)

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/internal/world/sync", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.SyncWorld(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestSyncWorldAppliesMembership(t *testing.T) {
	db := testutil.NewTestSQLiteStore(t)
	svc := service.New(service.Options{AgentID: "agent-1", AgentName: "SarahBot", Store: db})
	table := events.NewTable(nil, nil)
	svc.RegisterHandlers(table)
	h := NewHandler(table)

	rec := post(t, h, `{"type":"WORLD_JOINED","world":{"world_id":"w1","source":"discord",
		"rooms":[{"room_id":"room-1","name":"general","type":"GROUP"}],
		"entities":[{"entity_id":"user-1","names":["Alice"]}],
		"participants":[{"room_id":"room-1","entity_id":"user-1"}]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = post(t, h, `{"type":"ENTITY_JOINED","membership":{"room_id":"room-1","entity":{"entity_id":"user-2","names":["Bob"]}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = post(t, h, `{"type":"ENTITY_LEFT","membership":{"room_id":"room-1","entity":{"entity_id":"user-1"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	entities, err := db.GetEntitiesForRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("GetEntitiesForRoom failed: %v", err)
	}
	for _, e := range entities {
		if e.EntityID == "user-1" {
			t.Fatalf("user-1 should have left room-1")
		}
	}
	found := false
	for _, e := range entities {
		if e.EntityID == "user-2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("user-2 should have joined room-1, got %+v", entities)
	}
}

func TestSyncWorldRejectsMalformed(t *testing.T) {
	h := NewHandler(events.NewTable(nil, nil))

	cases := []string{
		`{"type":"WORLD_JOINED"}`,
		`{"type":"ENTITY_JOINED","membership":{"room_id":"room-1"}}`,
		`{"type":"MESSAGE_RECEIVED"}`,
		`{"type":`,
	}
	for _, body := range cases {
		if rec := post(t, h, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

type failingDispatcher struct{}

func (failingDispatcher) Emit(context.Context, domain.EventType, any) error {
	return service.ErrInvalidRequest
}

func TestSyncWorldReportsHandlerFailure(t *testing.T) {
	h := NewHandler(failingDispatcher{})
	rec := post(t, h, `{"type":"ENTITY_LEFT","membership":{"room_id":"room-1","entity":{"entity_id":"user-1"}}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
