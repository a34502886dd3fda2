// Package internalapi provides HTTP handlers for platform adapters.
// These APIs are only exposed on the internal port.
package internalapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Dispatcher runs the handlers of an event and reports their errors.
type Dispatcher interface {
	Emit(ctx context.Context, event domain.EventType, payload any) error
}

// Handler handles internal HTTP requests.
type Handler struct {
	events Dispatcher
}

// NewHandler creates a new internal API handler.
func NewHandler(events Dispatcher) *Handler {
	return &Handler{events: events}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/world/sync", h.SyncWorld)
}

// SyncWorld applies one membership event observed by a platform adapter.
// POST /internal/world/sync
func (h *Handler) SyncWorld(c echo.Context) error {
	var req domain.WorldSyncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	payload, err := syncPayload(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.events.Emit(c.Request().Context(), req.Type, payload); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"type":   req.Type,
		"status": "applied",
	})
}

func syncPayload(req domain.WorldSyncRequest) (any, error) {
	switch req.Type {
	case domain.EventWorldJoined:
		if req.World == nil {
			return nil, fmt.Errorf("%s requires world", req.Type)
		}
		return req.World, nil
	case domain.EventEntityJoined, domain.EventEntityLeft:
		if req.Membership == nil {
			return nil, fmt.Errorf("%s requires membership", req.Type)
		}
		if req.Membership.RoomID == "" || req.Membership.Entity.EntityID == "" {
			return nil, fmt.Errorf("%s requires room_id and entity.entity_id", req.Type)
		}
		return req.Membership, nil
	default:
		return nil, fmt.Errorf("unsupported sync event %q", req.Type)
	}
}
