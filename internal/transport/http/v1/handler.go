// Package v1 provides the public HTTP API.
package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/service"
)

// Emitter hands accepted input to the event handlers.
type Emitter interface {
	EmitAsync(ctx context.Context, event domain.EventType, payload any)
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	events  Emitter
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, events Emitter) *Handler {
	return &Handler{
		service: svc,
		events:  events,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/rooms/:room_id/messages", h.CreateMessage)
	e.GET("/v1/rooms/:room_id/messages", h.GetMessages)
	e.POST("/v1/rooms/:room_id/reactions", h.CreateReaction)
	e.GET("/v1/rooms/:room_id/facts", h.GetFacts)
	e.GET("/v1/rooms/:room_id/participant", h.GetParticipantState)
	e.PUT("/v1/rooms/:room_id/participant", h.SetParticipantState)

	e.GET("/v1/entities/:entity_id/relationships", h.GetRelationships)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "healthy",
		"agent_id": h.service.AgentID(),
	})
}

func limitParam(c echo.Context, def int) int {
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			return val
		}
	}
	return def
}

func errorStatus(err error) int {
	if errors.Is(err, service.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
}
