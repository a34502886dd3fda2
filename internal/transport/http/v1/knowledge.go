package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// GetFacts lists facts learned in a room.
// GET /v1/rooms/:room_id/facts
func (h *Handler) GetFacts(c echo.Context) error {
	facts, err := h.service.GetFacts(c.Request().Context(), c.Param("room_id"), limitParam(c, 50))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"facts": facts})
}

// GetRelationships lists the edges touching an entity.
// GET /v1/entities/:entity_id/relationships
func (h *Handler) GetRelationships(c echo.Context) error {
	rels, err := h.service.GetRelationships(c.Request().Context(), c.Param("entity_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"relationships": rels})
}

// GetParticipantState returns the agent's participation in a room.
// GET /v1/rooms/:room_id/participant
func (h *Handler) GetParticipantState(c echo.Context) error {
	roomID := c.Param("room_id")
	state, err := h.service.GetParticipantState(c.Request().Context(), roomID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"state":   state,
	})
}

// SetParticipantState follows, mutes or resets the agent in a room.
// PUT /v1/rooms/:room_id/participant
func (h *Handler) SetParticipantState(c echo.Context) error {
	roomID := c.Param("room_id")

	var req domain.ParticipantStateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.service.SetParticipantState(c.Request().Context(), roomID, req.State); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"state":   req.State,
	})
}
