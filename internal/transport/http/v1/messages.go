package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// CreateMessage accepts an inbound message. The response is generated
// asynchronously.
// POST /v1/rooms/:room_id/messages
func (h *Handler) CreateMessage(c echo.Context) error {
	roomID := c.Param("room_id")

	var req domain.CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	payload, err := h.service.AcceptMessage(ctx, roomID, req)
	if err != nil {
		return errorJSON(c, err)
	}

	h.events.EmitAsync(ctx, domain.EventMessageReceived, payload)

	return c.JSON(http.StatusAccepted, domain.CreateMessageResponse{
		MessageID: payload.Message.ID,
		RoomID:    roomID,
	})
}

// GetMessages lists recent messages of a room, most recent first.
// GET /v1/rooms/:room_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	roomID := c.Param("room_id")
	limit := limitParam(c, 50)

	messages, err := h.service.GetMessages(c.Request().Context(), roomID, limit)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"has_more": len(messages) == limit,
	})
}

// CreateReaction accepts a reaction to an earlier message.
// POST /v1/rooms/:room_id/reactions
func (h *Handler) CreateReaction(c echo.Context) error {
	roomID := c.Param("room_id")

	var req domain.CreateReactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	reaction, err := h.service.ReceiveReaction(ctx, roomID, req)
	if err != nil {
		return errorJSON(c, err)
	}

	h.events.EmitAsync(ctx, domain.EventReactionReceived, domain.ReactionPayload{RoomID: roomID, Reaction: reaction})

	return c.JSON(http.StatusAccepted, domain.CreateMessageResponse{
		MessageID: reaction.ID,
		RoomID:    roomID,
	})
}
