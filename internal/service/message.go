package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/actions"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/extract"
	"github.com/baYsed-BuidlAI/luna/internal/generation"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
	"github.com/baYsed-BuidlAI/luna/internal/prompt"
)

// ResponseContent is the structured reply produced by the large model.
type ResponseContent struct {
	Thought string   `json:"thought"`
	Text    string   `json:"text" validate:"required_without=Actions"`
	Actions []string `json:"actions" validate:"omitempty,dive,required"`
}

// Normalize trims the reply.
func (r *ResponseContent) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
	r.Thought = strings.TrimSpace(r.Thought)
}

// HandleMessage runs the response pipeline for one inbound message. The
// message is persisted before any decision; a persistence failure is returned
// after the rest of the pipeline has run. A response is only dispatched if no
// newer message for the same room arrived while it was being generated.
func (s *Service) HandleMessage(ctx context.Context, roomID string, msg domain.Memory) error {
	return s.handleMessage(ctx, roomID, msg, s.mint(roomID, msg.ID))
}

// HandleMessagePayload runs the response pipeline for a message accepted by
// AcceptMessage, under the generation token minted on arrival. A payload
// without a token gets one now.
func (s *Service) HandleMessagePayload(ctx context.Context, p domain.MessagePayload) error {
	if p.Message == nil {
		return fmt.Errorf("%w: message payload without message", ErrInvalidRequest)
	}
	if p.Generation == "" {
		return s.HandleMessage(ctx, p.RoomID, *p.Message)
	}
	return s.handleMessage(ctx, p.RoomID, *p.Message, p.Generation)
}

func (s *Service) generationKey(roomID string) generation.Key {
	return generation.Key{AgentID: s.agentID, RoomID: roomID}
}

// mint makes a fresh generation token live for the room.
func (s *Service) mint(roomID, messageID string) string {
	token, replaced := s.tokens.Mint(s.generationKey(roomID))
	if replaced != "" {
		s.logger.Debug("superseded in-flight generation",
			zap.String("room_id", roomID),
			zap.String("message_id", messageID),
			zap.String("replaced", replaced))
	}
	return token
}

func (s *Service) handleMessage(ctx context.Context, roomID string, msg domain.Memory, token string) error {
	msg.RoomID = roomID
	key := s.generationKey(roomID)

	log := s.logger.With(
		zap.String("room_id", roomID),
		zap.String("message_id", msg.ID),
		zap.String("token", token))

	persistErr := s.persistMessage(ctx, &msg)
	if persistErr != nil {
		log.Error("failed to persist message", zap.Error(persistErr))
	}

	var responses []domain.Memory
	decision := s.ShouldRespond(ctx, roomID, msg)
	if !decision.Respond {
		s.tokens.Claim(key, token)
		s.metrics.ObserveResponse(metrics.OutcomeSkipped)
	} else {
		content, ok := s.generate(ctx, roomID, msg)
		switch {
		case !ok:
			s.tokens.Claim(key, token)
			s.metrics.ObserveResponse(metrics.OutcomeEmpty)
		case !s.tokens.Claim(key, token):
			log.Info("discarding stale response")
			s.metrics.ObserveResponse(metrics.OutcomeStale)
		default:
			responses = append(responses, s.dispatch(ctx, roomID, msg, content))
			s.metrics.ObserveResponse(metrics.OutcomeDispatched)
		}
	}

	s.evaluate(ctx, EvaluationInput{
		RoomID:    roomID,
		Message:   msg,
		Responses: responses,
		Responded: len(responses) > 0,
	})

	if persistErr != nil {
		return fmt.Errorf("failed to persist message %s: %w", msg.ID, persistErr)
	}
	return nil
}

func (s *Service) persistMessage(ctx context.Context, msg *domain.Memory) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.AgentID == "" {
		msg.AgentID = s.agentID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if _, err := embedding.AddEmbedding(ctx, s.embedder, msg); err != nil {
		return fmt.Errorf("failed to embed message: %w", err)
	}
	return s.store.CreateMemory(ctx, domain.MemoryTableMessages, msg)
}

// generate asks the large model for the reply content. ok is false when the
// model produced nothing usable.
func (s *Service) generate(ctx context.Context, roomID string, msg domain.Memory) (ResponseContent, bool) {
	log := s.logger.With(zap.String("room_id", roomID), zap.String("message_id", msg.ID))

	conv, err := s.loadConversation(ctx, roomID, true)
	if err != nil {
		log.Error("failed to load conversation", zap.Error(err))
		return ResponseContent{}, false
	}
	var names []string
	if s.executor != nil {
		names = s.executor.Actions()
	}
	text, err := prompt.Render(responseTemplate, responseData{
		AgentName:    s.agentName,
		Sender:       conv.names.Of(msg.EntityID),
		Conversation: conv.transcript(),
		Facts:        conv.factClaims(),
		Actions:      names,
	})
	if err != nil {
		log.Error("failed to render prompt", zap.Error(err))
		return ResponseContent{}, false
	}

	res, err := extract.Object[ResponseContent](ctx, s.extractor, extract.Request{
		Prompt: text,
		Tier:   domain.ModelTierLarge,
	})
	if err != nil {
		log.Error("response extraction failed", zap.Error(err))
		return ResponseContent{}, false
	}
	if !res.Ok() {
		log.Info("no response produced", zap.Stringer("status", res.Status), zap.String("reason", res.Reason))
		return ResponseContent{}, false
	}
	if res.Value.Text == "" && len(res.Value.Actions) == 0 {
		return ResponseContent{}, false
	}
	return res.Value, true
}

// dispatch persists the response and runs its actions.
func (s *Service) dispatch(ctx context.Context, roomID string, msg domain.Memory, content ResponseContent) domain.Memory {
	log := s.logger.With(zap.String("room_id", roomID), zap.String("message_id", msg.ID))

	response := domain.Memory{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		EntityID: s.agentID,
		AgentID:  s.agentID,
		Content: domain.Content{
			Text:      content.Text,
			Thought:   content.Thought,
			Actions:   content.Actions,
			InReplyTo: msg.ID,
			Source:    msg.Content.Source,
			Channel:   msg.Content.Channel,
		},
		CreatedAt: time.Now(),
	}
	if err := s.persistMessage(ctx, &response); err != nil {
		log.Error("failed to persist response", zap.Error(err))
	}

	if s.executor == nil {
		return response
	}
	room := s.roomOf(ctx, roomID, msg)
	err := s.executor.Execute(ctx, actions.Call{
		AgentID:  s.agentID,
		Room:     room,
		Message:  msg,
		Response: response,
		Deliver:  s.deliver,
	})
	if err != nil {
		log.Error("failed to execute actions", zap.Error(err))
	}
	return response
}

func (s *Service) deliver(ctx context.Context, response domain.Memory) error {
	if s.delivery == nil {
		return nil
	}
	return s.delivery.Deliver(ctx, response.RoomID, response)
}

// roomOf returns the stored room, or one derived from the message channel.
func (s *Service) roomOf(ctx context.Context, roomID string, msg domain.Memory) domain.Room {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Error("failed to get room", zap.String("room_id", roomID), zap.Error(err))
	}
	if room != nil {
		return *room
	}
	roomType := msg.Content.Channel
	if roomType == "" {
		roomType = domain.RoomTypeGroup
	}
	return domain.Room{RoomID: roomID, Type: roomType, Source: msg.Content.Source}
}

// evaluate runs every evaluator, isolating their failures from the caller.
func (s *Service) evaluate(ctx context.Context, input EvaluationInput) {
	for _, e := range s.evaluators {
		if err := runEvaluator(ctx, e, input); err != nil {
			s.logger.Error("evaluator failed",
				zap.String("evaluator", e.Name()),
				zap.String("room_id", input.RoomID),
				zap.String("message_id", input.Message.ID),
				zap.Error(err))
		}
	}
}

func runEvaluator(ctx context.Context, e Evaluator, input EvaluationInput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panicked: %v", r)
		}
	}()
	return e.Evaluate(ctx, input)
}
