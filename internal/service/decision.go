package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/extract"
	"github.com/baYsed-BuidlAI/luna/internal/prompt"
)

// Decision reasons, in evaluation order.
const (
	ReasonSelf     = "self"
	ReasonMuted    = "muted"
	ReasonFollowed = "followed"
	ReasonMention  = "mention"
	ReasonModel    = "model"
	ReasonAnomaly  = "anomaly"
)

// Decision is the outcome of the should-respond gate.
type Decision struct {
	Respond bool
	Reason  string
}

// ParseDecision maps the model's answer onto respond/skip. RESPOND wins over
// IGNORE and STOP; matching is case-sensitive. ok is false when the answer
// contains none of them.
func ParseDecision(output string) (respond bool, ok bool) {
	switch {
	case strings.Contains(output, "RESPOND"):
		return true, true
	case strings.Contains(output, "IGNORE"), strings.Contains(output, "STOP"):
		return false, true
	default:
		return false, false
	}
}

// Mentions reports whether text names the agent, ignoring case.
func Mentions(text, agentName string) bool {
	if agentName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(agentName))
}

// ShouldRespond decides whether the agent replies to msg. Cheap rules are
// checked first; the small model is only asked when none of them applies.
func (s *Service) ShouldRespond(ctx context.Context, roomID string, msg domain.Memory) Decision {
	d := s.shouldRespond(ctx, roomID, msg)
	s.metrics.ObserveDecision(d.Reason, d.Respond)
	s.logger.Debug("should respond",
		zap.String("room_id", roomID),
		zap.String("message_id", msg.ID),
		zap.Bool("respond", d.Respond),
		zap.String("reason", d.Reason))
	return d
}

func (s *Service) shouldRespond(ctx context.Context, roomID string, msg domain.Memory) Decision {
	if msg.EntityID == s.agentID {
		return Decision{Respond: false, Reason: ReasonSelf}
	}

	state, err := s.store.GetParticipantState(ctx, roomID, s.agentID)
	if err != nil {
		s.logger.Error("failed to get participant state", zap.String("room_id", roomID), zap.Error(err))
		state = domain.ParticipantStateNone
	}
	mentioned := Mentions(msg.Content.Text, s.agentName)

	if state == domain.ParticipantStateMuted && !mentioned {
		return Decision{Respond: false, Reason: ReasonMuted}
	}
	if state == domain.ParticipantStateFollowed {
		return Decision{Respond: true, Reason: ReasonFollowed}
	}
	if mentioned {
		return Decision{Respond: true, Reason: ReasonMention}
	}

	conv, err := s.loadConversation(ctx, roomID, false)
	if err != nil {
		s.logger.Error("failed to load conversation", zap.String("room_id", roomID), zap.Error(err))
		return Decision{Respond: false, Reason: ReasonAnomaly}
	}
	text, err := prompt.Render(shouldRespondTemplate, shouldRespondData{
		AgentName:    s.agentName,
		Conversation: conv.transcript(),
	})
	if err != nil {
		s.logger.Error("failed to render prompt", zap.Error(err))
		return Decision{Respond: false, Reason: ReasonAnomaly}
	}

	out, err := s.extractor.Text(ctx, extract.Request{
		Prompt:    text,
		Tier:      domain.ModelTierSmall,
		MaxTokens: extract.DefaultEnumMaxTokens,
	})
	if err != nil {
		s.logger.Error("should-respond extraction failed", zap.Error(err))
		return Decision{Respond: false, Reason: ReasonAnomaly}
	}

	respond, ok := ParseDecision(out.Value)
	if !ok {
		s.logger.Warn("unexpected should-respond answer",
			zap.String("room_id", roomID),
			zap.String("message_id", msg.ID),
			zap.String("output", out.Value),
			zap.Stringer("status", out.Status))
		return Decision{Respond: false, Reason: ReasonAnomaly}
	}
	return Decision{Respond: respond, Reason: ReasonModel}
}
