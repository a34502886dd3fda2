package service

import (
	"context"
	"fmt"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/events"
)

// RegisterHandlers wires the service into the dispatch table.
func (s *Service) RegisterHandlers(t *events.Table) {
	t.On(domain.EventMessageReceived, "respond", func(ctx context.Context, payload any) error {
		p, err := payloadAs[domain.MessagePayload](payload)
		if err != nil {
			return err
		}
		return s.HandleMessagePayload(ctx, p)
	})
	t.On(domain.EventReactionReceived, "store_reaction", func(ctx context.Context, payload any) error {
		p, err := payloadAs[domain.ReactionPayload](payload)
		if err != nil {
			return err
		}
		if p.Reaction == nil {
			return fmt.Errorf("%w: reaction payload without reaction", ErrInvalidRequest)
		}
		return s.HandleReaction(ctx, p.RoomID, *p.Reaction)
	})
	t.On(domain.EventWorldJoined, "sync_world", func(ctx context.Context, payload any) error {
		p, err := payloadAs[domain.WorldPayload](payload)
		if err != nil {
			return err
		}
		return s.HandleWorldJoined(ctx, p)
	})
	t.On(domain.EventEntityJoined, "sync_entity_joined", func(ctx context.Context, payload any) error {
		p, err := payloadAs[domain.MembershipPayload](payload)
		if err != nil {
			return err
		}
		return s.HandleEntityJoined(ctx, p)
	})
	t.On(domain.EventEntityLeft, "sync_entity_left", func(ctx context.Context, payload any) error {
		p, err := payloadAs[domain.MembershipPayload](payload)
		if err != nil {
			return err
		}
		return s.HandleEntityLeft(ctx, p)
	})
}

// payloadAs accepts both T and *T.
func payloadAs[T any](payload any) (T, error) {
	switch p := payload.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unexpected payload %T", ErrInvalidRequest, payload)
}
