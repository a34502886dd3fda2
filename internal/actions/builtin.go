package actions

import (
	"context"
	"fmt"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	store "github.com/baYsed-BuidlAI/luna/internal/repository"
)

// Built-in action names.
const (
	ActionReply        = "REPLY"
	ActionIgnore       = "IGNORE"
	ActionNone         = "NONE"
	ActionFollowRoom   = "FOLLOW_ROOM"
	ActionUnfollowRoom = "UNFOLLOW_ROOM"
	ActionMuteRoom     = "MUTE_ROOM"
	ActionUnmuteRoom   = "UNMUTE_ROOM"
)

// RegisterBuiltins installs the reply and room participation actions.
func RegisterBuiltins(r *Registry, participants store.ParticipantStore) error {
	builtins := map[string]HandlerFunc{
		ActionReply:        reply,
		ActionIgnore:       noop,
		ActionNone:         noop,
		ActionFollowRoom:   setState(participants, domain.ParticipantStateFollowed, ""),
		ActionUnfollowRoom: setState(participants, domain.ParticipantStateNone, domain.ParticipantStateFollowed),
		ActionMuteRoom:     setState(participants, domain.ParticipantStateMuted, ""),
		ActionUnmuteRoom:   setState(participants, domain.ParticipantStateNone, domain.ParticipantStateMuted),
	}
	for name, h := range builtins {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

func reply(ctx context.Context, call Call) error {
	if call.Response.Content.Text == "" || call.Deliver == nil {
		return nil
	}
	return call.Deliver(ctx, call.Response)
}

func noop(context.Context, Call) error {
	return nil
}

// setState moves the agent to state. When from is set, the change only
// applies if the agent is currently in that state.
func setState(participants store.ParticipantStore, state, from domain.ParticipantState) HandlerFunc {
	return func(ctx context.Context, call Call) error {
		if from != "" {
			current, err := participants.GetParticipantState(ctx, call.Room.RoomID, call.AgentID)
			if err != nil {
				return fmt.Errorf("failed to get participant state: %w", err)
			}
			if current != from {
				return nil
			}
		}
		if err := participants.SetParticipantState(ctx, call.Room.RoomID, call.AgentID, state); err != nil {
			return fmt.Errorf("failed to set participant state: %w", err)
		}
		return nil
	}
}
