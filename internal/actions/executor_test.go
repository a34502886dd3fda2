package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/testutil"
	"github.com/baYsed-BuidlAI/luna/policy"
)

func newExecutor(t *testing.T) (*Executor, *Registry) {
	t.Helper()
	st := testutil.NewTestSQLiteStore(t)
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg, st))
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	return NewExecutor(reg, engine, nil), reg
}

func TestPlannedDefaultsToReply(t *testing.T) {
	call := Call{Response: domain.Memory{Content: domain.Content{Text: "hi"}}}
	assert.Equal(t, []string{ActionReply}, Planned(call))

	call.Response.Content.Actions = []string{" reply", "REPLY", "mute_room"}
	assert.Equal(t, []string{ActionReply, ActionMuteRoom}, Planned(call))

	assert.Empty(t, Planned(Call{}))
}

func TestReplyDelivers(t *testing.T) {
	exec, _ := newExecutor(t)
	var delivered []domain.Memory
	call := Call{
		AgentID:  "agent",
		Room:     domain.Room{RoomID: "r", Type: domain.RoomTypeGroup},
		Response: domain.Memory{ID: "resp", Content: domain.Content{Text: "hello", Actions: []string{"REPLY"}}},
		Deliver: func(_ context.Context, m domain.Memory) error {
			delivered = append(delivered, m)
			return nil
		},
	}

	require.NoError(t, exec.Execute(context.Background(), call))
	require.Len(t, delivered, 1)
	assert.Equal(t, "resp", delivered[0].ID)
}

func TestRoomStateActions(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestSQLiteStore(t)
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg, st))
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	exec := NewExecutor(reg, engine, nil)

	group := domain.Room{RoomID: "g", Type: domain.RoomTypeGroup}
	run := func(room domain.Room, action string) {
		t.Helper()
		require.NoError(t, exec.Execute(ctx, Call{
			AgentID:  "agent",
			Room:     room,
			Response: domain.Memory{Content: domain.Content{Actions: []string{action}}},
		}))
	}
	state := func(roomID string) domain.ParticipantState {
		s, err := st.GetParticipantState(ctx, roomID, "agent")
		require.NoError(t, err)
		return s
	}

	run(group, ActionMuteRoom)
	assert.Equal(t, domain.ParticipantStateMuted, state("g"))

	// Unfollow only clears a follow.
	run(group, ActionUnfollowRoom)
	assert.Equal(t, domain.ParticipantStateMuted, state("g"))

	run(group, ActionUnmuteRoom)
	assert.Equal(t, domain.ParticipantStateNone, state("g"))

	run(group, ActionFollowRoom)
	assert.Equal(t, domain.ParticipantStateFollowed, state("g"))

	dm := domain.Room{RoomID: "d", Type: domain.RoomTypeDirect}
	run(dm, ActionMuteRoom)
	assert.Equal(t, domain.ParticipantStateNone, state("d"))
}

func TestExecuteJoinsErrorsAndContinues(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	var ran []string
	reg.MustRegister("FIRST", func(context.Context, Call) error {
		ran = append(ran, "FIRST")
		return boom
	})
	reg.MustRegister("SECOND", func(context.Context, Call) error {
		ran = append(ran, "SECOND")
		return nil
	})
	exec := NewExecutor(reg, nil, nil)

	err := exec.Execute(context.Background(), Call{
		Response: domain.Memory{Content: domain.Content{Actions: []string{"first", "unknown", "second"}}},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"FIRST", "SECOND"}, ran)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("x", noop))
	assert.Error(t, reg.Register("X", noop))
	assert.Error(t, reg.Register(" ", noop))
	assert.Error(t, reg.Register("y", nil))
	assert.Equal(t, []string{"X"}, reg.Names())
}
