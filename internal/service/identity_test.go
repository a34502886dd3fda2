package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baYsed-BuidlAI/luna/internal/testutil"
)

func TestResolveAgentIDSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestSQLiteStore(t)

	first, err := ResolveAgentID(ctx, st, "")
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := ResolveAgentID(ctx, st, "")
	require.NoError(t, err)
	assert.Equal(t, first, second, "a generated id is reused on the next start")
}

func TestResolveAgentIDPrefersConfigured(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestSQLiteStore(t)
	configured := uuid.New().String()

	id, err := ResolveAgentID(ctx, st, configured)
	require.NoError(t, err)
	assert.Equal(t, configured, id)

	_, stored, err := st.GetCache(ctx, AgentIDKey)
	require.NoError(t, err)
	assert.False(t, stored, "a configured id is not cached")
}

func TestResolveAgentIDRejectsCorruptStoredID(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestSQLiteStore(t)
	require.NoError(t, st.SetCache(ctx, AgentIDKey, "garbage"))

	_, err := ResolveAgentID(ctx, st, "")
	assert.Error(t, err)
}
