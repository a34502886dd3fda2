package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/llm"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

func newIndex(t *testing.T) *FactIndex {
	t.Helper()
	e, err := embedding.NewEmbedder(llm.NewMockClient(), "mock", 0)
	require.NoError(t, err)
	idx, err := NewFactIndex(e, "")
	require.NoError(t, err)
	return idx
}

func fact(id, room, claim string) *domain.Memory {
	return domain.Fact{ID: id, RoomID: room, Claim: claim, Kind: domain.FactKindFact}.ToMemory("agent")
}

func TestSearchFiltersByRoom(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)

	require.NoError(t, idx.Add(ctx, fact("f1", "r1", "alice drinks green tea every morning")))
	require.NoError(t, idx.Add(ctx, fact("f2", "r1", "bob plays the cello")))
	require.NoError(t, idx.Add(ctx, fact("f3", "r2", "alice drinks green tea in room two")))
	assert.Equal(t, 3, idx.Count())

	matches, err := idx.Search(ctx, "r1", "green tea", 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.NotEqual(t, "f3", m.ID)
	}
	assert.Equal(t, "f1", matches[0].ID)
	assert.Equal(t, "fact", matches[0].Kind)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newIndex(t)
	matches, err := idx.Search(context.Background(), "r1", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
