package generation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintReplacesPrevious(t *testing.T) {
	table := NewTable()
	key := Key{AgentID: "agent", RoomID: "room"}

	first, replaced := table.Mint(key)
	assert.Empty(t, replaced)
	current, ok := table.Current(key)
	require.True(t, ok)
	assert.Equal(t, first, current)

	second, replaced := table.Mint(key)
	assert.Equal(t, first, replaced)
	assert.NotEqual(t, first, second)
	current, _ = table.Current(key)
	assert.Equal(t, second, current)
}

func TestClaimOnlyByLiveToken(t *testing.T) {
	table := NewTable()
	key := Key{AgentID: "agent", RoomID: "room"}

	stale, _ := table.Mint(key)
	live, _ := table.Mint(key)

	assert.False(t, table.Claim(key, stale))
	assert.True(t, table.Claim(key, live))
	assert.False(t, table.Claim(key, live), "a claimed token is cleared")

	_, ok := table.Current(key)
	assert.False(t, ok)
}

func TestKeysAreIndependent(t *testing.T) {
	table := NewTable()
	a := Key{AgentID: "agent", RoomID: "a"}
	b := Key{AgentID: "agent", RoomID: "b"}

	ta, _ := table.Mint(a)
	tb, _ := table.Mint(b)

	assert.True(t, table.Claim(a, ta))
	assert.True(t, table.Claim(b, tb))
}

func TestConcurrentMintsLeaveExactlyOneWinner(t *testing.T) {
	table := NewTable()
	key := Key{AgentID: "agent", RoomID: "room"}

	const n = 64
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = table.Mint(key)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, tok := range tokens {
		if table.Claim(key, tok) {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}
