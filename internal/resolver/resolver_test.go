package resolver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

var roster = []domain.Entity{
	{EntityID: "user-alice-0001", Names: []string{"Alice", "alice_w"}},
	{EntityID: "user-bob-0002", Names: []string{"Bobby Tables"}},
	{EntityID: "agent-luna-0003", Names: []string{"Luna"}},
}

func TestResolveRules(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
		rule Rule
	}{
		{"exact id", "user-bob-0002", "user-bob-0002", RuleExactID},
		{"partial id", "alice-0001", "user-alice-0001", RulePartialID},
		{"name case insensitive", "bobby", "user-bob-0002", RuleName},
		{"alias name", "ALICE_W", "user-alice-0001", RuleName},
		{"trimmed", "  Luna ", "agent-luna-0003", RuleName},
		{"unknown", "carol", "", RuleNone},
		{"empty", "", "", RuleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := ResolveRule(tt.ref, roster)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestResolveAcceptsAnyUUIDWithoutRoster(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := uuid.New().String()
		got, ok := Resolve(id, nil)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestResolveRejectsNonCanonicalUUIDForms(t *testing.T) {
	id := uuid.New().String()
	_, ok := Resolve("urn:uuid:"+id, nil)
	assert.False(t, ok)
	_, ok = Resolve("{"+id+"}", nil)
	assert.False(t, ok)
}

func TestResolveExactBeatsPartial(t *testing.T) {
	r := []domain.Entity{
		{EntityID: "ab-long"},
		{EntityID: "ab"},
	}
	got, rule := ResolveRule("ab", r)
	assert.Equal(t, "ab", got)
	assert.Equal(t, RuleExactID, rule)
}
