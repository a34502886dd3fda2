package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 32, cfg.ConversationLength)
	assert.Equal(t, "Luna", cfg.AgentName)
	assert.Empty(t, cfg.AgentID, "an unset id is resolved against the database at startup")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "luna.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent_name: FileBot\nconversation_length: 12\n"), 0o600))

	t.Setenv("AGENT_NAME", "SarahBot")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SarahBot", cfg.AgentName)
	assert.Equal(t, 12, cfg.ConversationLength)
}

func TestLoadRejectsBadAgentID(t *testing.T) {
	t.Setenv("AGENT_ID", "not-a-uuid")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadKeepsConfiguredAgentID(t *testing.T) {
	t.Setenv("AGENT_ID", "3f2b8c1e-5d4a-4e6f-9a7b-1c2d3e4f5a6b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "3f2b8c1e-5d4a-4e6f-9a7b-1c2d3e4f5a6b", cfg.AgentID)
}
