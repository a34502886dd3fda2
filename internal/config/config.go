// Package config provides configuration for the agent runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	InternalPort int

	// Database
	DatabaseURL string
	CacheSize   int

	// Language model
	Mode           string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMTimeout     time.Duration
	SmallModel     string
	LargeModel     string
	EmbeddingModel string

	// Embeddings and fact recall
	EmbeddingCacheSize int
	VectorPersistPath  string

	// Agent identity. An empty AgentID is generated once and kept in the
	// database cache.
	AgentID   string
	AgentName string

	// ConversationLength is the per-agent message window used for prompts and
	// reflection.
	ConversationLength int

	// WebSocket settings
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel string
}

// ModeMock selects the mock language model client.
const ModeMock = "MOCK"

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("internal_port", 8081)
	v.SetDefault("database_url", "file:luna.db?cache=shared&mode=rwc")
	v.SetDefault("cache_size", 1024)
	v.SetDefault("luna_mode", "")
	v.SetDefault("llm_base_url", "http://localhost:4000")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_timeout_ms", 120000)
	v.SetDefault("small_model", "gpt-4o-mini")
	v.SetDefault("large_model", "gpt-4o")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_cache_size", 10000)
	v.SetDefault("vector_persist_path", "")
	v.SetDefault("agent_id", "")
	v.SetDefault("agent_name", "Luna")
	v.SetDefault("conversation_length", 32)
	v.SetDefault("ws_ping_interval_ms", 30000)
	v.SetDefault("ws_write_timeout_ms", 10000)
	v.SetDefault("ws_read_timeout_ms", 60000)
	v.SetDefault("ws_max_message_size", 65536)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPPort:           v.GetInt("http_port"),
		InternalPort:       v.GetInt("internal_port"),
		DatabaseURL:        v.GetString("database_url"),
		CacheSize:          v.GetInt("cache_size"),
		Mode:               strings.ToUpper(v.GetString("luna_mode")),
		LLMBaseURL:         v.GetString("llm_base_url"),
		LLMAPIKey:          v.GetString("llm_api_key"),
		LLMTimeout:         time.Duration(v.GetInt("llm_timeout_ms")) * time.Millisecond,
		SmallModel:         v.GetString("small_model"),
		LargeModel:         v.GetString("large_model"),
		EmbeddingModel:     v.GetString("embedding_model"),
		EmbeddingCacheSize: v.GetInt("embedding_cache_size"),
		VectorPersistPath:  v.GetString("vector_persist_path"),
		AgentID:            v.GetString("agent_id"),
		AgentName:          v.GetString("agent_name"),
		ConversationLength: v.GetInt("conversation_length"),
		WSPingInterval:     time.Duration(v.GetInt("ws_ping_interval_ms")) * time.Millisecond,
		WSWriteTimeout:     time.Duration(v.GetInt("ws_write_timeout_ms")) * time.Millisecond,
		WSReadTimeout:      time.Duration(v.GetInt("ws_read_timeout_ms")) * time.Millisecond,
		WSMaxMessageSize:   v.GetInt64("ws_max_message_size"),
		LogLevel:           v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the runtime cannot start without.
func (c *Config) Validate() error {
	if c.ConversationLength <= 0 {
		return errors.New("conversation_length must be positive")
	}
	if c.AgentName == "" {
		return errors.New("agent_name is required")
	}
	if c.AgentID != "" {
		if _, err := uuid.Parse(c.AgentID); err != nil {
			return fmt.Errorf("agent_id must be a uuid: %w", err)
		}
	}
	return nil
}
