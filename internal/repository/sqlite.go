package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	cache *lru.Cache[string, string]
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store. cacheSize bounds the in-process
// LRU kept in front of the cache table.
func NewSQLiteStore(dsn string, cacheSize int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	store := &SQLiteStore{db: db, cache: cache}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room_id TEXT PRIMARY KEY,
			world_id TEXT,
			name TEXT,
			type TEXT NOT NULL,
			source TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			entity_id TEXT PRIMARY KEY,
			names TEXT NOT NULL,
			metadata TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			room_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (room_id, entity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_entity ON participants(entity_id)`,
		`CREATE TABLE IF NOT EXISTS memories (
			memory_id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			room_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			agent_id TEXT,
			content TEXT NOT NULL,
			is_unique INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(table_name, room_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			relationship_id TEXT PRIMARY KEY,
			source_entity_id TEXT NOT NULL,
			target_entity_id TEXT NOT NULL,
			agent_id TEXT,
			tags TEXT NOT NULL DEFAULT '[]',
			metadata TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (source_entity_id, target_entity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_entity_id)`,
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Embeddings were added after the first schema (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("memories", "embedding", "ALTER TABLE memories ADD COLUMN embedding TEXT"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMemory stores a memory in the given logical table. Missing ids and
// timestamps are filled in on the passed record.
func (s *SQLiteStore) CreateMemory(ctx context.Context, table domain.MemoryTable, memory *domain.Memory) error {
	if memory.ID == "" {
		memory.ID = uuid.New().String()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now()
	}

	content, err := json.Marshal(memory.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}
	var embedding sql.NullString
	if len(memory.Embedding) > 0 {
		raw, err := json.Marshal(memory.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embedding = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (memory_id, table_name, room_id, entity_id, agent_id, content, embedding, is_unique, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		memory.ID, string(table), memory.RoomID, memory.EntityID, memory.AgentID, string(content), embedding,
		boolToInt(memory.Unique), memory.CreatedAt.UnixMilli())
	return err
}

const memoryColumns = `memory_id, room_id, entity_id, agent_id, content, embedding, is_unique, created_at`

// GetMemories retrieves memories of a room, most recent first.
func (s *SQLiteStore) GetMemories(ctx context.Context, q domain.MemoryQuery) ([]domain.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE table_name = ? AND room_id = ?`
	args := []interface{}{string(q.Table), q.RoomID}

	if q.Unique {
		query += ` AND is_unique = 1`
	}

	query += ` ORDER BY created_at DESC, rowid DESC`
	if q.Count > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Count)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

// GetMemory retrieves a single memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, table domain.MemoryTable, memoryID string) (*domain.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE table_name = ? AND memory_id = ?`,
		string(table), memoryID)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*domain.Memory, error) {
	var m domain.Memory
	var agentID, embedding sql.NullString
	var content string
	var unique int
	var createdAt int64
	if err := row.Scan(&m.ID, &m.RoomID, &m.EntityID, &agentID, &content, &embedding, &unique, &createdAt); err != nil {
		return nil, err
	}
	if agentID.Valid {
		m.AgentID = agentID.String
	}
	if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", m.ID, err)
	}
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &m.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding of %s: %w", m.ID, err)
		}
	}
	m.Unique = unique == 1
	m.CreatedAt = time.UnixMilli(createdAt)
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
