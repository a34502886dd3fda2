package store

import (
	"context"
	"database/sql"
	"time"
)

// GetCache returns the cached value for key. The LRU answers first.
func (s *SQLiteStore) GetCache(ctx context.Context, key string) (string, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, true, nil
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.cache.Add(key, value)
	return value, true, nil
}

// SetCache writes through to the cache table.
func (s *SQLiteStore) SetCache(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	s.cache.Add(key, value)
	return nil
}
