package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Load returns the blob stored under key. ok is false when the key has
// never been written.
func (s *Store) Load(ctx context.Context, key string) (data []byte, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	return data, true, nil
}

// Save writes data under key, replacing any previous value.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, data)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}
