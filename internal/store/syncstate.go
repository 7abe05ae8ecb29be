package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LoadSyncState returns the persisted state for session. ok is false when
// the session has no row, which callers treat as local.
func (s *Store) LoadSyncState(ctx context.Context, session string) (state string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT state FROM sync_state WHERE session = ?`, session).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load sync state: %w", err)
	}
	return state, true, nil
}

// SaveSyncState records state for session.
func (s *Store) SaveSyncState(ctx context.Context, session, state string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (session, state) VALUES (?, ?)
		ON CONFLICT(session) DO UPDATE SET state = excluded.state
	`, session, state)
	if err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// DeleteSyncState forgets session. Deleting an unknown session is a no-op.
func (s *Store) DeleteSyncState(ctx context.Context, session string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_state WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	return nil
}
