package store

import (
	"context"
	"fmt"
)

// Submission statuses as stored in the ledger.
const (
	StatusSubmitting = "submitting"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// Submission is one row of the checkout submission ledger.
type Submission struct {
	ID          string
	Seq         int64
	Fingerprint string
	Status      string
	OrderID     string
	Error       string
}

// BeginSubmission records a new attempt in status submitting.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a retried write of the
// same attempt id is silently ignored. seq is assigned from the ledger.
func (s *Store) BeginSubmission(ctx context.Context, id, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, seq, fingerprint, status)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM submissions), ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, fingerprint, StatusSubmitting)
	if err != nil {
		return fmt.Errorf("begin submission: %w", err)
	}
	return nil
}

// FinishSubmission records the outcome of attempt id. Only a row still in
// status submitting is updated, so an outcome is written at most once.
func (s *Store) FinishSubmission(ctx context.Context, id, status, orderID, errMsg string) error {
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("finish submission: invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, order_id = ?, error = ?
		WHERE id = ? AND status = ?
	`, status, orderID, errMsg, id, StatusSubmitting)
	if err != nil {
		return fmt.Errorf("finish submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish submission: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish submission: no open attempt %q", id)
	}
	return nil
}

// ListSubmissions returns the ledger in seq order.
func (s *Store) ListSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, fingerprint, status, order_id, error
		FROM submissions
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.Seq, &sub.Fingerprint, &sub.Status, &sub.OrderID, &sub.Error); err != nil {
			return nil, fmt.Errorf("list submissions: scan: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}
