package store

import (
	"context"
	"fmt"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/engine"
)

var _ engine.Journal = (*Store)(nil)

// Append records an applied action. A seq is written at most once; a
// second append for the same seq is an error.
func (s *Store) Append(ctx context.Context, seq int64, env action.Envelope) error {
	payload := string(env.Payload)
	if payload == "" {
		payload = "null"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (seq, kind, payload)
		VALUES (?, ?, ?)
	`, seq, env.Kind, payload)
	if err != nil {
		return fmt.Errorf("append journal seq %d: %w", seq, err)
	}
	return nil
}

// ReadJournal returns every entry with seq > after, in seq order.
func (s *Store) ReadJournal(ctx context.Context, after int64) ([]engine.JournalEntry, error) {
	return s.QueryJournal(ctx, JournalQuery{After: after})
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// Used to continue the logical clock after a restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
