package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/pickup/internal/engine"
)

// JournalQuery selects journal entries. Zero fields do not filter.
type JournalQuery struct {
	After      int64    // only seq > After
	Until      int64    // only seq <= Until
	KindPrefix string   // only kinds starting with this
	Kinds      []string // only these exact kinds
	Limit      int      // at most this many entries
}

// compile converts q to parameterized SQL. Values are never interpolated,
// and rows always come back in seq order.
func (q JournalQuery) compile() (string, []any) {
	var (
		where  []string
		params []any
	)
	if q.After > 0 {
		where = append(where, "seq > ?")
		params = append(params, q.After)
	}
	if q.Until > 0 {
		where = append(where, "seq <= ?")
		params = append(params, q.Until)
	}
	if q.KindPrefix != "" {
		// substr avoids LIKE wildcards in the prefix.
		where = append(where, "substr(kind, 1, ?) = ?")
		params = append(params, len(q.KindPrefix), q.KindPrefix)
	}
	if len(q.Kinds) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(q.Kinds)), ", ")
		where = append(where, "kind IN ("+marks+")")
		for _, k := range q.Kinds {
			params = append(params, k)
		}
	}

	sql := "SELECT seq, kind, payload FROM journal"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY seq ASC"
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params
}

// QueryJournal returns the entries matching q, in seq order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) QueryJournal(ctx context.Context, q JournalQuery) ([]engine.JournalEntry, error) {
	sql, params := q.compile()
	rows, err := s.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []engine.JournalEntry{}
	for rows.Next() {
		var (
			e       engine.JournalEntry
			payload string
		)
		if err := rows.Scan(&e.Seq, &e.Envelope.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Envelope.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
