package journal

import (
	"context"
	"fmt"

	"github.com/roach88/triplog/internal/cities"
)

// Entry is one journaled action.
type Entry struct {
	Session string
	Seq     int64
	Kind    cities.Kind
	Payload string
}

// Action decodes the entry payload.
func (e Entry) Action() (cities.Action, error) {
	a, err := cities.DecodeAction(e.Kind, []byte(e.Payload))
	if err != nil {
		return nil, fmt.Errorf("entry %s/%d: %w", e.Session, e.Seq, err)
	}
	return a, nil
}

// Entries returns the actions of session ordered by seq.
// Returns an empty slice (not nil) for an unknown session.
func (j *Journal) Entries(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session, seq, kind, payload
		FROM actions
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.Session, &e.Seq, &kind, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = cities.Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Sessions lists every session in the journal in first-seen order.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session
		FROM actions
		GROUP BY session
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
