package journal

import (
	"context"
	"fmt"

	"github.com/roach88/triplog/internal/cities"
)

// Append stores one action for session at seq.
// A duplicate (session, seq) is silently ignored.
func (j *Journal) Append(ctx context.Context, session string, seq int64, a cities.Action) error {
	payload, err := cities.EncodeAction(a)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO actions (session, seq, kind, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`, session, seq, string(a.Kind()), string(payload))
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

// Recorder binds a Journal to one session. It satisfies cities.Journal.
type Recorder struct {
	journal *Journal
	session string
}

// Recorder returns a cities.Journal that appends under session.
func (j *Journal) Recorder(session string) *Recorder {
	return &Recorder{journal: j, session: session}
}

// Append implements cities.Journal.
func (r *Recorder) Append(ctx context.Context, seq int64, a cities.Action) error {
	return r.journal.Append(ctx, r.session, seq, a)
}

var _ cities.Journal = (*Recorder)(nil)
