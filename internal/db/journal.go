package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Journal keeps the per-member event log of progress changes.
type Journal struct {
	db *sql.DB
}

// NewJournal creates a journal over an open database.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Event is one journal entry.
type Event struct {
	MemberID string
	Seq      int
	TS       string
	Type     string
	Message  string
	DataJSON string
}

// Append writes an event inside tx. Sequence numbers are per member.
func (j *Journal) Append(ctx context.Context, tx *sql.Tx, ev Event) error {
	seq, err := nextSeq(ctx, tx, ev.MemberID)
	if err != nil {
		return err
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(member_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		ev.MemberID, seq, ts, ev.Type, ev.Message, nullableString(ev.DataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns the events of a member in sequence order.
func (j *Journal) Events(ctx context.Context, memberID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT member_id, seq, ts, type, message, COALESCE(data_json, '') FROM events WHERE member_id=? ORDER BY seq`, memberID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.MemberID, &ev.Seq, &ev.TS, &ev.Type, &ev.Message, &ev.DataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func nextSeq(ctx context.Context, tx *sql.Tx, memberID string) (int, error) {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE member_id=?`, memberID)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("read event seq: %w", err)
	}
	return seq + 1, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
