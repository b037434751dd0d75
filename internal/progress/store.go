// Package progress persists team members, their player profiles and completion
// records per game mode, and assembles them into engine inputs.
package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/model"
)

// ErrMemberNotFound is returned when a member id does not exist.
var ErrMemberNotFound = errors.New("member not found")

// Store manages member and progress persistence.
type Store struct {
	db      *sql.DB
	journal *db.Journal
	now     func() time.Time
}

// NewStore creates a progress store.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database, journal: db.NewJournal(database), now: time.Now}
}

// Journal returns the event journal written alongside progress changes.
func (s *Store) Journal() *db.Journal {
	return s.journal
}

// MemberInfo describes a member record.
type MemberInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hidden    bool   `json:"hidden"`
	CreatedAt string `json:"createdAt"`
}

// AddMember inserts a new member and returns its generated id.
func (s *Store) AddMember(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("member name is required")
	}
	id := uuid.NewString()
	createdAt := s.now().UTC().Format(time.RFC3339)
	err := s.withTx(ctx, "add member", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO members(id, name, hidden, created_at) VALUES(?, ?, 0, ?)`, id, name, createdAt); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		return s.journal.Append(ctx, tx, db.Event{MemberID: id, Type: "member_added", Message: "member added: " + name})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListMembers returns every member ordered by creation.
func (s *Store) ListMembers(ctx context.Context) ([]MemberInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, hidden, created_at FROM members ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	var out []MemberInfo
	for rows.Next() {
		var m MemberInfo
		if err := rows.Scan(&m.ID, &m.Name, &m.Hidden, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

// GetMember fetches a member by id.
func (s *Store) GetMember(ctx context.Context, id string) (MemberInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, hidden, created_at FROM members WHERE id=?`, id)
	var m MemberInfo
	if err := row.Scan(&m.ID, &m.Name, &m.Hidden, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemberInfo{}, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return MemberInfo{}, fmt.Errorf("read member: %w", err)
	}
	return m, nil
}

// SetHidden hides or shows a member in team views.
func (s *Store) SetHidden(ctx context.Context, id string, hidden bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE members SET hidden=? WHERE id=?`, hidden, id)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return requireRow(res, id)
}

// RemoveMember deletes a member and all of its progress.
func (s *Store) RemoveMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireRow(res, id)
}

// SetLevel stores the player level of a member in a game mode.
func (s *Store) SetLevel(ctx context.Context, id string, mode model.GameMode, level int) error {
	if level < 1 {
		return fmt.Errorf("invalid player level %d", level)
	}
	return s.withTx(ctx, "set level", func(tx *sql.Tx) error {
		if err := ensureMember(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO profiles(member_id, game_mode, level) VALUES(?, ?, ?)
			ON CONFLICT(member_id, game_mode) DO UPDATE SET level=excluded.level`, id, string(mode), level); err != nil {
			return fmt.Errorf("upsert profile level: %w", err)
		}
		return nil
	})
}

// SetFaction stores the faction of a member in a game mode.
func (s *Store) SetFaction(ctx context.Context, id string, mode model.GameMode, faction string) error {
	faction = strings.TrimSpace(faction)
	return s.withTx(ctx, "set faction", func(tx *sql.Tx) error {
		if err := ensureMember(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO profiles(member_id, game_mode, faction) VALUES(?, ?, ?)
			ON CONFLICT(member_id, game_mode) DO UPDATE SET faction=excluded.faction`, id, string(mode), faction); err != nil {
			return fmt.Errorf("upsert profile faction: %w", err)
		}
		return nil
	})
}

// SetTraderLevel stores a member's loyalty level with a trader.
func (s *Store) SetTraderLevel(ctx context.Context, id string, mode model.GameMode, traderID string, level int) error {
	if level < 1 {
		return fmt.Errorf("invalid trader level %d", level)
	}
	return s.withTx(ctx, "set trader level", func(tx *sql.Tx) error {
		if err := ensureMember(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO trader_levels(member_id, game_mode, trader_id, level) VALUES(?, ?, ?, ?)
			ON CONFLICT(member_id, game_mode, trader_id) DO UPDATE SET level=excluded.level`, id, string(mode), traderID, level); err != nil {
			return fmt.Errorf("upsert trader level: %w", err)
		}
		return nil
	})
}

// PutTask writes a task completion record. Writes older than the stored record are
// ignored; the result reports whether the record was applied. A zero timestamp means now.
func (s *Store) PutTask(ctx context.Context, id string, mode model.GameMode, taskID string, rec model.CompletionRecord) (bool, error) {
	if rec.Failed {
		rec.Complete = true
	}
	rec.Timestamp = s.stamp(rec.Timestamp)
	return s.upsert(ctx, id, "task_progress", taskID, rec,
		`INSERT INTO task_progress(member_id, game_mode, task_id, complete, failed, timestamp) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, game_mode, task_id) DO UPDATE SET
			complete=excluded.complete, failed=excluded.failed, timestamp=excluded.timestamp
		WHERE excluded.timestamp >= task_progress.timestamp`,
		id, string(mode), taskID, rec.Complete, rec.Failed, rec.Timestamp)
}

// PutObjective writes an objective record with last-write-wins semantics.
func (s *Store) PutObjective(ctx context.Context, id string, mode model.GameMode, objectiveID string, rec model.ObjectiveRecord) (bool, error) {
	rec.Timestamp = s.stamp(rec.Timestamp)
	return s.upsert(ctx, id, "objective_progress", objectiveID, rec,
		`INSERT INTO objective_progress(member_id, game_mode, objective_id, complete, count, timestamp) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, game_mode, objective_id) DO UPDATE SET
			complete=excluded.complete, count=excluded.count, timestamp=excluded.timestamp
		WHERE excluded.timestamp >= objective_progress.timestamp`,
		id, string(mode), objectiveID, rec.Complete, rec.Count, rec.Timestamp)
}

// PutHideout writes a hideout module record with last-write-wins semantics.
func (s *Store) PutHideout(ctx context.Context, id string, mode model.GameMode, moduleID string, rec model.CompletionRecord) (bool, error) {
	rec.Failed = false
	rec.Timestamp = s.stamp(rec.Timestamp)
	return s.upsert(ctx, id, "hideout_progress", moduleID, rec,
		`INSERT INTO hideout_progress(member_id, game_mode, module_id, complete, timestamp) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(member_id, game_mode, module_id) DO UPDATE SET
			complete=excluded.complete, timestamp=excluded.timestamp
		WHERE excluded.timestamp >= hideout_progress.timestamp`,
		id, string(mode), moduleID, rec.Complete, rec.Timestamp)
}

func (s *Store) upsert(ctx context.Context, memberID, table, key string, rec any, query string, args ...any) (bool, error) {
	applied := false
	err := s.withTx(ctx, "write "+table, func(tx *sql.Tx) error {
		if err := ensureMember(ctx, tx, memberID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		applied = true
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return s.journal.Append(ctx, tx, db.Event{
			MemberID: memberID,
			Type:     table,
			Message:  key,
			DataJSON: string(data),
		})
	})
	return applied, err
}

// Member assembles the engine input of one member for a game mode.
func (s *Store) Member(ctx context.Context, id string, mode model.GameMode) (engine.Member, error) {
	info, err := s.GetMember(ctx, id)
	if err != nil {
		return engine.Member{}, err
	}
	members, err := s.load(ctx, mode, []MemberInfo{info})
	if err != nil {
		return engine.Member{}, err
	}
	return members[0], nil
}

// Members assembles the engine inputs of every member for a game mode.
func (s *Store) Members(ctx context.Context, mode model.GameMode) ([]engine.Member, error) {
	infos, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, mode, infos)
}

func (s *Store) load(ctx context.Context, mode model.GameMode, infos []MemberInfo) ([]engine.Member, error) {
	out := make([]engine.Member, len(infos))
	index := make(map[string]*engine.Member, len(infos))
	for i, info := range infos {
		out[i] = engine.Member{
			ID:           info.ID,
			Name:         info.Name,
			Hidden:       info.Hidden,
			Level:        1,
			TraderLevels: make(map[string]int),
			Tasks:        make(map[string]model.CompletionRecord),
			Objectives:   make(map[string]model.ObjectiveRecord),
			Hideout:      make(map[string]model.CompletionRecord),
		}
		index[info.ID] = &out[i]
	}

	err := s.scan(ctx, `SELECT member_id, level, faction FROM profiles WHERE game_mode=?`, mode, func(rows *sql.Rows) error {
		var id, faction string
		var level int
		if err := rows.Scan(&id, &level, &faction); err != nil {
			return err
		}
		if m, ok := index[id]; ok {
			m.Level, m.Faction = level, faction
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	err = s.scan(ctx, `SELECT member_id, trader_id, level FROM trader_levels WHERE game_mode=?`, mode, func(rows *sql.Rows) error {
		var id, trader string
		var level int
		if err := rows.Scan(&id, &trader, &level); err != nil {
			return err
		}
		if m, ok := index[id]; ok {
			m.TraderLevels[trader] = level
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load trader levels: %w", err)
	}

	err = s.scan(ctx, `SELECT member_id, task_id, complete, failed, timestamp FROM task_progress WHERE game_mode=?`, mode, func(rows *sql.Rows) error {
		var id, taskID string
		var rec model.CompletionRecord
		if err := rows.Scan(&id, &taskID, &rec.Complete, &rec.Failed, &rec.Timestamp); err != nil {
			return err
		}
		if m, ok := index[id]; ok {
			m.Tasks[taskID] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load task progress: %w", err)
	}

	err = s.scan(ctx, `SELECT member_id, objective_id, complete, count, timestamp FROM objective_progress WHERE game_mode=?`, mode, func(rows *sql.Rows) error {
		var id, objID string
		var rec model.ObjectiveRecord
		if err := rows.Scan(&id, &objID, &rec.Complete, &rec.Count, &rec.Timestamp); err != nil {
			return err
		}
		if m, ok := index[id]; ok {
			m.Objectives[objID] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load objective progress: %w", err)
	}

	err = s.scan(ctx, `SELECT member_id, module_id, complete, timestamp FROM hideout_progress WHERE game_mode=?`, mode, func(rows *sql.Rows) error {
		var id, moduleID string
		var rec model.CompletionRecord
		if err := rows.Scan(&id, &moduleID, &rec.Complete, &rec.Timestamp); err != nil {
			return err
		}
		if m, ok := index[id]; ok {
			m.Hideout[moduleID] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load hideout progress: %w", err)
	}

	return out, nil
}

func (s *Store) scan(ctx context.Context, query string, mode model.GameMode, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, string(mode))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

func (s *Store) stamp(ts int64) int64 {
	if ts > 0 {
		return ts
	}
	return s.now().UnixMilli()
}

func ensureMember(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id=?`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return fmt.Errorf("read member: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return nil
}
