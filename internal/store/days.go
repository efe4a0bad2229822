package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

const dateLayout = "2006-01-02"

// DateKey formats a timestamp as the day key used throughout the store.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// SaveDay replaces the stored snapshot for the day's date. The write
// is transactional and lossless: section order, subtask order, tag
// order and the full state history survive a round-trip.
func (s *Store) SaveDay(day *core.Day) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save day: %w", err)
	}
	defer tx.Rollback()

	key := DateKey(day.Date)
	if _, err := tx.Exec(`INSERT OR IGNORE INTO days (date) VALUES (?)`, key); err != nil {
		return fmt.Errorf("record day %s: %w", key, err)
	}
	if _, err := tx.Exec(`DELETE FROM state_events WHERE day = ?`, key); err != nil {
		return fmt.Errorf("clear events for %s: %w", key, err)
	}
	if _, err := tx.Exec(`DELETE FROM entities WHERE day = ?`, key); err != nil {
		return fmt.Errorf("clear entities for %s: %w", key, err)
	}

	sections := []struct {
		name string
		list []*core.Entity
	}{
		{core.SectionActive.String(), day.Active},
		{core.SectionDone.String(), day.Done},
		{core.SectionArchived.String(), day.Archived},
	}
	for _, sec := range sections {
		for pos, t := range sec.list {
			if err := insertEntity(tx, key, "", sec.name, pos, t); err != nil {
				return err
			}
			for spos, sub := range t.Subtasks {
				if err := insertEntity(tx, key, t.ID, sec.name, spos, sub); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

func insertEntity(tx *sql.Tx, day, parentID, section string, pos int, e *core.Entity) error {
	var completed sql.NullString
	if e.CompletedAt != nil {
		completed = sql.NullString{String: e.CompletedAt.Format(time.RFC3339), Valid: true}
	}
	var parent sql.NullString
	if parentID != "" {
		parent = sql.NullString{String: parentID, Valid: true}
	}
	_, err := tx.Exec(`
		INSERT INTO entities (day, id, parent_id, section, position, title, notes, tags,
			status, estimate_secs, elapsed_secs, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		day, e.ID, parent, section, pos, e.Title, e.Notes, strings.Join(e.Tags, ","),
		e.Status.String(), int64(e.Estimate.Seconds()), int64(e.Elapsed.Seconds()),
		e.CreatedAt.Format(time.RFC3339), completed,
	)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", e.ID, err)
	}
	for seq, ev := range e.History {
		from := ""
		if !ev.Initial() {
			from = ev.From.String()
		}
		_, err := tx.Exec(`
			INSERT INTO state_events (day, entity_id, seq, at, from_status, to_status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			day, e.ID, seq, ev.At.Format(time.RFC3339), from, ev.To.String(),
		)
		if err != nil {
			return fmt.Errorf("insert event %s/%d: %w", e.ID, seq, err)
		}
	}
	return nil
}

// LoadDay reads the snapshot for the date, or core.ErrNotFound when
// the date was never saved.
func (s *Store) LoadDay(date time.Time) (*core.Day, error) {
	key := DateKey(date)
	var exists string
	err := s.db.QueryRow(`SELECT date FROM days WHERE date = ?`, key).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check day %s: %w", key, err)
	}

	day := &core.Day{Date: core.Midnight(date)}
	for _, sec := range []struct {
		section core.Section
		dest    *[]*core.Entity
	}{
		{core.SectionActive, &day.Active},
		{core.SectionDone, &day.Done},
		{core.SectionArchived, &day.Archived},
	} {
		list, err := s.loadEntities(key, sec.section.String(), "")
		if err != nil {
			return nil, err
		}
		for _, t := range list {
			subs, err := s.loadEntities(key, sec.section.String(), t.ID)
			if err != nil {
				return nil, err
			}
			t.Subtasks = subs
		}
		*sec.dest = list
	}
	return day, nil
}

func (s *Store) loadEntities(day, section, parentID string) ([]*core.Entity, error) {
	query := `
		SELECT id, title, notes, tags, status, estimate_secs, elapsed_secs,
			created_at, completed_at
		FROM entities
		WHERE day = ? AND section = ? AND parent_id IS NULL
		ORDER BY position`
	args := []any{day, section}
	if parentID != "" {
		query = strings.Replace(query, "parent_id IS NULL", "parent_id = ?", 1)
		args = append(args, parentID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []*core.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range out {
		history, err := s.loadHistory(day, e.ID)
		if err != nil {
			return nil, err
		}
		e.History = history
	}
	return out, nil
}

func scanEntity(rows *sql.Rows) (*core.Entity, error) {
	var (
		e         core.Entity
		tags      string
		status    string
		estimate  int64
		elapsed   int64
		createdAt string
		completed sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.Title, &e.Notes, &tags, &status,
		&estimate, &elapsed, &createdAt, &completed); err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}

	st, ok := core.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("entity %s: unknown status %q", e.ID, status)
	}
	e.Status = st
	if tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	e.Estimate = time.Duration(estimate) * time.Second
	e.Elapsed = time.Duration(elapsed) * time.Second

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("entity %s: parse created_at: %w", e.ID, err)
	}
	e.CreatedAt = created
	if completed.Valid {
		done, err := time.Parse(time.RFC3339, completed.String)
		if err != nil {
			return nil, fmt.Errorf("entity %s: parse completed_at: %w", e.ID, err)
		}
		e.CompletedAt = &done
	}
	return &e, nil
}

func (s *Store) loadHistory(day, entityID string) ([]core.StateEvent, error) {
	rows, err := s.db.Query(`
		SELECT at, from_status, to_status FROM state_events
		WHERE day = ? AND entity_id = ?
		ORDER BY seq`, day, entityID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []core.StateEvent
	for rows.Next() {
		var atStr, fromStr, toStr string
		if err := rows.Scan(&atStr, &fromStr, &toStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		at, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			return nil, fmt.Errorf("entity %s: parse event time: %w", entityID, err)
		}
		from := core.StatusNone
		if fromStr != "" {
			f, ok := core.ParseStatus(fromStr)
			if !ok {
				return nil, fmt.Errorf("entity %s: unknown from status %q", entityID, fromStr)
			}
			from = f
		}
		to, ok := core.ParseStatus(toStr)
		if !ok {
			return nil, fmt.Errorf("entity %s: unknown to status %q", entityID, toStr)
		}
		history = append(history, core.StateEvent{At: at, From: from, To: to})
	}
	return history, rows.Err()
}

// AppendToDay adds one entity to the end of a day's active list
// without touching the rest of the snapshot. Postpone uses this to
// hand a task to tomorrow.
func (s *Store) AppendToDay(date time.Time, e *core.Entity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	key := DateKey(date)
	if _, err := tx.Exec(`INSERT OR IGNORE INTO days (date) VALUES (?)`, key); err != nil {
		return fmt.Errorf("record day %s: %w", key, err)
	}

	var pos int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(position) + 1, 0) FROM entities
		WHERE day = ? AND section = ? AND parent_id IS NULL`,
		key, core.SectionActive.String()).Scan(&pos)
	if err != nil {
		return fmt.Errorf("next position for %s: %w", key, err)
	}

	if err := insertEntity(tx, key, "", core.SectionActive.String(), pos, e); err != nil {
		return err
	}
	for spos, sub := range e.Subtasks {
		if err := insertEntity(tx, key, e.ID, core.SectionActive.String(), spos, sub); err != nil {
			return err
		}
	}
	return tx.Commit()
}
