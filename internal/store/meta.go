package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// Meta keys. ModeTime and the auto-pause set are stored as JSON
// values; everything else is a plain string.
const (
	metaMode       = "mode"
	metaModeTime   = "mode_time"
	metaAutoPaused = "auto_paused"
	metaLastDate   = "last_date"
)

// SaveMeta persists the day-wide engine state.
func (s *Store) SaveMeta(m core.Meta) error {
	modeTime := make(map[string]int64, len(m.ModeTime))
	for mode, d := range m.ModeTime {
		modeTime[mode.String()] = int64(d.Seconds())
	}
	mtJSON, err := json.Marshal(modeTime)
	if err != nil {
		return fmt.Errorf("marshal mode time: %w", err)
	}
	apJSON, err := json.Marshal(m.AutoPaused)
	if err != nil {
		return fmt.Errorf("marshal auto-paused: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save meta: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		metaMode:       m.Mode.String(),
		metaModeTime:   string(mtJSON),
		metaAutoPaused: string(apJSON),
		metaLastDate:   DateKey(m.LastDate),
	}
	for k, v := range pairs {
		if _, err := tx.Exec(
			`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v,
		); err != nil {
			return fmt.Errorf("save meta %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// LoadMeta reads the persisted day-wide state. A fresh database yields
// the zero Meta (Working mode, no accrual, zero LastDate) with no
// error; malformed values fail with a wrapped error so the caller can
// fall back to defaults deliberately.
func (s *Store) LoadMeta() (core.Meta, error) {
	m := core.Meta{ModeTime: make(map[core.Mode]time.Duration)}

	get := func(key string) (string, bool, error) {
		var v string
		err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("read meta %q: %w", key, err)
		}
		return v, true, nil
	}

	if v, ok, err := get(metaMode); err != nil {
		return m, err
	} else if ok {
		mode, valid := core.ParseMode(v)
		if !valid {
			return m, fmt.Errorf("meta: unknown mode %q", v)
		}
		m.Mode = mode
	}

	if v, ok, err := get(metaModeTime); err != nil {
		return m, err
	} else if ok {
		var raw map[string]int64
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return m, fmt.Errorf("meta: unmarshal mode time: %w", err)
		}
		for name, secs := range raw {
			mode, valid := core.ParseMode(name)
			if !valid {
				return m, fmt.Errorf("meta: unknown mode %q in mode time", name)
			}
			m.ModeTime[mode] = time.Duration(secs) * time.Second
		}
	}

	if v, ok, err := get(metaAutoPaused); err != nil {
		return m, err
	} else if ok {
		if err := json.Unmarshal([]byte(v), &m.AutoPaused); err != nil {
			return m, fmt.Errorf("meta: unmarshal auto-paused: %w", err)
		}
	}

	if v, ok, err := get(metaLastDate); err != nil {
		return m, err
	} else if ok {
		d, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return m, fmt.Errorf("meta: parse last date: %w", err)
		}
		m.LastDate = d
	}
	return m, nil
}
