package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS days (
		date TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS entities (
		day           TEXT NOT NULL,
		id            TEXT NOT NULL,
		parent_id     TEXT,
		section       TEXT NOT NULL,
		position      INTEGER NOT NULL,
		title         TEXT NOT NULL,
		notes         TEXT NOT NULL DEFAULT '',
		tags          TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		estimate_secs INTEGER NOT NULL DEFAULT 0,
		elapsed_secs  INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		completed_at  TEXT,
		PRIMARY KEY (day, id)
	);

	CREATE TABLE IF NOT EXISTS state_events (
		day         TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		at          TEXT NOT NULL,
		from_status TEXT NOT NULL DEFAULT '',
		to_status   TEXT NOT NULL,
		PRIMARY KEY (day, entity_id, seq)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('estimate_step_mins', '15'),
		('planner_slot_mins',  '15'),
		('day_start_hour',     '9'),
		('day_end_hour',       '24'),
		('undo_depth',         '10'),
		('idle_check_mins',    '30'),
		('report_dir',         '');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/cadence/cadence.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "cadence", "cadence.db"), nil
}
