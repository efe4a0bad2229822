package store

import (
	"fmt"
	"strconv"
	"time"
)

// Settings is the typed view of the settings table, seeded with
// defaults at migration.
type Settings struct {
	EstimateStep time.Duration
	PlannerSlot  time.Duration
	DayStartHour int
	DayEndHour   int
	UndoDepth    int
	IdleCheck    time.Duration
	ReportDir    string
}

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// LoadSettings reads the typed settings the engine and planner need.
func (s *Store) LoadSettings() (Settings, error) {
	out := Settings{}

	mins := func(key string) (time.Duration, error) {
		n, err := s.getInt(key)
		return time.Duration(n) * time.Minute, err
	}

	var err error
	if out.EstimateStep, err = mins("estimate_step_mins"); err != nil {
		return out, err
	}
	if out.PlannerSlot, err = mins("planner_slot_mins"); err != nil {
		return out, err
	}
	if out.DayStartHour, err = s.getInt("day_start_hour"); err != nil {
		return out, err
	}
	if out.DayEndHour, err = s.getInt("day_end_hour"); err != nil {
		return out, err
	}
	if out.UndoDepth, err = s.getInt("undo_depth"); err != nil {
		return out, err
	}
	if out.IdleCheck, err = mins("idle_check_mins"); err != nil {
		return out, err
	}
	if out.ReportDir, err = s.GetSetting("report_dir"); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) getInt(key string) (int, error) {
	v, err := s.GetSetting(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return n, nil
}
