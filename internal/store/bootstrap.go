package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// OpenEngine loads today's state and returns a ready engine. When the
// last persisted date is in the past it runs the day transition first:
// the old day is finalized through report and its unfinished work
// carries into today. Any running timers left by a hard exit are
// paused. Non-fatal problems (corrupt meta, failed report) come back
// as warnings; the engine is still usable.
//
// The reporter installed on the engine saves the outgoing day's final
// snapshot before running the report, so elapsed time accrued since
// the last save still reaches the historical record.
func OpenEngine(s *Store, now time.Time, report core.ReportFunc) (*core.Engine, []string, error) {
	var warnings []string

	settings, err := s.LoadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	cfg := core.Config{
		EstimateStep: settings.EstimateStep,
		UndoDepth:    settings.UndoDepth,
	}

	meta, err := s.LoadMeta()
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("meta unreadable, starting fresh: %v", err))
		meta = core.Meta{}
	}

	loadDate := core.Midnight(now)
	stale := !meta.LastDate.IsZero() && meta.LastDate.Before(loadDate)
	if stale {
		loadDate = meta.LastDate
	}

	day, err := s.LoadDay(loadDate)
	switch {
	case errors.Is(err, core.ErrNotFound):
		day = core.NewDay(loadDate)
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("day %s unreadable, starting empty: %v", DateKey(loadDate), err))
		day = core.NewDay(loadDate)
	}

	eng := core.NewEngine(day, meta, cfg)
	eng.SetReporter(finalizeDay(s, report))
	eng.CoerceRunning()

	if stale {
		if err := eng.Rollover(now); err != nil {
			warnings = append(warnings, fmt.Sprintf("report for %s failed: %v", DateKey(loadDate), err))
		}
		if err := s.SaveDay(eng.Day()); err != nil {
			return nil, nil, fmt.Errorf("save migrated day: %w", err)
		}
		if err := s.SaveMeta(eng.Meta()); err != nil {
			return nil, nil, fmt.Errorf("save migrated meta: %w", err)
		}
	}
	return eng, warnings, nil
}

func finalizeDay(s *Store, report core.ReportFunc) core.ReportFunc {
	return func(day *core.Day, modeTime map[core.Mode]time.Duration) error {
		if err := s.SaveDay(day); err != nil {
			return fmt.Errorf("save outgoing day: %w", err)
		}
		if report == nil {
			return nil
		}
		return report(day, modeTime)
	}
}
