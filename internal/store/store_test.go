package store

import (
	"errors"
	"testing"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildDay assembles a day with a worked task, a subtask, a done task
// and an archived task, exercising every persisted field.
func buildDay(t *testing.T) *core.Day {
	t.Helper()
	at := testDate.Add(9 * time.Hour)

	task := core.NewEntity("write draft", 90*time.Minute, []string{"deep", "writing"}, at)
	task.Notes = "outline first"
	task.Elapsed = 25 * time.Minute
	sub := core.NewEntity("collect sources", 30*time.Minute, nil, at.Add(time.Minute))
	task.Subtasks = append(task.Subtasks, sub)

	done := core.NewEntity("standup", 15*time.Minute, []string{"meeting"}, at)
	completedAt := at.Add(20 * time.Minute)
	done.Status = core.StatusDone
	done.CompletedAt = &completedAt
	done.History = append(done.History,
		core.StateEvent{At: at.Add(5 * time.Minute), From: core.StatusIdle, To: core.StatusRunning},
		core.StateEvent{At: completedAt, From: core.StatusRunning, To: core.StatusDone},
	)

	archived := core.NewEntity("maybe later", 0, nil, at)

	return &core.Day{
		Date:     testDate,
		Active:   []*core.Entity{task},
		Done:     []*core.Entity{done},
		Archived: []*core.Entity{archived},
	}
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Should have run migration v1
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/cadence.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings.EstimateStep != 15*time.Minute {
		t.Fatalf("estimate step = %v, want 15m", settings.EstimateStep)
	}
	if settings.DayStartHour != 9 || settings.DayEndHour != 24 {
		t.Fatalf("day window = %d-%d, want 9-24", settings.DayStartHour, settings.DayEndHour)
	}
	if settings.UndoDepth != 10 {
		t.Fatalf("undo depth = %d, want 10", settings.UndoDepth)
	}
}

// ============================================================
// Day round-trip
// ============================================================

func TestSaveLoadDayRoundTrip(t *testing.T) {
	s := newTestStore(t)
	day := buildDay(t)
	if err := s.SaveDay(day); err != nil {
		t.Fatalf("save day: %v", err)
	}

	got, err := s.LoadDay(testDate)
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if len(got.Active) != 1 || len(got.Done) != 1 || len(got.Archived) != 1 {
		t.Fatalf("sections = %d/%d/%d, want 1/1/1",
			len(got.Active), len(got.Done), len(got.Archived))
	}

	task := got.Active[0]
	want := day.Active[0]
	if task.ID != want.ID || task.Title != want.Title || task.Notes != want.Notes {
		t.Fatalf("task fields lost: %+v", task)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "deep" || task.Tags[1] != "writing" {
		t.Fatalf("tag order lost: %v", task.Tags)
	}
	if task.Estimate != 90*time.Minute || task.Elapsed != 25*time.Minute {
		t.Fatalf("durations lost: %v / %v", task.Estimate, task.Elapsed)
	}
	if len(task.Subtasks) != 1 || task.Subtasks[0].Title != "collect sources" {
		t.Fatalf("subtask lost: %+v", task.Subtasks)
	}

	done := got.Done[0]
	if done.Status != core.StatusDone {
		t.Fatalf("done status = %s", done.Status)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(*day.Done[0].CompletedAt) {
		t.Fatal("CompletedAt lost")
	}
	if len(done.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(done.History))
	}
	if !done.History[0].Initial() {
		t.Fatal("creation event lost its marker")
	}
	if done.History[2].From != core.StatusRunning || done.History[2].To != core.StatusDone {
		t.Fatalf("history order lost: %+v", done.History)
	}
}

func TestSaveDayReplacesSnapshot(t *testing.T) {
	s := newTestStore(t)
	day := buildDay(t)
	if err := s.SaveDay(day); err != nil {
		t.Fatalf("save: %v", err)
	}

	day.Active = nil
	if err := s.SaveDay(day); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := s.LoadDay(testDate)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Active) != 0 {
		t.Fatal("save must replace, not merge")
	}
}

func TestLoadDayNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadDay(testDate); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendToDay(t *testing.T) {
	s := newTestStore(t)
	tomorrow := testDate.AddDate(0, 0, 1)

	first := core.NewEntity("carried", 30*time.Minute, nil, testDate)
	if err := s.AppendToDay(tomorrow, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	second := core.NewEntity("also carried", 0, nil, testDate)
	if err := s.AppendToDay(tomorrow, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.LoadDay(tomorrow)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Active) != 2 {
		t.Fatalf("active = %d, want 2", len(got.Active))
	}
	if got.Active[0].ID != first.ID || got.Active[1].ID != second.ID {
		t.Fatal("append order lost")
	}
}

// ============================================================
// Meta round-trip
// ============================================================

func TestMetaRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := core.Meta{
		Mode: core.ModeLunch,
		ModeTime: map[core.Mode]time.Duration{
			core.ModeWorking: 2 * time.Hour,
			core.ModeLunch:   30 * time.Minute,
		},
		AutoPaused: []string{"id-a", "id-b"},
		LastDate:   testDate,
	}
	if err := s.SaveMeta(in); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	got, err := s.LoadMeta()
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if got.Mode != core.ModeLunch {
		t.Fatalf("mode = %s, want Lunch", got.Mode)
	}
	if got.ModeTime[core.ModeWorking] != 2*time.Hour {
		t.Fatalf("working time = %v", got.ModeTime[core.ModeWorking])
	}
	if len(got.AutoPaused) != 2 || got.AutoPaused[0] != "id-a" {
		t.Fatalf("auto-paused = %v", got.AutoPaused)
	}
	if !core.SameDay(got.LastDate, testDate) {
		t.Fatalf("last date = %v", got.LastDate)
	}
}

func TestLoadMetaFreshDatabase(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadMeta()
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if got.Mode != core.ModeWorking || !got.LastDate.IsZero() {
		t.Fatalf("fresh meta should be zero, got %+v", got)
	}
}

// ============================================================
// Startup bootstrap
// ============================================================

func TestOpenEngineFreshStart(t *testing.T) {
	s := newTestStore(t)
	eng, warnings, err := OpenEngine(s, testDate.Add(9*time.Hour), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !core.SameDay(eng.Day().Date, testDate) {
		t.Fatalf("day = %v", eng.Day().Date)
	}
	if len(eng.Day().Active) != 0 {
		t.Fatal("fresh start should be empty")
	}
}

func TestOpenEngineSameDayCoercesRunning(t *testing.T) {
	s := newTestStore(t)
	day := core.NewDay(testDate)
	task := core.NewEntity("task", 0, nil, testDate.Add(9*time.Hour))
	task.Status = core.StatusRunning
	task.History = append(task.History, core.StateEvent{
		At: testDate.Add(9 * time.Hour), From: core.StatusIdle, To: core.StatusRunning,
	})
	day.Active = append(day.Active, task)
	if err := s.SaveDay(day); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveMeta(core.Meta{Mode: core.ModeWorking, LastDate: testDate}); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	eng, _, err := OpenEngine(s, testDate.Add(10*time.Hour), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got := eng.Day().Active[0]
	if got.Status != core.StatusPaused {
		t.Fatalf("status = %s, want PAUSED after restart", got.Status)
	}
}

func TestOpenEngineMigratesStaleDay(t *testing.T) {
	s := newTestStore(t)
	day := buildDay(t)
	if err := s.SaveDay(day); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveMeta(core.Meta{
		Mode:     core.ModeWorking,
		ModeTime: map[core.Mode]time.Duration{core.ModeWorking: time.Hour},
		LastDate: testDate,
	}); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	var reportedDate time.Time
	report := func(d *core.Day, mt map[core.Mode]time.Duration) error {
		reportedDate = d.Date
		return nil
	}
	today := testDate.AddDate(0, 0, 3).Add(8 * time.Hour)
	eng, warnings, err := OpenEngine(s, today, report)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if !core.SameDay(eng.Day().Date, today) {
		t.Fatalf("day = %v, want today", eng.Day().Date)
	}
	if len(eng.Day().Active) != 1 || eng.Day().Active[0].Title != "write draft" {
		t.Fatal("unfinished task should carry into today")
	}
	if len(eng.Day().Done) != 0 {
		t.Fatal("done tasks stay with the old day")
	}
	if !core.SameDay(reportedDate, testDate) {
		t.Fatalf("report generated for %v, want the stale day", reportedDate)
	}
	if mt := eng.ModeTime(); len(mt) != 0 {
		t.Fatalf("mode time should reset, got %v", mt)
	}

	// Today's snapshot and meta were persisted by the migration.
	persisted, err := s.LoadDay(today)
	if err != nil {
		t.Fatalf("load migrated day: %v", err)
	}
	if len(persisted.Active) != 1 {
		t.Fatal("migrated day not persisted")
	}
	meta, err := s.LoadMeta()
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if !core.SameDay(meta.LastDate, today) {
		t.Fatalf("meta last date = %v, want today", meta.LastDate)
	}
}

func TestRolloverPersistsOutgoingDay(t *testing.T) {
	s := newTestStore(t)
	eng, _, err := OpenEngine(s, testDate.Add(9*time.Hour), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	task := eng.AddTask("evening work", time.Hour, nil)
	task.Elapsed = 40 * time.Minute

	// Midnight passes without any save-triggering mutation in between.
	if err := eng.Rollover(testDate.AddDate(0, 0, 1).Add(time.Minute)); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	old, err := s.LoadDay(testDate)
	if err != nil {
		t.Fatalf("load outgoing day: %v", err)
	}
	if len(old.Active) != 1 {
		t.Fatal("outgoing day snapshot should be written at rollover")
	}
	if old.Active[0].Elapsed != 40*time.Minute {
		t.Fatalf("outgoing snapshot elapsed = %v, want the final 40m", old.Active[0].Elapsed)
	}
}

func TestOpenEngineReportFailureIsWarning(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDay(buildDay(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveMeta(core.Meta{LastDate: testDate}); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	report := func(*core.Day, map[core.Mode]time.Duration) error {
		return errors.New("no disk")
	}
	eng, warnings, err := OpenEngine(s, testDate.AddDate(0, 0, 1).Add(time.Hour), report)
	if err != nil {
		t.Fatalf("open must not fail on report error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	if eng == nil || len(eng.Day().Active) != 1 {
		t.Fatal("migration must complete despite report failure")
	}
}
