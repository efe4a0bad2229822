package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

func sampleDay(t *testing.T) *core.Day {
	t.Helper()
	at := testDate.Add(9 * time.Hour)

	done := core.NewEntity("review pull request", 30*time.Minute, []string{"review"}, at)
	done.Elapsed = 45 * time.Minute
	completedAt := at.Add(45 * time.Minute)
	done.Status = core.StatusDone
	done.CompletedAt = &completedAt
	done.History = append(done.History,
		core.StateEvent{At: at, From: core.StatusIdle, To: core.StatusRunning},
		core.StateEvent{At: at.Add(20 * time.Minute), From: core.StatusRunning, To: core.StatusPaused},
		core.StateEvent{At: at.Add(25 * time.Minute), From: core.StatusPaused, To: core.StatusRunning},
		core.StateEvent{At: completedAt, From: core.StatusRunning, To: core.StatusDone},
	)

	carried := core.NewEntity("write design notes", time.Hour, []string{"writing"}, at)
	carried.Elapsed = 10 * time.Minute

	return &core.Day{
		Date:   testDate,
		Active: []*core.Entity{carried},
		Done:   []*core.Entity{done},
	}
}

func sampleModeTime() map[core.Mode]time.Duration {
	return map[core.Mode]time.Duration{
		core.ModeWorking: 3 * time.Hour,
		core.ModeLunch:   time.Hour,
	}
}

// ============================================================
// Aggregation
// ============================================================

func TestCollect(t *testing.T) {
	st := Collect(sampleDay(t))

	if st.TotalTasks != 2 || st.CompletedTasks != 1 || st.CarriedTasks != 1 {
		t.Fatalf("counts = %d/%d/%d", st.TotalTasks, st.CompletedTasks, st.CarriedTasks)
	}
	if st.TotalElapsed != 55*time.Minute {
		t.Fatalf("total elapsed = %v, want 55m", st.TotalElapsed)
	}
	if st.Sessions != 2 {
		t.Fatalf("sessions = %d, want 2", st.Sessions)
	}
	if st.Interruptions != 1 {
		t.Fatalf("interruptions = %d, want 1", st.Interruptions)
	}
	// 45m spent on a 30m estimate is an underestimate.
	if st.Underestimated != 1 || st.Overestimated != 0 || st.OnTarget != 0 {
		t.Fatalf("accuracy buckets = %d/%d/%d",
			st.Overestimated, st.Underestimated, st.OnTarget)
	}
	if st.AvgAccuracy != 1.5 {
		t.Fatalf("avg accuracy = %v, want 1.5", st.AvgAccuracy)
	}
	if len(st.Tags) != 2 {
		t.Fatalf("tags = %v", st.Tags)
	}
	if st.Tags[0].Tag != "review" {
		t.Fatalf("tags should sort by elapsed, got %v", st.Tags)
	}
}

// ============================================================
// Rendering and file output
// ============================================================

func TestRenderSections(t *testing.T) {
	body := Render(sampleDay(t), sampleModeTime())

	for _, want := range []string{
		"# Daily Report",
		"## Summary",
		"## Context Modes",
		"## Time & Productivity",
		"## Estimation Accuracy",
		"## Task Completion",
		"## Tag Analysis",
		"## Tasks Breakdown",
		"review pull request",
		"write design notes",
		"Working: 3h 00m (75%)",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q\n%s", want, body)
		}
	}
}

func TestGenerateWritesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	day := sampleDay(t)

	path, err := Generate(day, sampleModeTime(), dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := filepath.Join(dir, "report-2026-03-10.md")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	// Generating again for the same date overwrites in place.
	day.Done[0].Title = "review pull request again"
	if _, err := Generate(day, sampleModeTime(), dir); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "review pull request again") {
		t.Fatal("second generate should replace the file")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one report file, got %d", len(entries))
	}
}

func TestGenerateCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")
	if _, err := Generate(sampleDay(t), nil, dir); err != nil {
		t.Fatalf("generate: %v", err)
	}
}
