package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

func sampleDay() *core.Day {
	at := testDate.Add(9 * time.Hour)

	task := core.NewEntity("write report", time.Hour, []string{"writing", "deep"}, at)
	task.Elapsed = 30 * time.Minute
	task.Notes = "draft then polish"
	sub := core.NewEntity("gather numbers", 15*time.Minute, nil, at)
	sub.Elapsed = 10 * time.Minute
	task.Subtasks = append(task.Subtasks, sub)

	done := core.NewEntity("inbox zero", 15*time.Minute, nil, at)
	done.Status = core.StatusDone
	done.Elapsed = 20 * time.Minute
	completedAt := at.Add(20 * time.Minute)
	done.CompletedAt = &completedAt

	return &core.Day{
		Date:   testDate,
		Active: []*core.Entity{task},
		Done:   []*core.Entity{done},
	}
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.csv")
	if err := ToCSV(sampleDay(), path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// header + task + subtask + done task
	if len(records) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(records))
	}

	header := records[0]
	if header[0] != "ID" || header[3] != "Title" || header[4] != "Status" {
		t.Fatalf("unexpected header: %v", header)
	}

	task := records[1]
	if task[3] != "write report" || task[1] != "ACTIVE" {
		t.Fatalf("task row = %v", task)
	}
	if task[5] != "writing deep" {
		t.Fatalf("tags = %q", task[5])
	}
	if task[7] != "1800" || task[8] != "00:30:00" {
		t.Fatalf("elapsed columns = %q / %q", task[7], task[8])
	}

	sub := records[2]
	if sub[2] != "write report" {
		t.Fatalf("subtask should carry parent title, got %q", sub[2])
	}

	done := records[3]
	if done[1] != "DONE" || done[4] != "DONE" {
		t.Fatalf("done row = %v", done)
	}
	if done[10] == "" {
		t.Fatal("done row should have a completion time")
	}
}

func TestToCSVEmptyDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ToCSV(core.NewDay(testDate), path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, _ := csv.NewReader(f).ReadAll()
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d rows", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	if err := ToCSV(core.NewDay(testDate), "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	day := core.NewDay(testDate)
	task := core.NewEntity(`task with "quotes", commas`, 0, nil, testDate)
	task.Notes = "line one\nline two"
	day.Active = append(day.Active, task)

	path := filepath.Join(t.TempDir(), "special.csv")
	if err := ToCSV(day, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("CSV should stay valid with special chars: %v", err)
	}
	if records[1][3] != `task with "quotes", commas` {
		t.Fatalf("title mangled: %q", records[1][3])
	}
	if records[1][11] != "line one\nline two" {
		t.Fatalf("notes mangled: %q", records[1][11])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.json")
	if err := ToJSON(sampleDay(), path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Date != "2026-03-10" {
		t.Fatalf("date = %q", result.Date)
	}
	if result.Count != 3 || len(result.Entities) != 3 {
		t.Fatalf("count = %d, entities = %d", result.Count, len(result.Entities))
	}

	task := result.Entities[0]
	if task.Title != "write report" || task.Section != "ACTIVE" {
		t.Fatalf("task entry = %+v", task)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "writing" {
		t.Fatalf("tags = %v", task.Tags)
	}
	if task.ElapsedSec != 1800 || task.Elapsed != "00:30:00" {
		t.Fatalf("elapsed = %d / %q", task.ElapsedSec, task.Elapsed)
	}

	sub := result.Entities[1]
	if sub.Parent != "write report" {
		t.Fatalf("subtask parent = %q", sub.Parent)
	}

	done := result.Entities[2]
	if done.Status != "DONE" || done.CompletedAt == "" {
		t.Fatalf("done entry = %+v", done)
	}
	if _, err := time.Parse(time.RFC3339, done.CompletedAt); err != nil {
		t.Fatalf("completed_at is not RFC3339: %q", done.CompletedAt)
	}
}

func TestToJSONEmptyDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := ToJSON(core.NewDay(testDate), path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)
	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
}

func TestToJSONBadPath(t *testing.T) {
	if err := ToJSON(core.NewDay(testDate), "/nonexistent/dir/file.json"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	ToJSON(core.NewDay(testDate), path)

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n") || !strings.Contains(string(data), "  ") {
		t.Fatal("JSON should be pretty-printed")
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
