package core

import (
	"testing"
	"time"
)

func planAt(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.Local)
}

// ============================================================
// Sequential placement
// ============================================================

func TestPlanDaySequentialPlacement(t *testing.T) {
	active := []*Entity{
		NewEntity("first", 30*time.Minute, nil, testDay),
		NewEntity("second", 30*time.Minute, nil, testDay),
	}
	slots := PlanDay(active, testDay, PlannerConfig{})

	if len(slots) != 60 {
		t.Fatalf("expected 60 slots for 09:00-24:00, got %d", len(slots))
	}
	if !slots[0].Start.Equal(planAt(9, 0)) {
		t.Fatalf("grid should start at 09:00, got %v", slots[0].Start)
	}

	// first occupies 09:00-09:30, second 09:30-10:00.
	for i, want := range []string{"first", "first", "second", "second"} {
		if len(slots[i].Entries) != 1 || slots[i].Entries[0].Label != want {
			t.Fatalf("slot %d = %v, want %q", i, slots[i].Entries, want)
		}
	}
	if len(slots[4].Entries) != 0 {
		t.Fatalf("slot at 10:00 should be free, got %v", slots[4].Entries)
	}
}

func TestPlanDayRoundsSpanUpToWholeSlots(t *testing.T) {
	active := []*Entity{NewEntity("odd", 20*time.Minute, nil, testDay)}
	slots := PlanDay(active, testDay, PlannerConfig{})

	// 20 minutes rounds up to two 15-minute slots.
	if len(slots[0].Entries) != 1 || len(slots[1].Entries) != 1 {
		t.Fatal("20m estimate should span two slots")
	}
	if len(slots[2].Entries) != 0 {
		t.Fatal("20m estimate should not reach a third slot")
	}
}

func TestPlanDayZeroEstimateStaysVisible(t *testing.T) {
	active := []*Entity{NewEntity("quick", 0, nil, testDay)}
	slots := PlanDay(active, testDay, PlannerConfig{})
	if len(slots[0].Entries) != 1 {
		t.Fatal("zero-estimate entity should still occupy one slot")
	}
}

// ============================================================
// Subtask scheduling
// ============================================================

func TestPlanDaySchedulesSubtasksInPlaceOfParent(t *testing.T) {
	parent := NewEntity("parent", 2*time.Hour, nil, testDay)
	parent.Subtasks = append(parent.Subtasks,
		NewEntity("one", 15*time.Minute, nil, testDay),
		NewEntity("two", 15*time.Minute, nil, testDay),
	)
	slots := PlanDay([]*Entity{parent}, testDay, PlannerConfig{})

	if got := slots[0].Entries[0].Label; got != "parent > one" {
		t.Fatalf("slot 0 label = %q", got)
	}
	if got := slots[1].Entries[0].Label; got != "parent > two" {
		t.Fatalf("slot 1 label = %q", got)
	}
	for _, en := range slots[2].Entries {
		if en.Label == "parent" {
			t.Fatal("parent must not be scheduled alongside its subtasks")
		}
	}
}

// ============================================================
// Purity
// ============================================================

func TestPlanDayDoesNotMutate(t *testing.T) {
	e := NewEntity("task", 45*time.Minute, nil, testDay)
	PlanDay([]*Entity{e}, testDay, PlannerConfig{})
	PlanDay([]*Entity{e}, testDay, PlannerConfig{})
	if e.Estimate != 45*time.Minute || e.Elapsed != 0 || e.Status != StatusIdle {
		t.Fatal("planner must not mutate entities")
	}
	if len(e.History) != 1 {
		t.Fatal("planner must not touch history")
	}
}
