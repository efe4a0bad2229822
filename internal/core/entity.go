package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StateEvent is one entry in an entity's append-only status history.
// From is StatusNone for the creation event.
type StateEvent struct {
	At   time.Time
	From Status
	To   Status
}

// Initial reports whether the event records the entity's creation.
func (ev StateEvent) Initial() bool {
	return ev.From == StatusNone
}

// Entity is a task or subtask. Tasks own their subtasks (one level
// deep); a subtask never has subtasks of its own. Estimate and Elapsed
// are independent fields, never derived from each other or from the
// subtask sums.
type Entity struct {
	ID          string
	Title       string
	Notes       string
	Tags        []string
	Status      Status
	Estimate    time.Duration
	Elapsed     time.Duration
	CreatedAt   time.Time
	CompletedAt *time.Time
	History     []StateEvent
	Subtasks    []*Entity

	// estimateHit suppresses repeat estimate-reached signals until the
	// estimate is raised back above the elapsed time.
	estimateHit bool
}

// NewEntity creates an Idle entity with a fresh ID and an initial
// history event stamped at now.
func NewEntity(title string, estimate time.Duration, tags []string, now time.Time) *Entity {
	e := &Entity{
		ID:        uuid.NewString(),
		Title:     title,
		Tags:      NormalizeTags(tags),
		Status:    StatusIdle,
		Estimate:  estimate,
		CreatedAt: now,
	}
	e.History = append(e.History, StateEvent{At: now, From: StatusNone, To: StatusIdle})
	return e
}

// transition is the only way status changes. It appends a history
// event so the last event's To always matches Status.
func (e *Entity) transition(to Status, now time.Time) {
	from := e.Status
	e.Status = to
	e.History = append(e.History, StateEvent{At: now, From: from, To: to})
}

// Clone returns a deep copy, including history and subtasks.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	c.History = append([]StateEvent(nil), e.History...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	c.Subtasks = nil
	for _, s := range e.Subtasks {
		c.Subtasks = append(c.Subtasks, s.Clone())
	}
	return &c
}

// AdjustEstimate moves the estimate by delta, clamping at min.
func (e *Entity) AdjustEstimate(delta, min time.Duration) {
	e.Estimate += delta
	if e.Estimate < min {
		e.Estimate = min
	}
	if e.Estimate > e.Elapsed {
		e.estimateHit = false
	}
}

// SubtaskTotals sums subtask estimates and elapsed time. The sums are
// informational; the parent's own fields are not touched.
func (e *Entity) SubtaskTotals() (estimate, elapsed time.Duration) {
	for _, s := range e.Subtasks {
		estimate += s.Estimate
		elapsed += s.Elapsed
	}
	return estimate, elapsed
}

// ============================================================
// History analytics
// ============================================================

// TimeInState derives from history how long the entity has spent in
// each of Running, Paused and Idle. The open interval in the current
// status counts through now.
func (e *Entity) TimeInState(now time.Time) (running, paused, idle time.Duration) {
	for i, ev := range e.History {
		end := now
		if i+1 < len(e.History) {
			end = e.History[i+1].At
		}
		d := end.Sub(ev.At)
		if d < 0 {
			continue
		}
		switch ev.To {
		case StatusRunning:
			running += d
		case StatusPaused:
			paused += d
		case StatusIdle:
			idle += d
		}
	}
	return running, paused, idle
}

// SessionCount counts distinct starts, resumes included.
func (e *Entity) SessionCount() int {
	n := 0
	for _, ev := range e.History {
		if ev.To == StatusRunning {
			n++
		}
	}
	return n
}

// InterruptionCount counts Running to Paused transitions.
func (e *Entity) InterruptionCount() int {
	n := 0
	for _, ev := range e.History {
		if ev.From == StatusRunning && ev.To == StatusPaused {
			n++
		}
	}
	return n
}

// NormalizeTags trims, drops empties and dedupes while preserving
// first-seen order.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
