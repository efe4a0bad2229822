package core

import "time"

// PlannerConfig fixes the planning window and granularity. Defaults
// match the settings the store seeds: 09:00 to 24:00 in 15-minute
// slots.
type PlannerConfig struct {
	StartHour int
	EndHour   int
	SlotSize  time.Duration
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.SlotSize <= 0 {
		c.SlotSize = 15 * time.Minute
	}
	if c.EndHour <= c.StartHour {
		c.StartHour = 9
		c.EndHour = 24
	}
	return c
}

// PlanEntry is one scheduled block on the grid.
type PlanEntry struct {
	ID     string
	Label  string
	Status Status
	Start  time.Time
	End    time.Time
}

// PlanSlot is one grid row. Entries overlapping the slot are listed in
// schedule order; more than one means side-by-side rendering.
type PlanSlot struct {
	Start   time.Time
	Entries []PlanEntry
}

// PlanDay lays active entities onto the day grid. Placement is
// sequential in list order: each block starts at the later of the
// previous block's end and the window start, and spans the estimate
// rounded up to whole slots. Tasks with subtasks contribute their
// subtasks instead, labeled "task > subtask". Pure function; nothing
// is mutated and the layout is recomputed on every call.
func PlanDay(active []*Entity, day time.Time, cfg PlannerConfig) []PlanSlot {
	cfg = cfg.withDefaults()
	base := Midnight(day)
	windowStart := base.Add(time.Duration(cfg.StartHour) * time.Hour)
	windowEnd := base.Add(time.Duration(cfg.EndHour) * time.Hour)

	var entries []PlanEntry
	cursor := windowStart
	place := func(id, label string, status Status, estimate time.Duration) {
		span := spanFor(estimate, cfg.SlotSize)
		start := cursor
		if start.Before(windowStart) {
			start = windowStart
		}
		end := start.Add(span)
		entries = append(entries, PlanEntry{
			ID: id, Label: label, Status: status, Start: start, End: end,
		})
		cursor = end
	}
	for _, t := range active {
		if len(t.Subtasks) > 0 {
			for _, s := range t.Subtasks {
				place(s.ID, t.Title+" > "+s.Title, s.Status, s.Estimate)
			}
			continue
		}
		place(t.ID, t.Title, t.Status, t.Estimate)
	}

	slotCount := int(windowEnd.Sub(windowStart) / cfg.SlotSize)
	slots := make([]PlanSlot, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slotStart := windowStart.Add(time.Duration(i) * cfg.SlotSize)
		slotEnd := slotStart.Add(cfg.SlotSize)
		slot := PlanSlot{Start: slotStart}
		for _, en := range entries {
			if en.Start.Before(slotEnd) && en.End.After(slotStart) {
				slot.Entries = append(slot.Entries, en)
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// spanFor rounds an estimate up to whole slots. A zero estimate still
// occupies one slot so the entity stays visible on the grid.
func spanFor(estimate, slot time.Duration) time.Duration {
	if estimate <= 0 {
		return slot
	}
	n := (estimate + slot - 1) / slot
	return n * slot
}
