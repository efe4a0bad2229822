package report

import (
	"sort"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// DayStats aggregates one finalized day for the report.
type DayStats struct {
	TotalTasks     int
	CompletedTasks int
	CarriedTasks   int
	ArchivedTasks  int

	TotalElapsed  time.Duration
	TotalEstimate time.Duration
	Sessions      int
	Interruptions int

	// Estimation accuracy over completed entities with an estimate.
	Overestimated  int
	Underestimated int
	OnTarget       int
	AvgAccuracy    float64 // elapsed/estimate averaged, 1.0 is perfect

	FastestDone *core.Entity
	LongestDone *core.Entity
	AvgDone     time.Duration

	Tags []TagStat
}

// TagStat is per-tag totals across every entity of the day.
type TagStat struct {
	Tag     string
	Count   int
	Elapsed time.Duration
}

// onTargetBand is how far elapsed may stray from the estimate and
// still count as on target.
const onTargetBand = 0.1

// Collect walks every entity of the day, subtasks included.
func Collect(day *core.Day) DayStats {
	st := DayStats{
		CompletedTasks: len(day.Done),
		CarriedTasks:   len(day.Active),
		ArchivedTasks:  len(day.Archived),
	}
	st.TotalTasks = st.CompletedTasks + st.CarriedTasks + st.ArchivedTasks

	tags := make(map[string]*TagStat)
	var accuracySum float64
	var accuracyN int
	var doneSum time.Duration
	var doneN int

	each(day, func(e *core.Entity, section core.Section) {
		st.TotalElapsed += e.Elapsed
		st.TotalEstimate += e.Estimate
		st.Sessions += e.SessionCount()
		st.Interruptions += e.InterruptionCount()

		for _, tag := range e.Tags {
			ts, ok := tags[tag]
			if !ok {
				ts = &TagStat{Tag: tag}
				tags[tag] = ts
			}
			ts.Count++
			ts.Elapsed += e.Elapsed
		}

		if section != core.SectionDone && e.Status != core.StatusDone {
			return
		}
		doneSum += e.Elapsed
		doneN++
		if st.FastestDone == nil || e.Elapsed < st.FastestDone.Elapsed {
			st.FastestDone = e
		}
		if st.LongestDone == nil || e.Elapsed > st.LongestDone.Elapsed {
			st.LongestDone = e
		}
		if e.Estimate <= 0 {
			return
		}
		ratio := float64(e.Elapsed) / float64(e.Estimate)
		accuracySum += ratio
		accuracyN++
		switch {
		case ratio > 1+onTargetBand:
			st.Underestimated++
		case ratio < 1-onTargetBand:
			st.Overestimated++
		default:
			st.OnTarget++
		}
	})

	if accuracyN > 0 {
		st.AvgAccuracy = accuracySum / float64(accuracyN)
	}
	if doneN > 0 {
		st.AvgDone = doneSum / time.Duration(doneN)
	}

	for _, ts := range tags {
		st.Tags = append(st.Tags, *ts)
	}
	sort.Slice(st.Tags, func(i, j int) bool {
		if st.Tags[i].Elapsed != st.Tags[j].Elapsed {
			return st.Tags[i].Elapsed > st.Tags[j].Elapsed
		}
		return st.Tags[i].Tag < st.Tags[j].Tag
	})
	return st
}

func each(day *core.Day, fn func(*core.Entity, core.Section)) {
	walk := func(list []*core.Entity, section core.Section) {
		for _, t := range list {
			fn(t, section)
			for _, s := range t.Subtasks {
				fn(s, section)
			}
		}
	}
	walk(day.Active, core.SectionActive)
	walk(day.Done, core.SectionDone)
	walk(day.Archived, core.SectionArchived)
}
