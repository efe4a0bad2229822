package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// Generate writes the markdown report for a finalized day into dir as
// report-YYYY-MM-DD.md, overwriting any earlier report for the same
// date. It returns the written path.
func Generate(day *core.Day, modeTime map[core.Mode]time.Duration, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report-%s.md", day.Date.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(Render(day, modeTime)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Render produces the report body.
func Render(day *core.Day, modeTime map[core.Mode]time.Duration) string {
	st := Collect(day)
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Report - %s\n\n", day.Date.Format("Monday, January 2 2006"))

	// ---- Summary ----
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Tasks completed: **%d** of %d\n", st.CompletedTasks, st.TotalTasks)
	fmt.Fprintf(&b, "- Carried to next day: %d\n", st.CarriedTasks)
	fmt.Fprintf(&b, "- Archived: %d\n", st.ArchivedTasks)
	fmt.Fprintf(&b, "- Time on tasks: %s (estimated %s)\n\n",
		fmtDur(st.TotalElapsed), fmtDur(st.TotalEstimate))

	// ---- Context modes ----
	b.WriteString("## Context Modes\n\n")
	var modeTotal time.Duration
	for _, d := range modeTime {
		modeTotal += d
	}
	if modeTotal == 0 {
		b.WriteString("No mode time recorded.\n\n")
	} else {
		for _, m := range core.AllModes() {
			d := modeTime[m]
			if d == 0 {
				continue
			}
			fmt.Fprintf(&b, "- %s %s: %s (%.0f%%)\n",
				m.Symbol(), m, fmtDur(d), 100*float64(d)/float64(modeTotal))
		}
		b.WriteString("\n")
	}

	// ---- Time & productivity ----
	b.WriteString("## Time & Productivity\n\n")
	fmt.Fprintf(&b, "- Work sessions: %d\n", st.Sessions)
	fmt.Fprintf(&b, "- Interruptions: %d\n\n", st.Interruptions)

	// ---- Estimation accuracy ----
	b.WriteString("## Estimation Accuracy\n\n")
	if st.Overestimated+st.Underestimated+st.OnTarget == 0 {
		b.WriteString("No completed tasks with estimates.\n\n")
	} else {
		fmt.Fprintf(&b, "- On target: %d\n", st.OnTarget)
		fmt.Fprintf(&b, "- Underestimated: %d\n", st.Underestimated)
		fmt.Fprintf(&b, "- Overestimated: %d\n", st.Overestimated)
		fmt.Fprintf(&b, "- Average accuracy: %.0f%% of estimate\n\n", st.AvgAccuracy*100)
	}

	// ---- Task completion ----
	b.WriteString("## Task Completion\n\n")
	if st.CompletedTasks == 0 {
		b.WriteString("Nothing completed today.\n\n")
	} else {
		if st.FastestDone != nil {
			fmt.Fprintf(&b, "- Fastest: %s (%s)\n", st.FastestDone.Title, fmtDur(st.FastestDone.Elapsed))
		}
		if st.LongestDone != nil {
			fmt.Fprintf(&b, "- Longest: %s (%s)\n", st.LongestDone.Title, fmtDur(st.LongestDone.Elapsed))
		}
		fmt.Fprintf(&b, "- Average: %s\n\n", fmtDur(st.AvgDone))
	}

	// ---- Tag analysis ----
	b.WriteString("## Tag Analysis\n\n")
	if len(st.Tags) == 0 {
		b.WriteString("No tags in use.\n\n")
	} else {
		for _, ts := range st.Tags {
			fmt.Fprintf(&b, "- #%s: %d task(s), %s\n", ts.Tag, ts.Count, fmtDur(ts.Elapsed))
		}
		b.WriteString("\n")
	}

	// ---- Breakdown ----
	b.WriteString("## Tasks Breakdown\n\n")
	writeSection(&b, "Completed", day.Done)
	writeSection(&b, "Unfinished", day.Active)
	writeSection(&b, "Archived", day.Archived)

	return b.String()
}

func writeSection(b *strings.Builder, title string, list []*core.Entity) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, t := range list {
		writeEntity(b, t, 0)
	}
	b.WriteString("\n")
}

func writeEntity(b *strings.Builder, e *core.Entity, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s- [%s] %s - %s", indent, e.Status, e.Title, fmtDur(e.Elapsed))
	if e.Estimate > 0 {
		line += fmt.Sprintf(" / %s", fmtDur(e.Estimate))
	}
	if len(e.Tags) > 0 {
		line += " (#" + strings.Join(e.Tags, " #") + ")"
	}
	b.WriteString(line + "\n")
	for _, s := range e.Subtasks {
		writeEntity(b, s, depth+1)
	}
}

func fmtDur(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
