package tui

import (
	"fmt"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewPlanner
	viewStats
)

var viewNames = []string{"Tasks", "Planner", "Stats"}

// tickInterval drives the timers and keeps the display fresh.
const tickInterval = 250 * time.Millisecond

// --- Messages ---

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type reportDoneMsg struct {
	path string
}

type editorFinishedMsg struct {
	id   string
	path string
	err  error
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatShort renders a duration the way list rows show it: "1h30m"
// or "45m".
func formatShort(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func statusGlyph(s core.Status) string {
	switch s {
	case core.StatusRunning:
		return "●"
	case core.StatusPaused:
		return "◐"
	case core.StatusDone:
		return "✓"
	default:
		return "○"
	}
}
