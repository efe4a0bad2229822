package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cadence-tui/cadence/internal/core"
	"github.com/cadence-tui/cadence/internal/export"
	"github.com/cadence-tui/cadence/internal/report"
	"github.com/cadence-tui/cadence/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	store    *store.Store
	engine   *core.Engine
	settings store.Settings
	width    int
	height   int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	modePicking   bool
	modeCursor    int

	// Estimate-reached prompt. Extra hits queue behind the open one.
	hit        *core.EstimateHit
	hitQueue   []core.EstimateHit
	hitCursor  int
	idleAsking bool

	tasks   tasksModel
	planner plannerModel
	stats   statsModel

	help        help.Model
	status      string
	statusIsErr bool
	lastTick    time.Time
	lastInput   time.Time
}

func NewApp(s *store.Store, eng *core.Engine, settings store.Settings) App {
	h := help.New()
	h.ShowAll = false

	plannerCfg := core.PlannerConfig{
		StartHour: settings.DayStartHour,
		EndHour:   settings.DayEndHour,
		SlotSize:  settings.PlannerSlot,
	}

	now := time.Now()
	return App{
		store:      s,
		engine:     eng,
		settings:   settings,
		activeView: viewTasks,
		tasks:      newTasksModel(eng, s),
		planner:    newPlannerModel(eng, plannerCfg),
		stats:      newStatsModel(eng),
		help:       h,
		lastTick:   now,
		lastInput:  now,
	}
}

func (a App) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tasks.setSize(a.width, contentHeight)
		a.planner.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		a.lastInput = time.Now()

		// Overlays capture input before anything else.
		if a.hit != nil {
			return a.updateEstimatePrompt(msg)
		}
		if a.idleAsking {
			return a.updateIdlePrompt(msg)
		}
		if a.modePicking {
			return a.updateModePicker(msg)
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If the tasks form is capturing input, delegate first.
		if a.tasks.formActive {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Mode):
			a.modePicking = true
			a.modeCursor = int(a.engine.Mode())
			return a, nil
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, a.quit()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTasks
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewPlanner
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewStats
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 3
			return a, nil
		}

	case tickMsg:
		return a.tick(time.Time(msg))

	case statusMsg:
		if msg.text != "" {
			a.status = msg.text
			a.statusIsErr = msg.isError
		}
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusIsErr = false
		a.exportPicking = false
		return a, nil

	case reportDoneMsg:
		a.status = "Report written to " + msg.path
		a.statusIsErr = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// tick advances the engine clock and routes follow-up work: estimate
// prompts, the idle check and the midnight rollover.
func (a App) tick(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd()}

	delta := now.Sub(a.lastTick)
	a.lastTick = now
	if delta < 0 || delta > time.Minute {
		// A suspend gap is nobody's work time.
		delta = tickInterval
	}

	before := a.engine.Day().Date
	hits, rollErr := a.engine.Tick(now, delta)
	if !core.SameDay(before, a.engine.Day().Date) {
		if rollErr != nil {
			a.status = fmt.Sprintf("New day started. Finalizing yesterday failed: %v", rollErr)
			a.statusIsErr = true
		} else {
			a.status = "New day started. Yesterday's report is written"
			a.statusIsErr = false
		}
		cmds = append(cmds, a.tasks.save(""))
	}

	if len(hits) > 0 && a.hit == nil {
		a.hit = &hits[0]
		a.hitCursor = 0
		a.hitQueue = append(a.hitQueue, hits[1:]...)
	} else if len(hits) > 0 {
		a.hitQueue = append(a.hitQueue, hits...)
	}

	if a.shouldAskIdle(now) {
		a.idleAsking = true
	}

	var cmd tea.Cmd
	a.stats, cmd = a.stats.update(tickMsg(now))
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) shouldAskIdle(now time.Time) bool {
	if a.idleAsking || a.settings.IdleCheck <= 0 {
		return false
	}
	if a.engine.Mode() != core.ModeWorking {
		return false
	}
	if now.Sub(a.lastInput) < a.settings.IdleCheck {
		return false
	}
	return a.anyRunning()
}

func (a App) anyRunning() bool {
	for _, t := range a.engine.Day().Active {
		if t.Status == core.StatusRunning {
			return true
		}
		for _, s := range t.Subtasks {
			if s.Status == core.StatusRunning {
				return true
			}
		}
	}
	return false
}

func (a App) quit() tea.Cmd {
	if err := a.store.SaveDay(a.engine.Day()); err != nil {
		fmt.Fprintf(os.Stderr, "save day: %v\n", err)
	}
	if err := a.store.SaveMeta(a.engine.Meta()); err != nil {
		fmt.Fprintf(os.Stderr, "save meta: %v\n", err)
	}
	return tea.Quit
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewPlanner:
		a.planner, cmd = a.planner.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	}
	return a, cmd
}

// ============================================================
// Mode picker
// ============================================================

func (a App) updateModePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	modes := core.AllModes()
	switch {
	case key.Matches(msg, keys.Up):
		if a.modeCursor > 0 {
			a.modeCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.modeCursor < len(modes)-1 {
			a.modeCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.modePicking = false
		m := modes[a.modeCursor]
		a.engine.SetMode(m)
		a.status = fmt.Sprintf("Mode: %s %s", m.Symbol(), m)
		return a, a.tasks.save("")
	case key.Matches(msg, keys.Back):
		a.modePicking = false
	}
	return a, nil
}

func (a App) renderModePicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Context Mode"))
	rows = append(rows, "")
	modeTime := a.engine.ModeTime()
	for i, m := range core.AllModes() {
		cursor := "  "
		style := normalItemStyle
		if i == a.modeCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		current := " "
		if m == a.engine.Mode() {
			current = successStyle.Render("*")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s %-10s %s",
			cursor, current, m.Symbol(), m, formatShort(modeTime[m]))))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: switch  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// ============================================================
// Estimate-reached prompt
// ============================================================

var estimateChoices = []string{"Mark done", "Extend +30m", "Pause", "Postpone to tomorrow"}

func (a App) updateEstimatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.hitCursor > 0 {
			a.hitCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.hitCursor < len(estimateChoices)-1 {
			a.hitCursor++
		}
	case key.Matches(msg, keys.Enter):
		return a.resolveEstimatePrompt()
	case key.Matches(msg, keys.Back):
		// Dismiss without action; the signal stays consumed.
		a.nextHit()
		return a, nil
	}
	return a, nil
}

func (a App) resolveEstimatePrompt() (tea.Model, tea.Cmd) {
	id := a.hit.ID
	choice := a.hitCursor
	a.nextHit()

	var err error
	var note string
	switch choice {
	case 0:
		err = a.engine.MarkDone(id)
		note = "Done"
	case 1:
		err = a.engine.ExtendEstimate(id, 30*time.Minute)
		note = "Estimate extended"
	case 2:
		err = a.engine.Pause(id)
		note = "Paused"
	case 3:
		var ent *core.Entity
		ent, err = a.engine.Postpone(id)
		if err == nil {
			tomorrow := a.engine.Day().Date.AddDate(0, 0, 1)
			err = a.store.AppendToDay(tomorrow, ent)
			note = "Moved to tomorrow"
		}
	}
	if err != nil {
		return a, errStatus(err)
	}
	return a, a.tasks.save(note)
}

func (a *App) nextHit() {
	a.hit = nil
	a.hitCursor = 0
	if len(a.hitQueue) > 0 {
		a.hit = &a.hitQueue[0]
		a.hitQueue = a.hitQueue[1:]
	}
}

func (a App) renderEstimatePrompt() string {
	var rows []string
	rows = append(rows, warningStyle.Render("⏱ Estimate reached"))
	rows = append(rows, "")
	rows = append(rows, titleStyle.Render(a.hit.Title))
	rows = append(rows, mutedStyle.Render("Estimated "+formatShort(a.hit.Estimate)))
	rows = append(rows, "")
	for i, c := range estimateChoices {
		cursor := "  "
		style := normalItemStyle
		if i == a.hitCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+c))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: choose  esc: keep going"))

	return activePanelStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// ============================================================
// Idle prompt
// ============================================================

func (a App) updateIdlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		a.idleAsking = false
		return a, nil
	case "p", "n":
		a.idleAsking = false
		for _, t := range a.engine.Day().Active {
			if t.Status == core.StatusRunning {
				a.engine.Pause(t.ID)
			}
			for _, s := range t.Subtasks {
				if s.Status == core.StatusRunning {
					a.engine.Pause(s.ID)
				}
			}
		}
		return a, a.tasks.save("All timers paused")
	}
	return a, nil
}

func (a App) renderIdlePrompt() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		warningStyle.Render("Still working?"),
		"",
		mutedStyle.Render(fmt.Sprintf("No input for %s while timers run.", formatShort(a.settings.IdleCheck))),
		"",
		normalItemStyle.Render("  y/enter: yes, keep going"),
		normalItemStyle.Render("  p: pause all timers"),
	)
	return activePanelStyle.Width(a.width - 4).Render(content)
}

// ============================================================
// Export picker
// ============================================================

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 2 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Today")
	formats := []string{"CSV", "JSON", "Markdown report"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) doExport(format int) tea.Cmd {
	day := a.engine.Day()
	modeTime := a.engine.ModeTime()
	reportDir := a.reportDir()
	return func() tea.Msg {
		home, _ := os.UserHomeDir()
		dateStr := day.Date.Format("2006-01-02")

		switch format {
		case 0:
			path := filepath.Join(home, fmt.Sprintf("cadence-%s.csv", dateStr))
			if err := export.ToCSV(day, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}
		case 1:
			path := filepath.Join(home, fmt.Sprintf("cadence-%s.json", dateStr))
			if err := export.ToJSON(day, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}
		default:
			path, err := report.Generate(day, modeTime, reportDir)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Report error: %v", err), isError: true}
			}
			return reportDoneMsg{path: path}
		}
	}
}

func (a App) reportDir() string {
	if a.settings.ReportDir != "" {
		return a.settings.ReportDir
	}
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(cfg, "cadence", "reports")
}

// ============================================================
// Rendering
// ============================================================

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.tasks.view()
	case viewPlanner:
		content = a.planner.view()
	case viewStats:
		content = a.stats.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch {
	case a.hit != nil:
		content = a.renderEstimatePrompt()
	case a.idleAsking:
		content = a.renderIdlePrompt()
	case a.modePicking:
		content = a.renderModePicker()
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("cadence")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	mode := a.engine.Mode()
	badge := modeBadgeStyle.Foreground(modeColors[mode.String()]).
		Render(mode.Symbol() + " " + mode.String())

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	undo := ""
	if n := a.engine.UndoDepth(); n > 0 {
		undo = mutedStyle.Render(fmt.Sprintf(" undo:%d", n))
	}

	left := footerStyle.Render(helpView)
	right := badge + undo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
