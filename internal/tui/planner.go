package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cadence-tui/cadence/internal/core"
)

type plannerModel struct {
	engine *core.Engine
	cfg    core.PlannerConfig
	width  int
	height int
	scroll int
}

func newPlannerModel(eng *core.Engine, cfg core.PlannerConfig) plannerModel {
	return plannerModel{engine: eng, cfg: cfg}
}

func (p *plannerModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p plannerModel) update(msg tea.Msg) (plannerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if p.scroll > 0 {
				p.scroll--
			}
		case key.Matches(msg, keys.Down):
			p.scroll++
		}
	}
	return p, nil
}

func (p plannerModel) view() string {
	now := time.Now()
	slots := core.PlanDay(p.engine.Day().Active, now, p.cfg)

	visible := p.height - 6
	if visible < 4 {
		visible = 4
	}
	maxScroll := max(0, len(slots)-visible)
	scroll := min(p.scroll, maxScroll)

	var rows []string
	rows = append(rows, titleStyle.Render("Planner"))
	rows = append(rows, "")

	labelWidth := p.width - 14
	if labelWidth < 10 {
		labelWidth = 10
	}

	for i := scroll; i < len(slots) && i < scroll+visible; i++ {
		slot := slots[i]
		rows = append(rows, p.renderSlot(slot, now, labelWidth))
	}
	if len(slots) > scroll+visible {
		rows = append(rows, mutedStyle.Render("  ..."))
	}

	return panelStyle.Width(p.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (p plannerModel) renderSlot(slot core.PlanSlot, now time.Time, labelWidth int) string {
	clock := slot.Start.Format("15:04")
	slotEnd := slot.Start.Add(p.cfg.SlotSize)

	marker := "  "
	clockStyle := mutedStyle
	if !now.Before(slot.Start) && now.Before(slotEnd) {
		marker = highlightStyle.Render("> ")
		clockStyle = highlightStyle
	}

	var cells []string
	for _, en := range slot.Entries {
		label := en.Label
		style := normalItemStyle
		switch en.Status {
		case core.StatusRunning:
			style = runningStyle
		case core.StatusPaused:
			style = pausedStyle
		}
		cells = append(cells, style.Render(label))
	}

	body := strings.Join(cells, mutedStyle.Render(" │ "))
	if body == "" {
		body = mutedStyle.Render("·")
	}
	body = truncate(body, labelWidth)

	return fmt.Sprintf("%s%s │ %s", marker, clockStyle.Render(clock), body)
}

// truncate cuts a rendered line to width, counting display cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
