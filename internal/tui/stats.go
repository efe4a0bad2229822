package tui

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cadence-tui/cadence/internal/core"
	"github.com/cadence-tui/cadence/internal/report"
)

type statsModel struct {
	engine *core.Engine
	width  int
	height int
	chart  barchart.Model
}

func newStatsModel(eng *core.Engine) statsModel {
	return statsModel{
		engine: eng,
		chart:  barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	if _, ok := msg.(tickMsg); ok {
		s.buildChart()
	}
	return s, nil
}

func (s *statsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 28 {
		chartHeight = 14
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	modeTime := s.engine.ModeTime()
	var bars []barchart.BarData
	for _, m := range core.AllModes() {
		hours := modeTime[m].Hours()
		color, ok := modeColors[m.String()]
		if !ok {
			color = colorSubtle
		}
		bars = append(bars, barchart.BarData{
			Label: m.String(),
			Values: []barchart.BarValue{{
				Name:  m.String(),
				Value: hours,
				Style: lipgloss.NewStyle().Foreground(color),
			}},
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) view() string {
	w := s.width - 4
	st := report.Collect(s.engine.Day())
	modeTime := s.engine.ModeTime()

	var total time.Duration
	for _, d := range modeTime {
		total += d
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Stats"), "  ",
		mutedStyle.Render(s.engine.Day().Date.Format("Jan 02, 2006")),
	)

	summary := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s  %s", mutedStyle.Render("Tracked:"), formatDuration(total)),
		fmt.Sprintf("%s  %s", mutedStyle.Render("On tasks:"), formatDuration(st.TotalElapsed)),
		fmt.Sprintf("%s  %d of %d", mutedStyle.Render("Completed:"), st.CompletedTasks, st.TotalTasks),
		fmt.Sprintf("%s  %d sessions, %d interruptions",
			mutedStyle.Render("Focus:"), st.Sessions, st.Interruptions),
	)

	chartTitle := mutedStyle.Render("Hours per mode")
	content := lipgloss.JoinVertical(lipgloss.Left,
		header, "", summary, "", chartTitle, s.chart.View(),
	)
	return panelStyle.Width(w).Render(content)
}
