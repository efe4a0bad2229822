package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cadence-tui/cadence/internal/core"
	"github.com/cadence-tui/cadence/internal/report"
	"github.com/cadence-tui/cadence/internal/store"
	"github.com/cadence-tui/cadence/internal/tui"
)

func main() {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	settings, err := s.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading settings: %v\n", err)
		os.Exit(1)
	}
	reportDir := settings.ReportDir
	if reportDir == "" {
		reportDir = filepath.Join(filepath.Dir(dbPath), "reports")
	}
	reporter := func(day *core.Day, modeTime map[core.Mode]time.Duration) error {
		_, err := report.Generate(day, modeTime, reportDir)
		return err
	}

	eng, warnings, err := store.OpenEngine(s, time.Now(), reporter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading state: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	app := tui.NewApp(s, eng, settings)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
