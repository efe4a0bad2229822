package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

// row is one flattened entity. Subtasks appear after their parent with
// the parent's title in the Parent column.
type row struct {
	entity  *core.Entity
	section core.Section
	parent  string
}

func flatten(day *core.Day) []row {
	var rows []row
	walk := func(list []*core.Entity, section core.Section) {
		for _, t := range list {
			rows = append(rows, row{entity: t, section: section})
			for _, s := range t.Subtasks {
				rows = append(rows, row{entity: s, section: section, parent: t.Title})
			}
		}
	}
	walk(day.Active, core.SectionActive)
	walk(day.Done, core.SectionDone)
	walk(day.Archived, core.SectionArchived)
	return rows
}

// ToCSV writes every entity of the day as one CSV row per entity.
func ToCSV(day *core.Day, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	header := []string{
		"ID", "Section", "Parent", "Title", "Status", "Tags",
		"Estimate (s)", "Elapsed (s)", "Elapsed", "Created", "Completed", "Notes",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range flatten(day) {
		e := r.entity
		completed := ""
		if e.CompletedAt != nil {
			completed = e.CompletedAt.Local().Format(time.RFC3339)
		}
		rec := []string{
			e.ID,
			r.section.String(),
			r.parent,
			e.Title,
			e.Status.String(),
			strings.Join(e.Tags, " "),
			fmt.Sprintf("%d", int64(e.Estimate.Seconds())),
			fmt.Sprintf("%d", int64(e.Elapsed.Seconds())),
			formatDuration(int64(e.Elapsed.Seconds())),
			e.CreatedAt.Local().Format(time.RFC3339),
			completed,
			e.Notes,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
