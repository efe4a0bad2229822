package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cadence-tui/cadence/internal/core"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Date       string      `json:"date"`
	Count      int         `json:"count"`
	Entities   []jsonEntry `json:"entities"`
}

type jsonEntry struct {
	ID          string   `json:"id"`
	Section     string   `json:"section"`
	Parent      string   `json:"parent,omitempty"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags,omitempty"`
	EstimateSec int64    `json:"estimate_seconds"`
	ElapsedSec  int64    `json:"elapsed_seconds"`
	Elapsed     string   `json:"elapsed"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// ToJSON writes every entity of the day as a pretty-printed JSON
// document.
func ToJSON(day *core.Day, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Date:       day.Date.Format("2006-01-02"),
	}

	for _, r := range flatten(day) {
		e := r.entity
		completed := ""
		if e.CompletedAt != nil {
			completed = e.CompletedAt.Local().Format(time.RFC3339)
		}
		export.Entities = append(export.Entities, jsonEntry{
			ID:          e.ID,
			Section:     r.section.String(),
			Parent:      r.parent,
			Title:       e.Title,
			Status:      e.Status.String(),
			Tags:        e.Tags,
			EstimateSec: int64(e.Estimate.Seconds()),
			ElapsedSec:  int64(e.Elapsed.Seconds()),
			Elapsed:     formatDuration(int64(e.Elapsed.Seconds())),
			CreatedAt:   e.CreatedAt.Local().Format(time.RFC3339),
			CompletedAt: completed,
			Notes:       e.Notes,
		})
	}
	export.Count = len(export.Entities)

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
