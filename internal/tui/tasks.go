package tui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/cadence-tui/cadence/internal/core"
	"github.com/cadence-tui/cadence/internal/store"
)

// taskRow is one selectable line in the flattened active tree.
type taskRow struct {
	entity *core.Entity
	parent *core.Entity
}

type tasksModel struct {
	engine *core.Engine
	store  *store.Store
	width  int
	height int
	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "task", "subtask", "edit"

	// Form field pointers (survive value copies)
	formTitle    *string
	formEstimate *string
	formTags     *string

	editingID string
	parentID  string
}

func newTasksModel(eng *core.Engine, s *store.Store) tasksModel {
	title, estimate, tags := "", "", ""
	return tasksModel{
		engine:       eng,
		store:        s,
		formTitle:    &title,
		formEstimate: &estimate,
		formTags:     &tags,
	}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t tasksModel) rows() []taskRow {
	var rows []taskRow
	for _, task := range t.engine.Day().Active {
		rows = append(rows, taskRow{entity: task})
		for _, sub := range task.Subtasks {
			rows = append(rows, taskRow{entity: sub, parent: task})
		}
	}
	return rows
}

func (t tasksModel) selected() (taskRow, bool) {
	rows := t.rows()
	if t.cursor < 0 || t.cursor >= len(rows) {
		return taskRow{}, false
	}
	return rows[t.cursor], true
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case editorFinishedMsg:
		return t.finishNotesEdit(msg)
	case tea.KeyMsg:
		return t.updateKeys(msg)
	}
	return t, nil
}

func (t tasksModel) updateKeys(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	rows := t.rows()

	switch {
	case key.Matches(msg, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(msg, keys.Down):
		if t.cursor < len(rows)-1 {
			t.cursor++
		}

	case key.Matches(msg, keys.Toggle):
		return t.withSelected(func(row taskRow) error {
			return t.engine.Toggle(row.entity.ID)
		})
	case key.Matches(msg, keys.Done):
		return t.withSelected(func(row taskRow) error {
			return t.engine.MarkDone(row.entity.ID)
		})
	case key.Matches(msg, keys.Archive):
		return t.withSelected(func(row taskRow) error {
			return t.engine.Archive(row.entity.ID)
		})
	case key.Matches(msg, keys.Delete):
		return t.withSelected(func(row taskRow) error {
			return t.engine.Delete(row.entity.ID)
		})
	case key.Matches(msg, keys.Postpone):
		return t.postponeSelected()
	case key.Matches(msg, keys.Undo):
		if err := t.engine.Undo(); err != nil {
			return t, errStatus(err)
		}
		return t, t.save("Undone")
	case key.Matches(msg, keys.MoveUp):
		return t.withSelected(func(row taskRow) error {
			return t.engine.MoveUp(row.entity.ID)
		})
	case key.Matches(msg, keys.MoveDown):
		return t.withSelected(func(row taskRow) error {
			return t.engine.MoveDown(row.entity.ID)
		})
	case key.Matches(msg, keys.MoreTime):
		return t.withSelected(func(row taskRow) error {
			return t.engine.IncreaseEstimate(row.entity.ID)
		})
	case key.Matches(msg, keys.LessTime):
		return t.withSelected(func(row taskRow) error {
			return t.engine.DecreaseEstimate(row.entity.ID)
		})

	case key.Matches(msg, keys.New):
		return t.showForm("task", nil)
	case key.Matches(msg, keys.NewSubtask):
		if row, ok := t.selected(); ok {
			target := row.entity
			if row.parent != nil {
				target = row.parent
			}
			return t.showForm("subtask", target)
		}
	case key.Matches(msg, keys.Edit):
		if row, ok := t.selected(); ok {
			return t.showForm("edit", row.entity)
		}
	case key.Matches(msg, keys.Notes):
		if row, ok := t.selected(); ok {
			return t.openNotesEditor(row.entity)
		}
	}
	return t, nil
}

// withSelected applies an engine mutation to the selection, then
// persists. Engine errors surface in the status bar and leave state
// untouched.
func (t tasksModel) withSelected(fn func(taskRow) error) (tasksModel, tea.Cmd) {
	row, ok := t.selected()
	if !ok {
		return t, nil
	}
	if err := fn(row); err != nil {
		return t, errStatus(err)
	}
	if t.cursor >= len(t.rows()) {
		t.cursor = max(0, len(t.rows())-1)
	}
	return t, t.save("")
}

func (t tasksModel) postponeSelected() (tasksModel, tea.Cmd) {
	row, ok := t.selected()
	if !ok {
		return t, nil
	}
	ent, err := t.engine.Postpone(row.entity.ID)
	if err != nil {
		return t, errStatus(err)
	}
	tomorrow := t.engine.Day().Date.AddDate(0, 0, 1)
	if err := t.store.AppendToDay(tomorrow, ent); err != nil {
		return t, errStatus(err)
	}
	if t.cursor >= len(t.rows()) {
		t.cursor = max(0, len(t.rows())-1)
	}
	return t, t.save(fmt.Sprintf("Moved %q to tomorrow", ent.Title))
}

// save persists the day and meta, reporting the outcome as a status.
func (t tasksModel) save(okText string) tea.Cmd {
	eng, st := t.engine, t.store
	return func() tea.Msg {
		if err := st.SaveDay(eng.Day()); err != nil {
			return statusMsg{text: fmt.Sprintf("Save failed: %v", err), isError: true}
		}
		if err := st.SaveMeta(eng.Meta()); err != nil {
			return statusMsg{text: fmt.Sprintf("Save failed: %v", err), isError: true}
		}
		if okText == "" {
			return nil
		}
		return statusMsg{text: okText}
	}
}

func errStatus(err error) tea.Cmd {
	text := err.Error()
	switch {
	case errors.Is(err, core.ErrModeLocked):
		text = "Timers are locked. Switch to Working mode (m) first"
	case errors.Is(err, core.ErrEntityTerminal):
		text = "Done items cannot change"
	case errors.Is(err, core.ErrNothingToUndo):
		text = "Nothing to undo"
	case errors.Is(err, core.ErrIndexOutOfRange):
		text = "Already at the edge"
	}
	return func() tea.Msg {
		return statusMsg{text: text, isError: true}
	}
}

// ============================================================
// Entry form
// ============================================================

func (t tasksModel) showForm(formType string, target *core.Entity) (tasksModel, tea.Cmd) {
	t.formType = formType
	*t.formTitle = ""
	*t.formEstimate = ""
	*t.formTags = ""
	t.editingID = ""
	t.parentID = ""

	switch formType {
	case "subtask":
		t.parentID = target.ID
	case "edit":
		t.editingID = target.ID
		*t.formTitle = target.Title
		*t.formEstimate = strconv.Itoa(int(target.Estimate.Minutes()))
		*t.formTags = strings.Join(target.Tags, ", ")
	}

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(t.formTitle),
			huh.NewInput().Title("Estimate (minutes)").Value(t.formEstimate).
				Validate(validateMinutes),
			huh.NewInput().Title("Tags (comma-separated)").Value(t.formTags),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func validateMinutes(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return errors.New("enter whole minutes")
	}
	return nil
}

func parseMinutes(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func splitTags(s string) []string {
	return core.NormalizeTags(strings.Split(s, ","))
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		title := strings.TrimSpace(*t.formTitle)
		if title == "" {
			return t, nil
		}
		estimate := time.Duration(parseMinutes(*t.formEstimate)) * time.Minute
		tags := splitTags(*t.formTags)

		switch t.formType {
		case "task":
			t.engine.AddTask(title, estimate, tags)
		case "subtask":
			if _, err := t.engine.AddSubtask(t.parentID, title, estimate, tags); err != nil {
				return t, errStatus(err)
			}
		case "edit":
			// Edit keeps notes; the estimate field replaces outright.
			if err := t.engine.Edit(t.editingID, title, t.currentNotes(), tags); err != nil {
				return t, errStatus(err)
			}
			if err := t.engine.SetEstimate(t.editingID, estimate); err != nil {
				return t, errStatus(err)
			}
		}
		return t, t.save("")
	}

	return t, cmd
}

func (t tasksModel) currentNotes() string {
	if e, ok := t.lookup(t.editingID); ok {
		return e.Notes
	}
	return ""
}

func (t tasksModel) lookup(id string) (*core.Entity, bool) {
	for _, row := range t.rows() {
		if row.entity.ID == id {
			return row.entity, true
		}
	}
	return nil, false
}

// ============================================================
// Notes via $EDITOR
// ============================================================

func (t tasksModel) openNotesEditor(e *core.Entity) (tasksModel, tea.Cmd) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	f, err := os.CreateTemp("", "cadence-notes-*.md")
	if err != nil {
		return t, errStatus(err)
	}
	path := f.Name()
	if _, err := f.WriteString(e.Notes); err != nil {
		f.Close()
		return t, errStatus(err)
	}
	f.Close()

	id := e.ID
	cmd := exec.Command(editor, path)
	return t, tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{id: id, path: path, err: err}
	})
}

func (t tasksModel) finishNotesEdit(msg editorFinishedMsg) (tasksModel, tea.Cmd) {
	defer os.Remove(msg.path)
	if msg.err != nil {
		return t, errStatus(msg.err)
	}
	data, err := os.ReadFile(msg.path)
	if err != nil {
		return t, errStatus(err)
	}
	if err := t.engine.SetNotes(msg.id, strings.TrimRight(string(data), "\n")); err != nil {
		return t, errStatus(err)
	}
	return t, t.save("Notes updated")
}

// ============================================================
// Rendering
// ============================================================

func (t tasksModel) view() string {
	if t.formActive && t.form != nil {
		title := titleStyle.Render("New Task")
		switch t.formType {
		case "subtask":
			title = titleStyle.Render("New Subtask")
		case "edit":
			title = titleStyle.Render("Edit")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View())
		return panelStyle.Width(t.width - 4).Render(content)
	}

	w := t.width - 4
	day := t.engine.Day()
	var rows []string
	rows = append(rows, titleStyle.Render(day.Date.Format("Monday, January 2")))
	rows = append(rows, "")

	if len(day.Active) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing planned. Press n to add a task."))
	}

	for i, row := range t.rows() {
		rows = append(rows, t.renderRow(i, row))
	}

	if len(day.Done) > 0 {
		rows = append(rows, "")
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("Done (%d)", len(day.Done))))
		for _, e := range day.Done {
			line := fmt.Sprintf("  %s %s  %s",
				statusGlyph(e.Status), e.Title, formatShort(e.Elapsed))
			rows = append(rows, doneStyle.Render(line))
		}
	}
	if n := len(day.Archived); n > 0 {
		rows = append(rows, "")
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("Archived: %d", n)))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (t tasksModel) renderRow(i int, row taskRow) string {
	e := row.entity
	indent := ""
	if row.parent != nil {
		indent = "    "
	}
	cursor := "  "
	style := normalItemStyle
	if i == t.cursor {
		cursor = "> "
		style = selectedItemStyle
	}

	glyph := statusGlyph(e.Status)
	switch e.Status {
	case core.StatusRunning:
		glyph = runningStyle.Render(glyph)
	case core.StatusPaused:
		glyph = pausedStyle.Render(glyph)
	}

	times := formatShort(e.Elapsed)
	if e.Estimate > 0 {
		times += " / " + formatShort(e.Estimate)
		if e.Elapsed >= e.Estimate {
			times = warningStyle.Render(times)
		}
	}

	line := fmt.Sprintf("%s%s%s %s  %s", cursor, indent, glyph, style.Render(e.Title), times)
	if len(e.Tags) > 0 {
		line += "  " + mutedStyle.Render("#"+strings.Join(e.Tags, " #"))
	}
	if e.Notes != "" {
		line += "  " + mutedStyle.Render("≣")
	}
	if len(row.entity.Subtasks) > 0 {
		subEst, subEl := e.SubtaskTotals()
		line += "  " + mutedStyle.Render(fmt.Sprintf("(subtasks %s / %s)",
			formatShort(subEl), formatShort(subEst)))
	}
	return line
}
