package core

import (
	"sort"
	"time"
)

// Section identifies which of the day's three lists an entity lives in.
type Section int

const (
	SectionActive Section = iota
	SectionDone
	SectionArchived
)

func (s Section) String() string {
	switch s {
	case SectionActive:
		return "ACTIVE"
	case SectionDone:
		return "DONE"
	case SectionArchived:
		return "ARCHIVED"
	}
	return ""
}

// Day is one day's worth of entities, partitioned by section. Order
// within each list is the user's order.
type Day struct {
	Date     time.Time // local midnight
	Active   []*Entity
	Done     []*Entity
	Archived []*Entity
}

// NewDay returns an empty day for the date containing now.
func NewDay(now time.Time) *Day {
	return &Day{Date: Midnight(now)}
}

// Midnight truncates t to local midnight.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Meta is the persisted day-wide state that lives outside the entity
// lists: current mode, per-mode accrual, the auto-pause set and the
// last date the tracker was open.
type Meta struct {
	Mode       Mode
	ModeTime   map[Mode]time.Duration
	AutoPaused []string
	LastDate   time.Time
}

// Config tunes the engine. Zero values fall back to the defaults the
// settings table seeds.
type Config struct {
	EstimateStep time.Duration
	MinEstimate  time.Duration
	UndoDepth    int
	Clock        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.EstimateStep <= 0 {
		c.EstimateStep = 15 * time.Minute
	}
	if c.MinEstimate < 0 {
		c.MinEstimate = 0
	}
	if c.UndoDepth <= 0 {
		c.UndoDepth = 10
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// EstimateHit is a one-shot signal that an entity's elapsed time has
// crossed its estimate. The presentation layer consumes it.
type EstimateHit struct {
	ID       string
	Title    string
	Estimate time.Duration
}

// ReportFunc finalizes a day, typically by writing its report.
// Failures must not block the day transition.
type ReportFunc func(day *Day, modeTime map[Mode]time.Duration) error

type undoKind int

const (
	undoDone undoKind = iota
	undoArchive
	undoDelete
)

type undoRecord struct {
	kind     undoKind
	snapshot *Entity
	section  Section
	parentID string
	index    int
}

// Engine owns a day's state and applies every mutation. Operations
// either fully apply or fail with a sentinel error and change nothing.
type Engine struct {
	day        *Day
	mode       Mode
	modeTime   map[Mode]time.Duration
	autoPaused map[string]struct{}
	undo       []undoRecord
	cfg        Config
	report     ReportFunc
}

// NewEngine builds an engine around a loaded day and its meta state.
func NewEngine(day *Day, meta Meta, cfg Config) *Engine {
	e := &Engine{
		day:        day,
		mode:       meta.Mode,
		modeTime:   make(map[Mode]time.Duration),
		autoPaused: make(map[string]struct{}),
		cfg:        cfg.withDefaults(),
	}
	for m, d := range meta.ModeTime {
		e.modeTime[m] = d
	}
	for _, id := range meta.AutoPaused {
		e.autoPaused[id] = struct{}{}
	}
	return e
}

// SetReporter installs the day-finalization hook used at rollover.
func (e *Engine) SetReporter(fn ReportFunc) { e.report = fn }

func (e *Engine) Day() *Day  { return e.day }
func (e *Engine) Mode() Mode { return e.mode }

// ModeTime returns a copy of the per-mode accrual for today.
func (e *Engine) ModeTime() map[Mode]time.Duration {
	out := make(map[Mode]time.Duration, len(e.modeTime))
	for m, d := range e.modeTime {
		out[m] = d
	}
	return out
}

// Meta snapshots the engine's day-wide state for persistence.
func (e *Engine) Meta() Meta {
	ids := make([]string, 0, len(e.autoPaused))
	for id := range e.autoPaused {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Meta{
		Mode:       e.mode,
		ModeTime:   e.ModeTime(),
		AutoPaused: ids,
		LastDate:   e.day.Date,
	}
}

// ============================================================
// Lookup
// ============================================================

type location struct {
	entity  *Entity
	parent  *Entity // nil for top-level
	index   int
	section Section
}

func (e *Engine) find(id string) (location, bool) {
	for i, t := range e.day.Active {
		if t.ID == id {
			return location{entity: t, index: i, section: SectionActive}, true
		}
		for j, s := range t.Subtasks {
			if s.ID == id {
				return location{entity: s, parent: t, index: j, section: SectionActive}, true
			}
		}
	}
	for i, t := range e.day.Done {
		if t.ID == id {
			return location{entity: t, index: i, section: SectionDone}, true
		}
	}
	for i, t := range e.day.Archived {
		if t.ID == id {
			return location{entity: t, index: i, section: SectionArchived}, true
		}
	}
	return location{}, false
}

// findMutable resolves id to an active entity, mapping Done and
// Archived hits to ErrEntityTerminal.
func (e *Engine) findMutable(id string) (location, error) {
	loc, ok := e.find(id)
	if !ok {
		return location{}, ErrNotFound
	}
	if loc.section != SectionActive || loc.entity.Status == StatusDone {
		return location{}, ErrEntityTerminal
	}
	return loc, nil
}

func (d *Day) eachActive(fn func(*Entity)) {
	for _, t := range d.Active {
		fn(t)
		for _, s := range t.Subtasks {
			fn(s)
		}
	}
}

// ============================================================
// Creation and editing
// ============================================================

// AddTask appends a new Idle task to the active list.
func (e *Engine) AddTask(title string, estimate time.Duration, tags []string) *Entity {
	t := NewEntity(title, estimate, tags, e.cfg.Clock())
	e.day.Active = append(e.day.Active, t)
	return t
}

// AddSubtask appends a new Idle subtask under the given active task.
func (e *Engine) AddSubtask(parentID, title string, estimate time.Duration, tags []string) (*Entity, error) {
	loc, err := e.findMutable(parentID)
	if err != nil {
		return nil, err
	}
	if loc.parent != nil {
		// Subtasks do not nest.
		return nil, ErrNotFound
	}
	s := NewEntity(title, estimate, tags, e.cfg.Clock())
	loc.entity.Subtasks = append(loc.entity.Subtasks, s)
	return s, nil
}

// Edit replaces the descriptive fields of an entity.
func (e *Engine) Edit(id, title, notes string, tags []string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	loc.entity.Title = title
	loc.entity.Notes = notes
	loc.entity.Tags = NormalizeTags(tags)
	return nil
}

// SetNotes replaces only the notes field.
func (e *Engine) SetNotes(id, notes string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	loc.entity.Notes = notes
	return nil
}

// ============================================================
// Timer control
// ============================================================

// Start begins or resumes an entity's timer. Only allowed while the
// mode is Working.
func (e *Engine) Start(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	if e.mode.PausesTimers() {
		return ErrModeLocked
	}
	if loc.entity.Status == StatusRunning {
		return nil
	}
	loc.entity.transition(StatusRunning, e.cfg.Clock())
	return nil
}

// Pause suspends a running entity. Works in any mode.
func (e *Engine) Pause(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	if loc.entity.Status != StatusRunning {
		return nil
	}
	loc.entity.transition(StatusPaused, e.cfg.Clock())
	delete(e.autoPaused, id)
	return nil
}

// Toggle pauses a running entity and starts any other.
func (e *Engine) Toggle(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	if loc.entity.Status == StatusRunning {
		return e.Pause(id)
	}
	return e.Start(id)
}

// ============================================================
// Completion, archive, delete, postpone
// ============================================================

// MarkDone completes an entity. Tasks move to the Done section with
// their subtasks; subtasks leave their parent and join Done on their
// own. Undoable.
func (e *Engine) MarkDone(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	e.pushUndo(undoRecord{
		kind:     undoDone,
		snapshot: loc.entity.Clone(),
		section:  loc.section,
		parentID: parentIDOf(loc),
		index:    loc.index,
	})
	now := e.cfg.Clock()
	loc.entity.transition(StatusDone, now)
	if loc.entity.CompletedAt == nil {
		t := now
		loc.entity.CompletedAt = &t
	}
	e.detach(loc)
	e.forgetAutoPaused(loc.entity)
	e.day.Done = append(e.day.Done, loc.entity)
	return nil
}

// Archive moves an active entity to the Archived section. Subtasks go
// with their task. Undoable.
func (e *Engine) Archive(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	e.pushUndo(undoRecord{
		kind:     undoArchive,
		snapshot: loc.entity.Clone(),
		section:  loc.section,
		parentID: parentIDOf(loc),
		index:    loc.index,
	})
	if loc.entity.Status == StatusRunning {
		loc.entity.transition(StatusPaused, e.cfg.Clock())
	}
	e.detach(loc)
	e.forgetAutoPaused(loc.entity)
	e.day.Archived = append(e.day.Archived, loc.entity)
	return nil
}

// Delete removes an active entity outright. Deleting a task takes its
// subtasks with it. Undoable.
func (e *Engine) Delete(id string) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	e.pushUndo(undoRecord{
		kind:     undoDelete,
		snapshot: loc.entity.Clone(),
		section:  loc.section,
		parentID: parentIDOf(loc),
		index:    loc.index,
	})
	e.detach(loc)
	e.forgetAutoPaused(loc.entity)
	return nil
}

// Postpone detaches an entity for tomorrow: its timer stops, its
// status resets to Idle, elapsed and history are kept. The caller
// hands the returned entity to the store. Not undoable.
func (e *Engine) Postpone(id string) (*Entity, error) {
	loc, err := e.findMutable(id)
	if err != nil {
		return nil, err
	}
	if loc.entity.Status != StatusIdle {
		loc.entity.transition(StatusIdle, e.cfg.Clock())
	}
	e.detach(loc)
	e.forgetAutoPaused(loc.entity)
	return loc.entity, nil
}

func parentIDOf(loc location) string {
	if loc.parent != nil {
		return loc.parent.ID
	}
	return ""
}

func (e *Engine) detach(loc location) {
	if loc.parent != nil {
		loc.parent.Subtasks = removeAt(loc.parent.Subtasks, loc.index)
		return
	}
	switch loc.section {
	case SectionActive:
		e.day.Active = removeAt(e.day.Active, loc.index)
	case SectionDone:
		e.day.Done = removeAt(e.day.Done, loc.index)
	case SectionArchived:
		e.day.Archived = removeAt(e.day.Archived, loc.index)
	}
}

func (e *Engine) forgetAutoPaused(ent *Entity) {
	delete(e.autoPaused, ent.ID)
	for _, s := range ent.Subtasks {
		delete(e.autoPaused, s.ID)
	}
}

func removeAt(list []*Entity, i int) []*Entity {
	return append(list[:i:i], list[i+1:]...)
}

func insertAt(list []*Entity, i int, ent *Entity) []*Entity {
	if i < 0 {
		i = 0
	}
	if i > len(list) {
		i = len(list)
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = ent
	return list
}

// ============================================================
// Reordering and estimates
// ============================================================

// MoveUp swaps an entity with its previous sibling.
func (e *Engine) MoveUp(id string) error { return e.move(id, -1) }

// MoveDown swaps an entity with its next sibling.
func (e *Engine) MoveDown(id string) error { return e.move(id, +1) }

func (e *Engine) move(id string, delta int) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	list := e.day.Active
	if loc.parent != nil {
		list = loc.parent.Subtasks
	}
	j := loc.index + delta
	if j < 0 || j >= len(list) {
		return ErrIndexOutOfRange
	}
	list[loc.index], list[j] = list[j], list[loc.index]
	return nil
}

// IncreaseEstimate raises the estimate by one step.
func (e *Engine) IncreaseEstimate(id string) error {
	return e.adjustEstimate(id, e.cfg.EstimateStep)
}

// DecreaseEstimate lowers the estimate by one step, clamped at the
// configured minimum.
func (e *Engine) DecreaseEstimate(id string) error {
	return e.adjustEstimate(id, -e.cfg.EstimateStep)
}

// ExtendEstimate raises the estimate by an arbitrary amount, used by
// the estimate-reached prompt.
func (e *Engine) ExtendEstimate(id string, d time.Duration) error {
	return e.adjustEstimate(id, d)
}

// SetEstimate replaces the estimate outright, clamped at the minimum.
func (e *Engine) SetEstimate(id string, d time.Duration) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	loc.entity.AdjustEstimate(d-loc.entity.Estimate, e.cfg.MinEstimate)
	return nil
}

func (e *Engine) adjustEstimate(id string, delta time.Duration) error {
	loc, err := e.findMutable(id)
	if err != nil {
		return err
	}
	loc.entity.AdjustEstimate(delta, e.cfg.MinEstimate)
	return nil
}

// ============================================================
// Mode controller
// ============================================================

// SetMode switches the day-wide context. Leaving Working pauses every
// running entity and remembers it; returning to Working resumes
// exactly that set. Switching to the current mode is a no-op.
func (e *Engine) SetMode(m Mode) {
	if m == e.mode {
		return
	}
	now := e.cfg.Clock()
	wasWorking := e.mode == ModeWorking
	e.mode = m
	if wasWorking && m.PausesTimers() {
		e.day.eachActive(func(ent *Entity) {
			if ent.Status == StatusRunning {
				ent.transition(StatusPaused, now)
				e.autoPaused[ent.ID] = struct{}{}
			}
		})
		return
	}
	if m == ModeWorking {
		e.day.eachActive(func(ent *Entity) {
			if _, ok := e.autoPaused[ent.ID]; ok && ent.Status == StatusPaused {
				ent.transition(StatusRunning, now)
			}
		})
		e.autoPaused = make(map[string]struct{})
	}
}

// ============================================================
// Undo
// ============================================================

func (e *Engine) pushUndo(rec undoRecord) {
	e.undo = append(e.undo, rec)
	if len(e.undo) > e.cfg.UndoDepth {
		e.undo = e.undo[1:]
	}
}

// UndoDepth reports how many operations can currently be undone.
func (e *Engine) UndoDepth() int { return len(e.undo) }

// Undo reverses the most recent done, archive or delete. The entity
// comes back with its pre-operation state at its original position.
func (e *Engine) Undo() error {
	if len(e.undo) == 0 {
		return ErrNothingToUndo
	}
	rec := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	switch rec.kind {
	case undoDone:
		e.day.Done = removeByID(e.day.Done, rec.snapshot.ID)
	case undoArchive:
		e.day.Archived = removeByID(e.day.Archived, rec.snapshot.ID)
	}
	e.restore(rec)
	return nil
}

func (e *Engine) restore(rec undoRecord) {
	if rec.parentID != "" {
		if loc, ok := e.find(rec.parentID); ok && loc.section == SectionActive && loc.parent == nil {
			loc.entity.Subtasks = insertAt(loc.entity.Subtasks, rec.index, rec.snapshot)
			return
		}
		// Parent is gone; surface the entity at top level rather
		// than lose it.
	}
	switch rec.section {
	case SectionDone:
		e.day.Done = insertAt(e.day.Done, rec.index, rec.snapshot)
	case SectionArchived:
		e.day.Archived = insertAt(e.day.Archived, rec.index, rec.snapshot)
	default:
		e.day.Active = insertAt(e.day.Active, rec.index, rec.snapshot)
	}
}

func removeByID(list []*Entity, id string) []*Entity {
	for i, t := range list {
		if t.ID == id {
			return removeAt(list, i)
		}
	}
	return list
}

// ============================================================
// Tick and day transition
// ============================================================

// Tick advances the clocks by delta. Mode time accrues regardless of
// mode; entity elapsed accrues only for Running entities while the
// mode is Working. Crossing midnight triggers the day transition; the
// returned error is the finalization failure from Rollover, handed to
// the caller to present.
func (e *Engine) Tick(now time.Time, delta time.Duration) ([]EstimateHit, error) {
	if !SameDay(now, e.day.Date) {
		return nil, e.Rollover(now)
	}
	e.modeTime[e.mode] += delta
	if e.mode.PausesTimers() {
		return nil, nil
	}
	var hits []EstimateHit
	e.day.eachActive(func(ent *Entity) {
		if ent.Status != StatusRunning {
			return
		}
		ent.Elapsed += delta
		if ent.Estimate > 0 && ent.Elapsed >= ent.Estimate && !ent.estimateHit {
			ent.estimateHit = true
			hits = append(hits, EstimateHit{ID: ent.ID, Title: ent.Title, Estimate: ent.Estimate})
		}
	})
	return hits, nil
}

// Rollover finalizes the current day and starts the day containing
// now. Unfinished active entities carry over with their status,
// elapsed time and history intact; Done and Archived stay behind with
// the old day. Mode time, the undo stack and the auto-pause set reset.
// The report hook runs first; its failure does not block the
// transition and is returned for display only.
func (e *Engine) Rollover(now time.Time) error {
	var reportErr error
	if e.report != nil {
		reportErr = e.report(e.day, e.ModeTime())
	}
	e.day = &Day{
		Date:   Midnight(now),
		Active: e.day.Active,
	}
	e.modeTime = make(map[Mode]time.Duration)
	e.autoPaused = make(map[string]struct{})
	e.undo = nil
	return reportErr
}

// CoerceRunning pauses every running entity. Used at startup so a
// crash or hard exit never leaves a timer silently accruing.
func (e *Engine) CoerceRunning() {
	now := e.cfg.Clock()
	e.day.eachActive(func(ent *Entity) {
		if ent.Status == StatusRunning {
			ent.transition(StatusPaused, now)
		}
	})
}
