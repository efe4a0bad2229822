package core

// Status is the runtime state of a task or subtask.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusDone

	// StatusNone marks the absence of a prior status in the first
	// history event of an entity.
	StatusNone Status = -1
)

var statusTags = map[Status]string{
	StatusIdle:    "IDLE",
	StatusRunning: "RUNNING",
	StatusPaused:  "PAUSED",
	StatusDone:    "DONE",
}

func (s Status) String() string {
	if tag, ok := statusTags[s]; ok {
		return tag
	}
	return ""
}

// ParseStatus parses an uppercase status tag like "RUNNING".
func ParseStatus(tag string) (Status, bool) {
	for s, t := range statusTags {
		if t == tag {
			return s, true
		}
	}
	return StatusIdle, false
}

// Active reports whether the status belongs in the ACTIVE section.
func (s Status) Active() bool {
	return s == StatusIdle || s == StatusRunning || s == StatusPaused
}

// Mode is the day-wide context the user has declared. Exactly one mode
// is active at a time; timers only accrue while the mode is Working.
type Mode int

const (
	ModeWorking Mode = iota
	ModeBreak
	ModeLunch
	ModeGym
	ModeDinner
	ModePersonal
	ModeSleep
)

var modeNames = map[Mode]string{
	ModeWorking:  "Working",
	ModeBreak:    "Break",
	ModeLunch:    "Lunch",
	ModeGym:      "Gym",
	ModeDinner:   "Dinner",
	ModePersonal: "Personal",
	ModeSleep:    "Sleep",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return ""
}

// ParseMode parses a mode name like "Lunch".
func ParseMode(name string) (Mode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return ModeWorking, false
}

// PausesTimers reports whether entering this mode suspends all running
// entities. Every mode except Working does.
func (m Mode) PausesTimers() bool {
	return m != ModeWorking
}

// Symbol returns a short glyph for the mode indicator.
func (m Mode) Symbol() string {
	switch m {
	case ModeWorking:
		return "💼"
	case ModeBreak:
		return "☁"
	case ModeLunch:
		return "🍽"
	case ModeGym:
		return "🏋"
	case ModeDinner:
		return "🍲"
	case ModePersonal:
		return "🏡"
	case ModeSleep:
		return "🌙"
	}
	return ""
}

// AllModes returns every mode in display order.
func AllModes() []Mode {
	return []Mode{
		ModeWorking, ModeBreak, ModeLunch, ModeGym,
		ModeDinner, ModePersonal, ModeSleep,
	}
}
