package game

import "time"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// Target is a transient element players must claim before its lifetime runs out.
// Positions are percentages of the play area.
type Target struct {
	ID        int           `json:"id"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Remaining time.Duration `json:"remainingLifetime"`
	Lifetime  time.Duration `json:"initialLifetime"`
}

// State is the authoritative game state on the host and the mirrored copy on clients.
type State struct {
	Health    float64  `json:"health"`
	MaxHealth float64  `json:"maxHealth"`
	Score     int      `json:"score"`
	Targets   []Target `json:"targets"`
	Running   bool     `json:"running"`
	Over      bool     `json:"over"`
}

// HealthLimit is the ceiling health is measured against. State from before any game
// carries none, so the default tuning's applies.
func (s State) HealthLimit() float64 {
	if s.MaxHealth > 0 {
		return s.MaxHealth
	}
	return DefaultTuning().MaxHealth
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	c := s
	c.Targets = make([]Target, len(s.Targets))
	copy(c.Targets, s.Targets)
	return c
}

// Target looks up a live target by id.
func (s State) Target(id int) (Target, bool) {
	for _, t := range s.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// TerminalState is what a client shows once its host is gone.
func TerminalState() State {
	return State{
		Targets: []Target{},
		Over:    true,
	}
}
