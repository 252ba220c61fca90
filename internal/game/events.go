package game

type EventKind int

const (
	EventGameStarted EventKind = iota
	EventGameOver
	EventTargetSpawned
	EventTargetClaimed
	EventTargetExpired
)

func (k EventKind) String() string {
	switch k {
	case EventGameStarted:
		return "game started"
	case EventGameOver:
		return "game over"
	case EventTargetSpawned:
		return "target spawned"
	case EventTargetClaimed:
		return "target claimed"
	case EventTargetExpired:
		return "target expired"
	default:
		return "unknown"
	}
}

// Event reports a change inside the engine. TargetID is set for target events, PeerID
// for claims, Score for game over.
type Event struct {
	Kind     EventKind
	TargetID int
	PeerID   string
	Score    int
}
