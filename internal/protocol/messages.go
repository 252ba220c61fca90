package protocol

import "github.com/pixil98/go-pulse/internal/game"

// Version is the wire revision carried on every envelope.
const Version = 1

type Tag string

const (
	TagWelcome       Tag = "welcome"
	TagStateSnapshot Tag = "stateSnapshot"
	TagGameOver      Tag = "gameOver"
	TagPlayerAction  Tag = "playerAction"
	TagPeerLeft      Tag = "peerLeft"
)

// ActionInteract is the only player action.
const ActionInteract = "interact"

// Welcome is sent by the host once per new connection.
type Welcome struct {
	HostID string `json:"hostId"`
}

// StateSnapshot replaces the client's mirrored state wholesale.
type StateSnapshot struct {
	State game.State `json:"state"`
}

// GameOver ends the game on every client.
type GameOver struct {
	FinalScore int `json:"finalScore"`
}

// PlayerAction relays a client's intent to the host.
type PlayerAction struct {
	Action   string `json:"action"`
	TargetID int    `json:"targetId"`
}

// PeerLeft tells clients another peer departed.
type PeerLeft struct {
	PeerID string `json:"peerId"`
}
