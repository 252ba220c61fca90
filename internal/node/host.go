package node

import (
	"log/slog"

	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/protocol"
	"github.com/pixil98/go-pulse/internal/session"
)

// BroadcastState sends a snapshot to every client.
func (n *Node) BroadcastState(s game.State) {
	n.manager.Broadcast(protocol.MustEncode(protocol.TagStateSnapshot, protocol.StateSnapshot{State: s}))
	n.publish()
}

// BroadcastGameOver tells every client the game ended.
func (n *Node) BroadcastGameOver(finalScore int) {
	n.finalScore = finalScore
	n.manager.Broadcast(protocol.MustEncode(protocol.TagGameOver, protocol.GameOver{FinalScore: finalScore}))
	n.publish()
}

func (n *Node) peerJoined(peerID string) {
	n.engine.PeerJoined(peerID)
	n.manager.SendTo(peerID, protocol.MustEncode(protocol.TagWelcome, protocol.Welcome{HostID: n.manager.LocalID()}))

	// Late joiners catch up on a game in progress or the result of the last one.
	switch n.engine.Phase() {
	case game.PhaseRunning:
		n.manager.SendTo(peerID, protocol.MustEncode(protocol.TagStateSnapshot, protocol.StateSnapshot{State: n.engine.State()}))
	case game.PhaseOver:
		n.manager.SendTo(peerID, protocol.MustEncode(protocol.TagStateSnapshot, protocol.StateSnapshot{State: n.engine.State()}))
		n.manager.SendTo(peerID, protocol.MustEncode(protocol.TagGameOver, protocol.GameOver{FinalScore: n.finalScore}))
	}
	n.publish()
}

func (n *Node) peerLeft(peerID string) {
	n.engine.PeerLeft(peerID)
	n.manager.Broadcast(protocol.MustEncode(protocol.TagPeerLeft, protocol.PeerLeft{PeerID: peerID}))
	n.publish()
}

func (n *Node) onPlayerAction(from string, m protocol.PlayerAction) {
	if n.manager.Role() != session.RoleHost {
		return
	}
	if m.Action != protocol.ActionInteract {
		slog.Debug("ignoring unknown action", "from", from, "action", m.Action)
		return
	}
	n.engine.HandleInteraction(m.TargetID, from)
}

func (n *Node) engineEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventGameStarted:
		slog.Info("game started")
	case game.EventGameOver:
		slog.Info("game over", "score", ev.Score)
	case game.EventTargetClaimed:
		slog.Debug("target claimed", "target", ev.TargetID, "peer", ev.PeerID)
	}
}
