package node

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/protocol"
	"github.com/pixil98/go-pulse/internal/session"
)

// fromHost reports whether a message came from the host this client is bound to.
func (n *Node) fromHost(from string) bool {
	if n.manager.Role() != session.RoleClient || from != n.manager.HostID() {
		slog.Debug("dropping message", "from", from, "error", session.ErrStaleMessage)
		return false
	}
	return true
}

func (n *Node) onWelcome(from string, m protocol.Welcome) {
	if !n.fromHost(from) {
		return
	}
	slog.Info("welcomed by host", "host", m.HostID)
}

func (n *Node) onSnapshot(from string, m protocol.StateSnapshot) {
	if !n.fromHost(from) {
		return
	}
	n.mirror = m.State.Clone()
	if n.mirror.Targets == nil {
		n.mirror.Targets = []game.Target{}
	}
	if n.mirror.Running {
		n.finalScore = 0
	}
	n.publish()
}

func (n *Node) onGameOver(from string, m protocol.GameOver) {
	if !n.fromHost(from) {
		return
	}
	n.mirror.Running = false
	n.mirror.Over = true
	n.finalScore = m.FinalScore
	n.publish()
}

func (n *Node) onPeerLeft(from string, m protocol.PeerLeft) {
	if !n.fromHost(from) {
		return
	}
	n.notice = fmt.Sprintf("%s left", m.PeerID)
	n.publish()
}

func (n *Node) connectedToHost(hostID string) {
	n.mirror = game.State{Targets: []game.Target{}}
	n.finalScore = 0
	n.message = ""
	n.notice = ""
	n.publish()
}

func (n *Node) connectionFailed(err error) {
	n.message = fmt.Sprintf("Could not join: %v", err)
	n.publish()
}

func (n *Node) connectionLost(err error) {
	n.mirror = game.TerminalState()
	n.message = LostHostMessage
	n.publish()
}
