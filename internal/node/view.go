package node

import (
	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/session"
)

// View is everything a presentation layer renders.
type View struct {
	LocalID string
	HostID  string
	Role    session.Role
	Status  session.Status
	State   game.State
	// FinalScore is set once a game is over.
	FinalScore    int
	Peers         []string
	Contributions map[string]int
	LastError     string
	Notice        string
}

// View returns the latest view. It never blocks on the driver.
func (n *Node) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// Subscribe calls fn with every new view until the returned function is called. fn runs
// on the driver and must not block or call back into the node.
func (n *Node) Subscribe(fn func(View)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *Node) publish() {
	v := n.snapshot()

	n.mu.Lock()
	n.view = v
	subs := make([]func(View), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

func (n *Node) snapshot() View {
	v := View{
		LocalID:    n.manager.LocalID(),
		HostID:     n.manager.HostID(),
		Role:       n.manager.Role(),
		Status:     n.manager.Status(),
		FinalScore: n.finalScore,
		LastError:  n.message,
		Notice:     n.notice,
	}

	switch v.Role {
	case session.RoleHost:
		v.HostID = v.LocalID
		v.State = n.engine.State()
		v.Contributions = n.engine.Contributions()
		for _, rec := range n.manager.Peers() {
			v.Peers = append(v.Peers, rec.PeerID)
		}
	case session.RoleClient:
		v.State = n.mirror.Clone()
	default:
		v.State = game.State{Targets: []game.Target{}}
	}

	if v.LastError == "" {
		if err := n.manager.LastError(); err != nil {
			v.LastError = err.Error()
		}
	}
	if v.Contributions == nil {
		v.Contributions = map[string]int{}
	}
	return v
}
