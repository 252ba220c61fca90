package node

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/pixil98/go-pulse/internal/driver"
	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/protocol"
	"github.com/pixil98/go-pulse/internal/session"
)

// LostHostMessage is shown once a client's host goes away.
const LostHostMessage = "Game ended: lost connection to host"

var ErrNotHost = errors.New("only the host can start a game")

// Node is the state of one player's session. It owns the connection manager, the
// engine when hosting, and the mirrored state when joined. Everything it holds is
// touched only on its driver, so the presentation methods are safe from any goroutine.
type Node struct {
	driver   *driver.Driver
	manager  *session.Manager
	engine   *game.Engine
	dispatch protocol.Dispatcher

	mirror     game.State
	finalScore int
	message    string
	notice     string

	autoHost bool
	autoJoin string

	mu     sync.Mutex
	view   View
	subs   map[int]func(View)
	nextID int
}

type NodeOpt func(*nodeConfig)

type nodeConfig struct {
	tuning      game.Tuning
	rng         *rand.Rand
	managerOpts []session.ManagerOpt
	autoHost    bool
	autoJoin    string
}

func WithTuning(t game.Tuning) NodeOpt {
	return func(c *nodeConfig) {
		c.tuning = t
	}
}

// WithRand fixes the source used to place targets.
func WithRand(r *rand.Rand) NodeOpt {
	return func(c *nodeConfig) {
		c.rng = r
	}
}

func WithManagerOpts(opts ...session.ManagerOpt) NodeOpt {
	return func(c *nodeConfig) {
		c.managerOpts = append(c.managerOpts, opts...)
	}
}

// WithAutoHost makes Start host a session as soon as the endpoint is open.
func WithAutoHost() NodeOpt {
	return func(c *nodeConfig) {
		c.autoHost = true
	}
}

// WithAutoJoin makes Start join hostID as soon as the endpoint is open.
func WithAutoJoin(hostID string) NodeOpt {
	return func(c *nodeConfig) {
		c.autoJoin = hostID
	}
}

func NewNode(d *driver.Driver, ep session.Endpoint, opts ...NodeOpt) *Node {
	cfg := nodeConfig{tuning: game.DefaultTuning()}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := &Node{
		driver:   d,
		manager:  session.NewManager(d, ep, cfg.managerOpts...),
		mirror:   game.State{Targets: []game.Target{}},
		autoHost: cfg.autoHost,
		autoJoin: cfg.autoJoin,
		subs:     map[int]func(View){},
	}

	engineOpts := []game.EngineOpt{game.WithTuning(cfg.tuning)}
	if cfg.rng != nil {
		engineOpts = append(engineOpts, game.WithRand(cfg.rng))
	}
	n.engine = game.NewEngine(d, n, engineOpts...)

	n.dispatch = protocol.Dispatcher{
		Welcome:       n.onWelcome,
		StateSnapshot: n.onSnapshot,
		GameOver:      n.onGameOver,
		PlayerAction:  n.onPlayerAction,
		PeerLeft:      n.onPeerLeft,
	}

	n.manager.OnMessage(n.onMessage)
	n.manager.OnPeerJoined(n.peerJoined)
	n.manager.OnPeerLeft(n.peerLeft)
	n.manager.OnConnectedToHost(n.connectedToHost)
	n.manager.OnConnectionFailed(n.connectionFailed)
	n.manager.OnConnectionLost(n.connectionLost)
	n.manager.OnStatus(func(session.Status) { n.publish() })
	n.engine.OnEvent(n.engineEvent)

	n.view = n.snapshot()
	return n
}

// Start runs the node until ctx is cancelled: the driver, the endpoint with retries,
// and the configured automatic role.
func (n *Node) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.driver.Start(runCtx) }()

	openErr := n.Open(runCtx)
	if openErr == nil || ctx.Err() != nil {
		openErr = nil
		<-runCtx.Done()
	}
	cancel()
	err := <-done

	n.engine.Stop()
	if cerr := n.manager.Close(); cerr != nil {
		slog.Warn("closing connection manager", "error", cerr)
	}
	if openErr != nil {
		return openErr
	}
	return err
}

// Open attaches to the peer network and applies the automatic role, if any.
func (n *Node) Open(ctx context.Context) error {
	if err := n.manager.Open(ctx); err != nil {
		return err
	}

	switch {
	case n.autoHost:
		id, err := n.Host(ctx)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "share this id with players", "host_id", id)
	case n.autoJoin != "":
		if err := n.Join(ctx, n.autoJoin); err != nil {
			return err
		}
	}
	return nil
}

// Host makes this node the session host and returns the id clients join with.
func (n *Node) Host(ctx context.Context) (string, error) {
	var id string
	var err error
	derr := n.driver.Do(ctx, func() {
		id, err = n.manager.BecomeHost()
		n.publish()
	})
	return id, errors.Join(derr, err)
}

// Join connects to hostID. The outcome shows up in the view.
func (n *Node) Join(ctx context.Context, hostID string) error {
	var err error
	derr := n.driver.Do(ctx, func() {
		err = n.manager.ConnectToHost(hostID)
		if err != nil {
			n.message = err.Error()
		}
		n.publish()
	})
	return errors.Join(derr, err)
}

// StartGame starts a game on the host. It reports false if a game is already running.
func (n *Node) StartGame(ctx context.Context) (bool, error) {
	var ok bool
	var err error
	derr := n.driver.Do(ctx, func() {
		if n.manager.Role() != session.RoleHost {
			err = ErrNotHost
			return
		}
		n.finalScore = 0
		ok = n.engine.Start()
	})
	return ok, errors.Join(derr, err)
}

// UseTuning sets the tuning for the next game on the host. It reports false while a
// game is running.
func (n *Node) UseTuning(ctx context.Context, t game.Tuning) (bool, error) {
	var ok bool
	var err error
	derr := n.driver.Do(ctx, func() {
		if n.manager.Role() != session.RoleHost {
			err = ErrNotHost
			return
		}
		ok = n.engine.SetTuning(t)
	})
	return ok, errors.Join(derr, err)
}

// Interact submits a hit on targetID. The host applies it directly; a client sends it
// to the host.
func (n *Node) Interact(ctx context.Context, targetID int) error {
	return n.driver.Do(ctx, func() {
		switch n.manager.Role() {
		case session.RoleHost:
			n.engine.HandleInteraction(targetID, n.manager.LocalID())
		case session.RoleClient:
			n.manager.SendToHost(protocol.MustEncode(protocol.TagPlayerAction, protocol.PlayerAction{
				Action:   protocol.ActionInteract,
				TargetID: targetID,
			}))
		}
	})
}

func (n *Node) onMessage(from string, data []byte) {
	if err := n.dispatch.Dispatch(from, data); err != nil {
		slog.Warn("dropping malformed message", "from", from, "error", err)
	}
}
