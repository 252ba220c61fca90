package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Peer is this process's endpoint on the rendezvous. It owns a single NATS connection and
// multiplexes every channel to and from remote peers over it.
type Peer struct {
	url               string
	name              string
	requestTimeout    time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	mu       sync.Mutex
	conn     *nats.Conn
	id       string
	accept   func(*Channel)
	channels map[string]*Channel
	done     chan struct{}
}

// NewPeer returns an unopened Peer for the rendezvous at url.
func NewPeer(url string, opts ...PeerOpt) *Peer {
	p := &Peer{
		url:               url,
		name:              "pulse-peer",
		requestTimeout:    5 * time.Second,
		heartbeatInterval: time.Second,
		heartbeatTimeout:  5 * time.Second,
		channels:          map[string]*Channel{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Open connects to the rendezvous and binds a fresh identity. Opening an open peer
// returns the existing identity.
func (p *Peer) Open(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.id, nil
	}

	conn, err := nats.Connect(p.url,
		nats.Name(p.name),
		nats.Timeout(p.requestTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("rendezvous disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("rendezvous reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(p.lost),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnectionInit, err)
	}

	id := uuid.NewString()
	if _, err := conn.Subscribe(connectSubject(id), p.handleConnect); err != nil {
		conn.Close()
		return "", fmt.Errorf("%w: subscribing to connect requests: %w", ErrConnectionInit, err)
	}
	if _, err := conn.Subscribe(dataWildcard(id), p.handleFrame); err != nil {
		conn.Close()
		return "", fmt.Errorf("%w: subscribing to frames: %w", ErrConnectionInit, err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return "", fmt.Errorf("%w: %w", ErrConnectionInit, err)
	}

	p.conn = conn
	p.id = id
	p.done = make(chan struct{})
	go p.heartbeat(p.done)

	slog.InfoContext(ctx, "peer open", "id", id, "url", conn.ConnectedUrl())
	return id, nil
}

// ID returns the local identity, empty until opened.
func (p *Peer) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Listen starts accepting inbound channels. Until it is called every connect request is
// rejected.
func (p *Peer) Listen(accept func(*Channel)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accept = accept
}

// Dial opens a channel to the peer with the given identity.
func (p *Peer) Dial(ctx context.Context, remote string) (*Channel, error) {
	p.mu.Lock()
	conn, id := p.conn, p.id
	if conn == nil {
		p.mu.Unlock()
		return nil, ErrNotOpen
	}
	if remote == "" || remote == id {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrPeerUnavailable, remote)
	}

	// Registered before the handshake so frames the remote sends on accept are buffered.
	ch := newChannel(p, remote, uuid.NewString())
	old := p.channels[remote]
	p.channels[remote] = ch
	p.mu.Unlock()

	if old != nil {
		old.terminate(ErrReplaced)
	}

	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	req := nats.NewMsg(connectSubject(remote))
	req.Header.Set(linkHeader, ch.link)
	req.Data = []byte(id)

	reply, err := conn.RequestMsgWithContext(ctx, req)
	if err == nil && string(reply.Data) != replyAccepted {
		err = errors.New(string(reply.Data))
	}
	if err != nil {
		p.forget(ch)
		ch.terminate(err)
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("%w: %s not found", ErrPeerUnavailable, remote)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrPeerUnavailable, remote, err)
	}

	return ch, nil
}

// Close closes every channel and disconnects from the rendezvous.
func (p *Peer) Close() error {
	p.mu.Lock()
	conn := p.conn
	chans := slices.Collect(maps.Values(p.channels))
	p.conn = nil
	p.accept = nil
	p.channels = map[string]*Channel{}
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	for _, ch := range chans {
		if ch.terminate(nil) {
			_ = publishOn(conn, p.id, ch, frameClose, nil)
		}
	}

	err := conn.Flush()
	conn.Close()
	return err
}

func (p *Peer) handleConnect(msg *nats.Msg) {
	remote := string(msg.Data)
	link := msg.Header.Get(linkHeader)

	p.mu.Lock()
	accept := p.accept
	if accept == nil || remote == "" || link == "" {
		p.mu.Unlock()
		if err := msg.Respond([]byte(replyRejected)); err != nil {
			slog.Warn("rejecting connect request", "remote", remote, "error", err)
		}
		return
	}
	ch := newChannel(p, remote, link)
	old := p.channels[remote]
	p.channels[remote] = ch
	p.mu.Unlock()

	if old != nil {
		old.terminate(ErrReplaced)
	}

	if err := msg.Respond([]byte(replyAccepted)); err != nil {
		slog.Warn("accepting connect request", "remote", remote, "error", err)
		p.forget(ch)
		ch.terminate(err)
		return
	}

	accept(ch)
}

func (p *Peer) handleFrame(msg *nats.Msg) {
	remote := senderOf(msg.Subject)

	p.mu.Lock()
	ch := p.channels[remote]
	p.mu.Unlock()

	// Frames still in flight from a closed or replaced link must not touch its successor.
	if ch == nil || msg.Header.Get(linkHeader) != ch.link {
		return
	}

	switch msg.Header.Get(frameHeader) {
	case framePing:
		ch.touch()
	case frameClose:
		p.forget(ch)
		ch.terminate(nil)
	default:
		ch.deliver(msg.Data)
	}
}

func (p *Peer) heartbeat(done <-chan struct{}) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			p.pulse(now)
		}
	}
}

func (p *Peer) pulse(now time.Time) {
	p.mu.Lock()
	chans := slices.Collect(maps.Values(p.channels))
	p.mu.Unlock()

	for _, ch := range chans {
		if ch.silentFor(now) > p.heartbeatTimeout {
			slog.Warn("channel timed out", "remote", ch.remote)
			p.forget(ch)
			ch.terminate(ErrTimeout)
			continue
		}
		if err := p.publish(ch, framePing, nil); err != nil {
			slog.Warn("sending heartbeat", "remote", ch.remote, "error", err)
		}
	}
}

// lost handles the rendezvous connection closing for good.
func (p *Peer) lost(conn *nats.Conn) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	chans := slices.Collect(maps.Values(p.channels))
	p.conn = nil
	p.channels = map[string]*Channel{}
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.mu.Unlock()

	slog.Warn("rendezvous connection closed", "channels", len(chans))
	for _, ch := range chans {
		ch.terminate(ErrRendezvousLost)
	}
}

func (p *Peer) forget(ch *Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channels[ch.remote] == ch {
		delete(p.channels, ch.remote)
	}
}

func (p *Peer) publish(ch *Channel, kind string, data []byte) error {
	p.mu.Lock()
	conn, id := p.conn, p.id
	p.mu.Unlock()

	if conn == nil {
		return ErrNotOpen
	}
	return publishOn(conn, id, ch, kind, data)
}

func publishOn(conn *nats.Conn, from string, ch *Channel, kind string, data []byte) error {
	msg := nats.NewMsg(dataSubject(ch.remote, from))
	msg.Header.Set(frameHeader, kind)
	msg.Header.Set(linkHeader, ch.link)
	msg.Data = data
	return conn.PublishMsg(msg)
}
