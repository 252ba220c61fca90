package node

import (
	"context"
	"fmt"

	"github.com/pixil98/go-pulse/internal/channel"
	"github.com/pixil98/go-pulse/internal/session"
)

// memNet is an in-process peer network. Every send is delivered synchronously.
type memNet struct {
	endpoints map[string]*memEndpoint
	channels  []*memChannel
}

func newMemNet() *memNet {
	return &memNet{endpoints: map[string]*memEndpoint{}}
}

func (n *memNet) endpoint(id string) *memEndpoint {
	return &memEndpoint{net: n, id: id}
}

// crash drops every channel owned by id as a transport fault would.
func (n *memNet) crash(id string, err error) {
	for _, ch := range n.channels {
		if ch.local == id {
			ch.fail(err)
		}
	}
}

type memEndpoint struct {
	net    *memNet
	id     string
	accept func(session.Channel)
}

func (e *memEndpoint) Open(context.Context) (string, error) {
	e.net.endpoints[e.id] = e
	return e.id, nil
}

func (e *memEndpoint) Listen(accept func(session.Channel)) { e.accept = accept }

func (e *memEndpoint) Dial(_ context.Context, remote string) (session.Channel, error) {
	target := e.net.endpoints[remote]
	if target == nil || target.accept == nil {
		return nil, fmt.Errorf("%w: %s not found", channel.ErrPeerUnavailable, remote)
	}

	mine := &memChannel{local: e.id, remote: remote}
	theirs := &memChannel{local: remote, remote: e.id}
	mine.peer, theirs.peer = theirs, mine
	e.net.channels = append(e.net.channels, mine, theirs)

	target.accept(theirs)
	return mine, nil
}

func (e *memEndpoint) Close() error {
	delete(e.net.endpoints, e.id)
	for _, ch := range e.net.channels {
		if ch.local == e.id {
			_ = ch.Close()
		}
	}
	return nil
}

type memChannel struct {
	local, remote string
	peer          *memChannel
	handler       channel.Handler
	pending       [][]byte
	closed        bool
	closeErr      error
	reported      bool
}

func (c *memChannel) RemoteID() string { return c.remote }

func (c *memChannel) Send(data []byte) error {
	if c.closed {
		return channel.ErrClosed
	}
	c.peer.deliver(data)
	return nil
}

func (c *memChannel) Close() error {
	if c.closed {
		return nil
	}
	c.end(nil)
	c.peer.end(nil)
	return nil
}

func (c *memChannel) Notify(h channel.Handler) {
	c.handler = h
	pending := c.pending
	c.pending = nil
	for _, data := range pending {
		h.OnData(data)
	}
	c.report()
}

func (c *memChannel) deliver(data []byte) {
	if c.closed {
		return
	}
	if c.handler.OnData == nil {
		c.pending = append(c.pending, data)
		return
	}
	c.handler.OnData(data)
}

func (c *memChannel) fail(err error) {
	c.end(err)
	c.peer.end(err)
}

func (c *memChannel) end(err error) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	c.report()
}

func (c *memChannel) report() {
	if !c.closed || c.reported || c.handler.OnClose == nil {
		return
	}
	c.reported = true
	c.handler.OnClose(c.closeErr)
}
