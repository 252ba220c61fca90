package channel

import (
	"sync"
	"time"
)

// Handler receives a channel's events. Handlers are never called concurrently for the
// same channel and must not call Close on it.
type Handler struct {
	OnData func(data []byte)
	// OnClose fires once. err is nil for an orderly close by either side.
	OnClose func(err error)
}

// Channel is an ordered, bidirectional message pipe to one remote peer.
type Channel struct {
	peer   *Peer
	remote string
	// link names one handshake. Frames from an earlier link to the same remote are dropped.
	link string

	// emitMu serializes handler calls so events are seen in order.
	emitMu sync.Mutex

	mu       sync.Mutex
	handler  Handler
	pending  [][]byte
	closed   bool
	closeErr error
	lastSeen time.Time
}

func newChannel(p *Peer, remote, link string) *Channel {
	return &Channel{
		peer:     p,
		remote:   remote,
		link:     link,
		lastSeen: time.Now(),
	}
}

// RemoteID returns the identity of the peer at the other end.
func (c *Channel) RemoteID() string {
	return c.remote
}

// Notify installs the event handler. Data that arrived earlier is delivered first, and
// a close that already happened is reported after it.
func (c *Channel) Notify(h Handler) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.handler = h
	pending := c.pending
	c.pending = nil
	closed, err := c.closed, c.closeErr
	c.mu.Unlock()

	if h.OnData != nil {
		for _, data := range pending {
			h.OnData(data)
		}
	}
	if closed && h.OnClose != nil {
		h.OnClose(err)
	}
}

// Send enqueues data for delivery.
func (c *Channel) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	return c.peer.publish(c, frameData, data)
}

// Close tears the channel down and tells the remote. Closing twice is a no-op.
func (c *Channel) Close() error {
	if !c.terminate(nil) {
		return nil
	}
	c.peer.forget(c)
	return c.peer.publish(c, frameClose, nil)
}

// Closed reports whether the channel is closed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) deliver(data []byte) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.lastSeen = time.Now()
	h := c.handler
	if h.OnData == nil {
		c.pending = append(c.pending, data)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	h.OnData(data)
}

func (c *Channel) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Channel) silentFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// terminate marks the channel closed and fires OnClose. It reports whether this call
// did the closing.
func (c *Channel) terminate(err error) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	c.closeErr = err
	c.pending = nil
	h := c.handler
	c.mu.Unlock()

	if h.OnClose != nil {
		h.OnClose(err)
	}
	return true
}
