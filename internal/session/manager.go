package session

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/pixil98/go-pulse/internal/channel"
	"github.com/pixil98/go-pulse/internal/driver"
)

// Record is the host's view of one connected peer.
type Record struct {
	PeerID   string
	Channel  Channel
	JoinedAt time.Time

	order uint64
}

// Manager tracks the local role and the channels of a session: every connected client
// on a host, the single host channel on a client. Apart from Open, its methods must be
// called on the driver, and every event it raises is delivered there.
type Manager struct {
	driver      *driver.Driver
	endpoint    Endpoint
	retryDelay  time.Duration
	dialTimeout time.Duration
	async       func(func())

	localID string
	role    Role
	status  Status
	lastErr error
	closed  bool

	peers    map[string]*Record
	joins    uint64
	host     *Record
	attempts uint64

	onMessage          []func(from string, data []byte)
	onPeerJoined       []func(peerID string)
	onPeerLeft         []func(peerID string)
	onConnectionLost   []func(err error)
	onConnectedToHost  []func(hostID string)
	onConnectionFailed []func(err error)
	onStatus           []func(Status)
}

func NewManager(d *driver.Driver, ep Endpoint, opts ...ManagerOpt) *Manager {
	m := &Manager{
		driver:      d,
		endpoint:    ep,
		retryDelay:  2 * time.Second,
		dialTimeout: 10 * time.Second,
		async:       func(fn func()) { go fn() },
		peers:       map[string]*Record{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// OnMessage registers fn for data from current peers. Like every subscription it must be
// registered before the manager is used.
func (m *Manager) OnMessage(fn func(from string, data []byte)) {
	m.onMessage = append(m.onMessage, fn)
}

func (m *Manager) OnPeerJoined(fn func(peerID string)) {
	m.onPeerJoined = append(m.onPeerJoined, fn)
}

func (m *Manager) OnPeerLeft(fn func(peerID string)) {
	m.onPeerLeft = append(m.onPeerLeft, fn)
}

// OnConnectionLost fires on a client when its host channel goes away.
func (m *Manager) OnConnectionLost(fn func(err error)) {
	m.onConnectionLost = append(m.onConnectionLost, fn)
}

func (m *Manager) OnConnectedToHost(fn func(hostID string)) {
	m.onConnectedToHost = append(m.onConnectedToHost, fn)
}

func (m *Manager) OnConnectionFailed(fn func(err error)) {
	m.onConnectionFailed = append(m.onConnectionFailed, fn)
}

func (m *Manager) OnStatus(fn func(Status)) {
	m.onStatus = append(m.onStatus, fn)
}

func (m *Manager) LocalID() string {
	return m.localID
}

func (m *Manager) Role() Role {
	return m.role
}

func (m *Manager) Status() Status {
	return m.status
}

// LastError is the most recent connection failure, nil if none.
func (m *Manager) LastError() error {
	return m.lastErr
}

// HostID returns the host this client is bound to, empty otherwise.
func (m *Manager) HostID() string {
	if m.host == nil {
		return ""
	}
	return m.host.PeerID
}

// Peers returns the connected peers in join order.
func (m *Manager) Peers() []Record {
	recs := make([]Record, 0, len(m.peers))
	for _, rec := range m.sortedPeers() {
		recs = append(recs, *rec)
	}
	return recs
}

// Open attaches to the peer network, retrying on a delay until it succeeds or ctx ends.
// It blocks and must not be called on the driver.
func (m *Manager) Open(ctx context.Context) error {
	for {
		if err := m.driver.Do(ctx, func() { m.setStatus(StatusConnecting) }); err != nil {
			return err
		}

		id, err := m.endpoint.Open(ctx)
		if err == nil {
			return m.driver.Do(ctx, func() {
				m.localID = id
				m.lastErr = nil
				m.setStatus(StatusReady)
			})
		}

		slog.WarnContext(ctx, "opening peer endpoint", "error", err, "retry", m.retryDelay)
		if err := m.driver.Do(ctx, func() { m.fail(err) }); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
}

// BecomeHost fixes the role to host and starts accepting peers.
func (m *Manager) BecomeHost() (string, error) {
	switch {
	case m.role == RoleClient:
		return "", ErrRoleFixed
	case m.localID == "":
		return "", ErrNotReady
	case m.role == RoleHost:
		return m.localID, nil
	}

	m.role = RoleHost
	m.endpoint.Listen(func(ch Channel) {
		m.driver.Post(func() { m.admit(ch) })
	})

	slog.Info("hosting session", "id", m.localID)
	return m.localID, nil
}

// ConnectToHost fixes the role to client and dials hostID. The outcome arrives later
// through OnConnectedToHost or OnConnectionFailed. Connecting again replaces the current
// host channel.
func (m *Manager) ConnectToHost(hostID string) error {
	switch {
	case hostID == "" || hostID == m.localID:
		return fmt.Errorf("%w: %q", ErrInvalidTarget, hostID)
	case m.role == RoleHost:
		return ErrRoleFixed
	case m.localID == "":
		return ErrNotReady
	}

	m.role = RoleClient
	m.dropHost()
	m.attempts++
	attempt := m.attempts
	m.setStatus(StatusConnecting)

	m.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
		defer cancel()

		ch, err := m.endpoint.Dial(ctx, hostID)
		m.driver.Post(func() { m.dialed(attempt, hostID, ch, err) })
	})

	return nil
}

// Broadcast sends data to every connected peer in join order and returns how many sends
// succeeded. A peer whose send fails is dropped as if it had disconnected. Off a host
// it does nothing.
func (m *Manager) Broadcast(data []byte) int {
	if m.role != RoleHost {
		return 0
	}

	sent := 0
	for _, rec := range m.sortedPeers() {
		if m.peers[rec.PeerID] != rec {
			continue
		}
		if err := rec.Channel.Send(data); err != nil {
			m.leave(rec, fmt.Errorf("%w: %w", ErrChannel, err))
			continue
		}
		sent++
	}
	return sent
}

// SendToHost sends data to the bound host. It reports false when there is no host
// channel to send on.
func (m *Manager) SendToHost(data []byte) bool {
	if m.role != RoleClient || m.host == nil {
		return false
	}
	if err := m.host.Channel.Send(data); err != nil {
		m.lose(m.host, fmt.Errorf("%w: %w", ErrChannel, err))
		return false
	}
	return true
}

// SendTo sends data to one connected peer. A failed send drops the peer.
func (m *Manager) SendTo(peerID string, data []byte) bool {
	rec := m.peers[peerID]
	if rec == nil {
		return false
	}
	if err := rec.Channel.Send(data); err != nil {
		m.leave(rec, fmt.Errorf("%w: %w", ErrChannel, err))
		return false
	}
	return true
}

// Close detaches from the peer network. No events are raised afterwards.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.peers = map[string]*Record{}
	m.host = nil
	m.setStatus(StatusDisconnected)
	return m.endpoint.Close()
}

func (m *Manager) admit(ch Channel) {
	if m.closed || m.role != RoleHost {
		_ = ch.Close()
		return
	}

	id := ch.RemoteID()
	if old := m.peers[id]; old != nil {
		m.leave(old, nil)
	}

	m.joins++
	rec := &Record{
		PeerID:   id,
		Channel:  ch,
		JoinedAt: m.driver.Now(),
		order:    m.joins,
	}
	m.peers[id] = rec
	m.watch(rec, m.leave)

	slog.Info("peer joined", "peer", id, "peers", len(m.peers))
	m.setStatus(StatusConnected)
	for _, fn := range m.onPeerJoined {
		fn(id)
	}
}

func (m *Manager) dialed(attempt uint64, hostID string, ch Channel, err error) {
	if m.closed || attempt != m.attempts {
		if ch != nil {
			_ = ch.Close()
		}
		return
	}

	if err != nil {
		slog.Warn("connecting to host", "host", hostID, "error", err)
		m.fail(err)
		for _, fn := range m.onConnectionFailed {
			fn(err)
		}
		return
	}

	rec := &Record{
		PeerID:   hostID,
		Channel:  ch,
		JoinedAt: m.driver.Now(),
	}
	m.host = rec
	m.lastErr = nil
	m.watch(rec, m.lose)

	slog.Info("connected to host", "host", hostID)
	m.setStatus(StatusConnected)
	for _, fn := range m.onConnectedToHost {
		fn(hostID)
	}
}

// watch routes a record's channel events onto the driver. ended handles the close.
func (m *Manager) watch(rec *Record, ended func(*Record, error)) {
	rec.Channel.Notify(channel.Handler{
		OnData: func(data []byte) {
			m.driver.Post(func() { m.receive(rec, data) })
		},
		OnClose: func(err error) {
			m.driver.Post(func() {
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrChannel, err)
				}
				ended(rec, err)
			})
		},
	})
}

func (m *Manager) receive(rec *Record, data []byte) {
	if !m.current(rec) {
		slog.Debug("dropping message", "peer", rec.PeerID, "error", ErrStaleMessage)
		return
	}
	for _, fn := range m.onMessage {
		fn(rec.PeerID, data)
	}
}

// current reports whether rec is still a live record of this manager.
func (m *Manager) current(rec *Record) bool {
	if m.closed {
		return false
	}
	if m.role == RoleClient {
		return m.host == rec
	}
	return m.peers[rec.PeerID] == rec
}

// leave removes a peer on the host.
func (m *Manager) leave(rec *Record, err error) {
	if m.closed || m.peers[rec.PeerID] != rec {
		return
	}
	delete(m.peers, rec.PeerID)
	_ = rec.Channel.Close()

	slog.Info("peer left", "peer", rec.PeerID, "error", err, "peers", len(m.peers))
	if len(m.peers) == 0 {
		m.setStatus(StatusReady)
	}
	for _, fn := range m.onPeerLeft {
		fn(rec.PeerID)
	}
}

// lose handles the host channel of a client going away.
func (m *Manager) lose(rec *Record, err error) {
	if m.closed || m.host != rec {
		return
	}
	m.host = nil
	_ = rec.Channel.Close()

	if err == nil {
		err = fmt.Errorf("%w: host closed the connection", ErrChannel)
	}
	slog.Warn("lost connection to host", "host", rec.PeerID, "error", err)
	m.lastErr = err
	m.setStatus(StatusDisconnected)
	for _, fn := range m.onConnectionLost {
		fn(err)
	}
}

// dropHost quietly closes the current host channel before a new dial.
func (m *Manager) dropHost() {
	if m.host == nil {
		return
	}
	rec := m.host
	m.host = nil
	_ = rec.Channel.Close()
}

func (m *Manager) fail(err error) {
	m.lastErr = err
	m.setStatus(StatusError)
}

func (m *Manager) setStatus(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	for _, fn := range m.onStatus {
		fn(s)
	}
}

func (m *Manager) sortedPeers() []*Record {
	recs := slices.Collect(maps.Values(m.peers))
	slices.SortFunc(recs, func(a, b *Record) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	return recs
}

