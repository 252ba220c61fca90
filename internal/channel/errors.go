package channel

import "errors"

var (
	// ErrConnectionInit means the rendezvous could not be reached.
	ErrConnectionInit = errors.New("connecting to rendezvous")
	// ErrPeerUnavailable means the dialed peer does not exist or is not hosting.
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrNotOpen         = errors.New("peer not open")
	ErrClosed          = errors.New("channel closed")
	// ErrTimeout closes a channel whose remote stopped sending heartbeats.
	ErrTimeout = errors.New("channel timed out")
	// ErrReplaced closes a channel when the same remote opens a new one.
	ErrReplaced       = errors.New("channel replaced by a new connection")
	ErrRendezvousLost = errors.New("lost connection to rendezvous")
)
