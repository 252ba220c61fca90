package channel

import "time"

type PeerOpt func(*Peer)

// WithName sets the client name reported to the rendezvous.
func WithName(name string) PeerOpt {
	return func(p *Peer) {
		p.name = name
	}
}

// WithRequestTimeout bounds how long Dial waits for the remote to answer.
func WithRequestTimeout(d time.Duration) PeerOpt {
	return func(p *Peer) {
		p.requestTimeout = d
	}
}

// WithHeartbeat sets how often channels are pinged and how long a silent remote is
// tolerated before its channel closes.
func WithHeartbeat(interval, timeout time.Duration) PeerOpt {
	return func(p *Peer) {
		p.heartbeatInterval = interval
		p.heartbeatTimeout = timeout
	}
}
