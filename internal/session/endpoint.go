package session

import (
	"context"

	"github.com/pixil98/go-pulse/internal/channel"
)

// Channel is one open pipe to a remote peer.
type Channel interface {
	RemoteID() string
	Send(data []byte) error
	Close() error
	Notify(h channel.Handler)
}

// Endpoint is the local attachment to the peer network.
type Endpoint interface {
	Open(ctx context.Context) (string, error)
	Listen(accept func(Channel))
	Dial(ctx context.Context, remoteID string) (Channel, error)
	Close() error
}

// PeerEndpoint adapts a NATS peer to an Endpoint.
func PeerEndpoint(p *channel.Peer) Endpoint {
	return peerEndpoint{peer: p}
}

type peerEndpoint struct {
	peer *channel.Peer
}

func (e peerEndpoint) Open(ctx context.Context) (string, error) {
	return e.peer.Open(ctx)
}

func (e peerEndpoint) Listen(accept func(Channel)) {
	e.peer.Listen(func(ch *channel.Channel) {
		accept(ch)
	})
}

func (e peerEndpoint) Dial(ctx context.Context, remoteID string) (Channel, error) {
	ch, err := e.peer.Dial(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (e peerEndpoint) Close() error {
	return e.peer.Close()
}
