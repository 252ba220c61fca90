package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// NatsServer is an embedded NATS broker peers use as their rendezvous. It only routes
// subjects; it holds no game state.
type NatsServer struct {
	ns    *server.Server
	ready chan struct{}

	startupTimeout time.Duration
	host           string
	port           int
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	s := &NatsServer{
		ready:          make(chan struct{}),
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:       s.host,
		Port:       s.port,
		ServerName: "pulse-rendezvous",
		NoLog:      true,
		NoSigs:     true, // Let the application handle signals
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns

	return s, nil
}

// Start runs the broker until ctx is cancelled.
func (n *NatsServer) Start(ctx context.Context) error {
	go n.ns.Start()

	if !n.ns.ReadyForConnections(n.startupTimeout) {
		n.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections")
	}
	close(n.ready)

	slog.InfoContext(ctx, "rendezvous listening", "url", n.ns.ClientURL())

	<-ctx.Done()
	slog.InfoContext(ctx, "rendezvous shutting down", "clients", n.ns.NumClients())
	n.ns.Shutdown()
	n.ns.WaitForShutdown()

	return nil
}

// Ready is closed once the broker accepts connections.
func (n *NatsServer) Ready() <-chan struct{} {
	return n.ready
}

// ClientURL returns the address clients should connect to. With a random port it is
// only meaningful after Ready.
func (n *NatsServer) ClientURL() string {
	if n.port <= 0 {
		return n.ns.ClientURL()
	}
	return fmt.Sprintf("nats://%s:%d", n.host, n.port)
}
