package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

const handshakeTimeout = 10 * time.Second

// SshListener serves the console over ssh. Clients are not authenticated; the console
// only exposes the local node's own controls. Each connection gets one console.
type SshListener struct {
	addr    string
	cm      *ConnectionManager
	hostKey ssh.Signer
}

func NewSshListener(addr string, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	return &SshListener{
		addr:    addr,
		cm:      cm,
		hostKey: hostKey,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(l.hostKey)

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}
	slog.InfoContext(ctx, "listening for ssh", "addr", ln.Addr().String())

	return serve(ctx, ln, func(ctx context.Context, conn net.Conn) {
		l.handleConnection(ctx, conn, config)
	})
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		slog.WarnContext(ctx, "ssh handshake", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	_ = conn.SetDeadline(time.Time{})
	defer sshConn.Close()

	ctx = withLogger(ctx, slog.Default().With(
		"listener", "ssh",
		"remote", conn.RemoteAddr().String(),
		"user", sshConn.User(),
	))

	go func() {
		<-ctx.Done()
		sshConn.Close()
	}()
	go ssh.DiscardRequests(reqs)

	served := false
	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		if served {
			newChan.Reject(ssh.Prohibited, "one console per connection")
			continue
		}

		ch, requests, err := newChan.Accept()
		if err != nil {
			logger(ctx).WarnContext(ctx, "accepting ssh channel", "error", err)
			continue
		}
		served = true

		select {
		case <-awaitShell(requests):
			l.cm.AcceptConnection(ctx, ch)
		case <-ctx.Done():
		}
		ch.Close()
		sshConn.Close()
	}
}

// awaitShell answers channel requests and closes the returned channel once the client
// asks for a shell. Clients do not forward input before the shell reply. PTYs are
// refused so the client keeps local echo and line editing.
func awaitShell(in <-chan *ssh.Request) <-chan struct{} {
	ready := make(chan struct{})
	go func() {
		started := false
		for req := range in {
			ok := req.Type == "shell" && !started
			if req.WantReply {
				req.Reply(ok, nil)
			}
			if ok {
				started = true
				close(ready)
			}
		}
	}()
	return ready
}
