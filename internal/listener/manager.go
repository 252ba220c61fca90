package listener

import (
	"context"
	"io"
)

// SessionRunner runs one interactive session over a connection until it ends.
type SessionRunner interface {
	RunSession(ctx context.Context, conn io.ReadWriter) error
}

const busyMessage = "Too many consoles are open on this node. Try again later.\n"

// ConnectionManager hands accepted connections to the session runner. All listeners of
// a node share one manager, so the session limit covers telnet and ssh together.
type ConnectionManager struct {
	runner SessionRunner
	slots  chan struct{}
}

type ConnectionManagerOpt func(*ConnectionManager)

// WithMaxSessions caps concurrent sessions. Zero means no cap.
func WithMaxSessions(n int) ConnectionManagerOpt {
	return func(m *ConnectionManager) {
		if n > 0 {
			m.slots = make(chan struct{}, n)
		}
	}
}

func NewConnectionManager(r SessionRunner, opts ...ConnectionManagerOpt) *ConnectionManager {
	m := &ConnectionManager{
		runner: r,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	term := newTerminalConn(conn)

	if m.slots != nil {
		select {
		case m.slots <- struct{}{}:
			defer func() { <-m.slots }()
		default:
			logger(ctx).InfoContext(ctx, "turning away console, session limit reached")
			if _, err := io.WriteString(term, busyMessage); err != nil {
				logger(ctx).DebugContext(ctx, "writing busy message", "error", err)
			}
			return
		}
	}

	logger(ctx).InfoContext(ctx, "console session started")
	if err := m.runner.RunSession(ctx, term); err != nil && ctx.Err() == nil {
		logger(ctx).WarnContext(ctx, "console session", "error", err)
		return
	}
	logger(ctx).InfoContext(ctx, "console session ended")
}
