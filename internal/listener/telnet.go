package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/iammegalith/telnet"
)

// TelnetListener serves the console over plain telnet.
type TelnetListener struct {
	addr string
	cm   *ConnectionManager
}

func NewTelnetListener(addr string, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		addr: addr,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	h := newTelnetHandler(l.cm)
	svr := telnet.NewServer(l.addr, h)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svr.ListenAndServe()
	}()
	slog.InfoContext(ctx, "listening for telnet", "addr", l.addr)

	select {
	case err := <-errCh:
		h.Stop()
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%s is already in use (another node running?)", l.addr)
		}
		if err != nil {
			return fmt.Errorf("serving telnet on %s: %w", l.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	svr.Stop()
	h.Stop()
	<-errCh
	return nil
}

// telnetHandler runs a console per connection. Sessions share one context so Stop
// ends all of them.
type telnetHandler struct {
	cm       *ConnectionManager
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	ids      atomic.Uint64
}

func newTelnetHandler(cm *ConnectionManager) *telnetHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &telnetHandler{
		cm:     cm,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *telnetHandler) HandleTelnet(conn *telnet.Connection) {
	h.sessions.Add(1)
	defer h.sessions.Done()

	ctx := withLogger(h.ctx, slog.Default().With("listener", "telnet", "conn", h.ids.Add(1)))
	defer func() {
		if err := conn.Close(); err != nil {
			logger(ctx).DebugContext(ctx, "closing telnet connection", "error", err)
		}
	}()

	h.cm.AcceptConnection(ctx, conn)
}

func (h *telnetHandler) Stop() {
	h.cancel()
	h.sessions.Wait()
}
