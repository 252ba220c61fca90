package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// serve accepts on ln until ctx is done, running handle for every connection. Open
// connections get a context that is cancelled on shutdown, and serve waits for them.
func serve(ctx context.Context, ln net.Listener, handle func(context.Context, net.Conn)) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	stop := func() {
		cancelConns()
		wg.Wait()
	}

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				stop()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				stop()
				return fmt.Errorf("accepting on %s: %w", ln.Addr(), err)
			}

			delay = acceptDelay(delay)
			slog.ErrorContext(ctx, "accepting connection", "addr", ln.Addr().String(), "error", err, "retry", delay)
			select {
			case <-ctx.Done():
				stop()
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			handle(connCtx, conn)
		}()
	}
}

// acceptDelay backs off after a failed accept, doubling up to a second.
func acceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(prev*2, maxAcceptDelay)
}
