package listener

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"golang.org/x/crypto/ssh"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	lines   []string
	mu      sync.Mutex
}

func (r *blockingRunner) RunSession(ctx context.Context, conn io.ReadWriter) error {
	buf := make([]byte, 64)
	n, _ := conn.Read(buf)
	r.mu.Lock()
	r.lines = append(r.lines, string(buf[:n]))
	r.mu.Unlock()

	r.started <- struct{}{}
	<-r.release
	return nil
}

func TestConnectionManager_SessionLimit(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	cm := NewConnectionManager(runner, WithMaxSessions(1))

	first := &loopback{in: strings.NewReader("host\r\n"), out: &bytes.Buffer{}}
	done := make(chan struct{})
	go func() {
		cm.AcceptConnection(context.Background(), first)
		close(done)
	}()
	<-runner.started

	second := &loopback{in: strings.NewReader("status\n"), out: &bytes.Buffer{}}
	cm.AcceptConnection(context.Background(), second)
	testutil.AssertEqual(t, "turned away", second.out.String(), strings.ReplaceAll(busyMessage, "\n", "\r\n"))

	close(runner.release)
	<-done

	third := &loopback{in: strings.NewReader("status\n"), out: &bytes.Buffer{}}
	runner.release = make(chan struct{})
	close(runner.release)
	cm.AcceptConnection(context.Background(), third)
	<-runner.started

	runner.mu.Lock()
	defer runner.mu.Unlock()
	testutil.AssertEqual(t, "sessions", strings.Join(runner.lines, "|"), "host\n|status\n")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	handled := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, ln, func(ctx context.Context, conn net.Conn) {
			close(handled)
			<-ctx.Done()
		})
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was never handled")
	}

	cancel()
	select {
	case err := <-errCh:
		testutil.AssertEqual(t, "error", err, nil)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}

// failingListener fails every Accept with err until closed.
type failingListener struct {
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (l *failingListener) Accept() (net.Conn, error) {
	l.calls.Add(1)
	if l.closed.Load() {
		return nil, net.ErrClosed
	}
	return nil, l.err
}

func (l *failingListener) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *failingListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func TestServe_BacksOffAcceptErrors(t *testing.T) {
	ln := &failingListener{err: errors.New("too many open files")}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, ln, func(context.Context, net.Conn) {})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		testutil.AssertEqual(t, "error", err, nil)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
	if n := ln.calls.Load(); n > 10 {
		t.Errorf("accept retried %d times in 100ms", n)
	}
}

func TestServe_ListenerClosedElsewhere(t *testing.T) {
	ln := &failingListener{}
	ln.closed.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := serve(ctx, ln, func(context.Context, net.Conn) {})
	testutil.AssertEqual(t, "closed", errors.Is(err, net.ErrClosed), true)
}

func TestAcceptDelay(t *testing.T) {
	tests := map[string]struct {
		prev time.Duration
		exp  time.Duration
	}{
		"first failure": {prev: 0, exp: minAcceptDelay},
		"doubles":       {prev: 40 * time.Millisecond, exp: 80 * time.Millisecond},
		"capped":        {prev: 800 * time.Millisecond, exp: maxAcceptDelay},
		"stays capped":  {prev: maxAcceptDelay, exp: maxAcceptDelay},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "delay", acceptDelay(tt.prev), tt.exp)
		})
	}
}

func TestAwaitShell(t *testing.T) {
	in := make(chan *ssh.Request, 3)
	ready := awaitShell(in)

	in <- &ssh.Request{Type: "pty-req"}
	in <- &ssh.Request{Type: "env"}
	select {
	case <-ready:
		t.Fatal("ready before shell request")
	case <-time.After(20 * time.Millisecond):
	}

	in <- &ssh.Request{Type: "shell"}
	close(in)
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("shell request not seen")
	}
}
