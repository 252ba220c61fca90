package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-pulse/internal/node"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Node is what a browser front end drives.
type Node interface {
	View() node.View
	Subscribe(fn func(node.View)) func()
	Host(ctx context.Context) (string, error)
	Join(ctx context.Context, hostID string) error
	StartGame(ctx context.Context) (bool, error)
	Interact(ctx context.Context, targetID int) error
}

// Bridge serves a node's view over websockets and accepts the same operations a
// console offers. Every socket sees every view the node publishes.
type Bridge struct {
	node     Node
	addr     string
	upgrader websocket.Upgrader
	ready    chan struct{}
	bound    string
}

func NewBridge(n Node, addr string) *Bridge {
	return &Bridge{
		node: n,
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ready: make(chan struct{}),
	}
}

// Handler routes /ws to the websocket endpoint and /health to a liveness probe.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", b.serveSocket)
	return mux
}

// Ready is closed once Start is listening.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Addr is the bound address. It is only valid after Ready.
func (b *Bridge) Addr() string {
	return b.bound
}

func (b *Bridge) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", b.addr, err)
	}
	b.bound = l.Addr().String()
	close(b.ready)

	srv := &http.Server{
		Handler:     b.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	slog.InfoContext(ctx, "websocket bridge listening", "addr", b.bound)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving bridge: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down bridge: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving bridge: %w", err)
	}
	return nil
}

func (b *Bridge) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	views := make(chan node.View, 1)
	unsubscribe := b.node.Subscribe(func(v node.View) {
		for {
			select {
			case views <- v:
				return
			default:
			}
			select {
			case <-views:
			default:
			}
		}
	})
	defer unsubscribe()

	results := make(chan resultMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		b.writeLoop(ctx, conn, views, results)
	}()

	b.readLoop(ctx, conn, results)
	cancel()
	<-writerDone
}

// writeLoop owns every write to conn.
func (b *Bridge) writeLoop(ctx context.Context, conn *websocket.Conn, views <-chan node.View, results <-chan resultMessage) {
	if err := writeJSON(conn, newViewMessage(b.node.View())); err != nil {
		return
	}
	for {
		var msg any
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case v := <-views:
			msg = newViewMessage(v)
		case res := <-results:
			msg = res
		}
		if err := writeJSON(conn, msg); err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn, results chan<- resultMessage) {
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Warn("discarding malformed bridge message", "error", err)
			continue
		}

		res := b.apply(ctx, msg)
		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) apply(ctx context.Context, msg clientMessage) resultMessage {
	res := resultMessage{Type: typeResult, Op: msg.Type}

	var err error
	switch msg.Type {
	case opHost:
		res.HostID, err = b.node.Host(ctx)
	case opJoin:
		err = b.node.Join(ctx, msg.HostID)
	case opStart:
		var started bool
		started, err = b.node.StartGame(ctx)
		if err == nil && !started {
			err = errors.New("a game is already running")
		}
	case opInteract:
		err = b.node.Interact(ctx, msg.TargetID)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}

func writeJSON(conn *websocket.Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
