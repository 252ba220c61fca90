package tui

import (
	"context"
	"io"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/pixil98/go-pulse/internal/console"
	"github.com/pixil98/go-pulse/internal/node"
	"github.com/rivo/tview"
)

// TUI is a local terminal front end: the board on top and a console session below.
type TUI struct {
	node    console.Node
	console *console.Console
	screen  tcell.Screen
}

type TUIOpt func(*TUI)

// WithScreen replaces the terminal.
func WithScreen(s tcell.Screen) TUIOpt {
	return func(t *TUI) {
		t.screen = s
	}
}

func NewTUI(n console.Node, c *console.Console, opts ...TUIOpt) *TUI {
	t := &TUI{node: n, console: c}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the terminal until the console session quits or ctx is done.
func (t *TUI) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := tview.NewApplication()
	if t.screen != nil {
		app.SetScreen(t.screen)
	}

	board := tview.NewTextView()
	board.SetBorder(true).SetTitle(" pulse ")

	output := tview.NewTextView()
	output.SetScrollable(true)
	output.ScrollToEnd()
	output.SetChangedFunc(func() {
		app.Draw()
	})
	output.SetBorder(true).SetTitle(" console ")

	logs := tview.NewTextView()
	logs.SetScrollable(true)
	logs.ScrollToEnd()
	logs.SetChangedFunc(func() {
		app.Draw()
	})
	logs.SetBorder(true).SetTitle(" log ")

	// The terminal belongs to tview until Run returns.
	defer redirectLogs(logs)()

	inR, inW := io.Pipe()
	input := tview.NewInputField()
	input.SetLabel("> ")
	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := input.GetText()
		input.SetText("")
		go submit(inW, line)
	})

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(board, fieldHeight+6, 0, false).
		AddItem(output, 0, 2, false).
		AddItem(logs, 0, 1, false).
		AddItem(input, 1, 0, true)
	app.SetRoot(root, true)

	board.SetText(renderBoard(t.node.View(), fieldWidth, fieldHeight))

	views := make(chan node.View, 1)
	unsubscribe := t.node.Subscribe(func(v node.View) {
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

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-views:
				text := renderBoard(v, fieldWidth, fieldHeight)
				app.QueueUpdateDraw(func() {
					board.SetText(text)
				})
			}
		}
	}()

	go func() {
		err := t.console.RunSession(ctx, readWriter{Reader: inR, Writer: output})
		if err != nil && ctx.Err() == nil {
			slog.Warn("terminal console ended", "error", err)
		}
		app.Stop()
	}()

	go func() {
		<-ctx.Done()
		inR.Close()
		app.Stop()
	}()

	return app.Run()
}

// redirectLogs sends the default logger to w and returns a func restoring the previous
// one.
func redirectLogs(w io.Writer) func() {
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
	return func() {
		slog.SetDefault(prev)
	}
}

func submit(w io.Writer, line string) {
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		slog.Debug("terminal input dropped", "error", err)
	}
}

type readWriter struct {
	io.Reader
	io.Writer
}
