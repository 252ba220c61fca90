package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pixil98/go-pulse/internal/display"
	"github.com/pixil98/go-pulse/internal/node"
)

const banner = "Pulse. Type help for a list of commands."

type consoleSession struct {
	console *Console
	conn    io.ReadWriter
	last    node.View
	watch   bool
	quit    bool
}

// RunSession serves one connection until it quits, its input ends, or ctx is done.
func (c *Console) RunSession(ctx context.Context, conn io.ReadWriter) error {
	s := &consoleSession{
		console: c,
		conn:    conn,
		last:    c.node.View(),
	}

	// Only the newest view matters, so a slow session skips the ones in between.
	updates := make(chan node.View, 1)
	unsubscribe := c.node.Subscribe(func(v node.View) {
		for {
			select {
			case updates <- v:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		defer close(inputChan)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case inputChan <- scanner.Text():
			case <-done:
				return
			}
		}
		inputErrChan <- scanner.Err()
	}()

	if err := s.writeLine(banner); err != nil {
		return err
	}
	if err := s.prompt(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case v := <-updates:
			wrote, err := s.observe(v)
			if err != nil {
				return err
			}
			if wrote {
				if err := s.prompt(); err != nil {
					return err
				}
			}

		case line, ok := <-inputChan:
			if !ok {
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			err := s.exec(ctx, strings.TrimSpace(line))
			if err != nil {
				var userErr *UserError
				if !errors.As(err, &userErr) {
					return fmt.Errorf("command failed: %w", err)
				}
				if err := s.writeLine(userErr.Message); err != nil {
					return err
				}
			}

			if s.quit {
				if err := s.writeLine("Goodbye!"); err != nil {
					slog.WarnContext(ctx, "writing goodbye", "error", err)
				}
				return nil
			}

			if err := s.prompt(); err != nil {
				return err
			}
		}
	}
}

// observe reports what changed between the last view and v. It returns whether
// anything was written.
func (s *consoleSession) observe(v node.View) (bool, error) {
	prev := s.last
	s.last = v

	var lines []string
	if v.Status != prev.Status {
		lines = append(lines, fmt.Sprintf("Status: %s", display.Label(v.Status.String())))
	}
	if v.Notice != "" && v.Notice != prev.Notice {
		lines = append(lines, "* "+v.Notice)
	}
	if v.LastError != "" && v.LastError != prev.LastError {
		lines = append(lines, "! "+v.LastError)
	}
	if v.State.Running && !prev.State.Running {
		lines = append(lines, "The game has started.")
	}
	if v.State.Over && !prev.State.Over && v.LastError != node.LostHostMessage {
		lines = append(lines, fmt.Sprintf("Game over! Final score: %d", v.FinalScore))
	}
	if s.watch && v.State.Running && changedPlay(prev, v) {
		lines = append(lines, summary(v))
	}

	if len(lines) == 0 {
		return false, nil
	}
	return true, s.writeLine("\n" + strings.Join(lines, "\n"))
}

func changedPlay(a, b node.View) bool {
	if a.State.Score != b.State.Score || len(a.State.Targets) != len(b.State.Targets) {
		return true
	}
	for i := range a.State.Targets {
		if a.State.Targets[i].ID != b.State.Targets[i].ID {
			return true
		}
	}
	return false
}

func summary(v node.View) string {
	ids := make([]string, 0, len(v.State.Targets))
	for _, t := range v.State.Targets {
		ids = append(ids, fmt.Sprintf("#%d", t.ID))
	}
	targets := "none"
	if len(ids) > 0 {
		targets = strings.Join(ids, " ")
	}
	return fmt.Sprintf("Score %d | Health %.1f | Targets: %s", v.State.Score, v.State.Health, targets)
}

func (s *consoleSession) prompt() error {
	prompt := "> "
	if v := s.console.node.View(); v.State.Running {
		prompt = fmt.Sprintf("[%.0fHP %dpts] > ", v.State.Health, v.State.Score)
	}
	_, err := s.conn.Write([]byte(prompt))
	return err
}

func (s *consoleSession) write(text string) error {
	_, err := s.conn.Write([]byte(display.Wrap(text)))
	return err
}

func (s *consoleSession) writeLine(msg string) error {
	return s.write(msg + "\n\n")
}
