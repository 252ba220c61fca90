package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-pulse/internal/node"
	"github.com/pixil98/go-pulse/internal/session"
)

type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(ctx context.Context, s *consoleSession, args []string) error
}

// Usage and Help are read by the help template.
func (c command) Usage() string { return c.usage }
func (c command) Help() string  { return c.help }

func (c *Console) buildCommands() []command {
	return []command{
		{name: "help", aliases: []string{"?"}, usage: "help", help: "List commands.", run: cmdHelp},
		{name: "host", usage: "host", help: "Host a session and print its id.", run: cmdHost},
		{name: "join", usage: "join <id>", help: "Join the session hosted by <id>.", run: cmdJoin},
		{name: "profiles", usage: "profiles", help: "List tuning profiles.", run: cmdProfiles},
		{name: "start", usage: "start [profile]", help: "Start a game, optionally with a tuning profile.", run: cmdStart},
		{name: "hit", aliases: []string{"h"}, usage: "hit <target>", help: "Claim a target by number.", run: cmdHit},
		{name: "status", aliases: []string{"s", "look"}, usage: "status", help: "Show the game and session.", run: cmdStatus},
		{name: "watch", usage: "watch", help: "Toggle live updates while a game runs.", run: cmdWatch},
		{name: "quit", aliases: []string{"exit"}, usage: "quit", help: "Leave this console.", run: cmdQuit},
	}
}

// exec runs one input line. UserErrors are for the player; anything else ends the
// session.
func (s *consoleSession) exec(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd, ok := s.console.find(strings.ToLower(parts[0]))
	if !ok {
		return NewUserError(fmt.Sprintf("Unknown command %q. Type help for a list.", parts[0]))
	}
	return cmd.run(ctx, s, parts[1:])
}

func cmdHelp(_ context.Context, s *consoleSession, _ []string) error {
	out, err := expandTemplate(helpTemplate, s.console.commands)
	if err != nil {
		return err
	}
	return s.write(out)
}

func cmdHost(ctx context.Context, s *consoleSession, _ []string) error {
	id, err := s.console.node.Host(ctx)
	if err != nil {
		return roleError(err)
	}
	return s.writeLine(fmt.Sprintf("Hosting. Players join with: join %s", id))
}

func cmdJoin(ctx context.Context, s *consoleSession, args []string) error {
	if len(args) != 1 {
		return NewUserError("Usage: join <id>")
	}
	if err := s.console.node.Join(ctx, args[0]); err != nil {
		return roleError(err)
	}
	return s.writeLine(fmt.Sprintf("Connecting to %s...", args[0]))
}

func cmdProfiles(_ context.Context, s *consoleSession, _ []string) error {
	if s.console.profiles == nil {
		return NewUserError("No tuning profiles are loaded.")
	}
	lines := s.console.profiles.Lines()
	if len(lines) == 0 {
		return NewUserError("No tuning profiles are loaded.")
	}
	return s.writeLine(strings.Join(lines, "\n"))
}

func cmdStart(ctx context.Context, s *consoleSession, args []string) error {
	n := s.console.node

	if len(args) > 0 {
		if s.console.profiles == nil {
			return NewUserError("No tuning profiles are loaded.")
		}
		choice := strings.Join(args, " ")
		_, profile, ok := s.console.profiles.Resolve(choice)
		if !ok {
			return NewUserError(fmt.Sprintf("No profile %q. Type profiles for a list.", choice))
		}
		tuning, err := profile.Tuning()
		if err != nil {
			return NewUserError(fmt.Sprintf("Profile %s is invalid: %v", profile.Selector(), err))
		}
		applied, err := n.UseTuning(ctx, tuning)
		if err != nil {
			return roleError(err)
		}
		if !applied {
			return NewUserError("A game is already running.")
		}
	}

	started, err := n.StartGame(ctx)
	if err != nil {
		return roleError(err)
	}
	if !started {
		return NewUserError("A game is already running.")
	}
	return s.writeLine("Game started. Claim targets with: hit <number>")
}

func cmdHit(ctx context.Context, s *consoleSession, args []string) error {
	if len(args) != 1 {
		return NewUserError("Usage: hit <target>")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil {
		return NewUserError(fmt.Sprintf("%q is not a target number.", args[0]))
	}

	v := s.console.node.View()
	if v.Role == session.RoleNone {
		return NewUserError("You are not in a session. Try host or join <id>.")
	}
	if !v.State.Running {
		return NewUserError("No game is running.")
	}
	return s.console.node.Interact(ctx, id)
}

func cmdStatus(_ context.Context, s *consoleSession, _ []string) error {
	out, err := renderStatus(s.console.node.View())
	if err != nil {
		return err
	}
	return s.write(out)
}

func cmdWatch(_ context.Context, s *consoleSession, _ []string) error {
	s.watch = !s.watch
	if s.watch {
		return s.writeLine("Watching the game.")
	}
	return s.writeLine("Stopped watching.")
}

func cmdQuit(_ context.Context, s *consoleSession, _ []string) error {
	s.quit = true
	return nil
}

// roleError turns the expected refusals of a node into messages for the player.
func roleError(err error) error {
	switch {
	case errors.Is(err, node.ErrNotHost):
		return NewUserError("Only the host can do that.")
	case errors.Is(err, session.ErrRoleFixed):
		return NewUserError("This node already has a role.")
	case errors.Is(err, session.ErrNotReady):
		return NewUserError("Not connected to the rendezvous yet. Try again shortly.")
	case errors.Is(err, session.ErrInvalidTarget):
		return NewUserError("That is not a host you can join.")
	}
	return err
}

func renderStatus(v node.View) (string, error) {
	return expandTemplate(statusTemplate, newScreen(v))
}
