package console

import (
	"context"

	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/node"
)

// Node is what a console session drives.
type Node interface {
	View() node.View
	Subscribe(fn func(node.View)) func()
	Host(ctx context.Context) (string, error)
	Join(ctx context.Context, hostID string) error
	StartGame(ctx context.Context) (bool, error)
	UseTuning(ctx context.Context, t game.Tuning) (bool, error)
	Interact(ctx context.Context, targetID int) error
}

// Profiles lists the tuning presets a host can start with.
type Profiles interface {
	Lines() []string
	Resolve(choice string) (string, *game.Profile, bool)
}

// Console serves line based sessions for a node. Every connection gets its own
// session; all of them drive the same node.
type Console struct {
	node     Node
	profiles Profiles
	commands []command
}

type ConsoleOpt func(*Console)

func WithProfiles(p Profiles) ConsoleOpt {
	return func(c *Console) {
		c.profiles = p
	}
}

func NewConsole(n Node, opts ...ConsoleOpt) *Console {
	c := &Console{node: n}
	for _, opt := range opts {
		opt(c)
	}
	c.commands = c.buildCommands()
	return c
}

func (c *Console) find(name string) (command, bool) {
	for _, cmd := range c.commands {
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return command{}, false
}
