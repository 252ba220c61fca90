package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

type Config struct {
	Rendezvous NatsConfig       `json:"rendezvous"`
	Node       NodeConfig       `json:"node"`
	Tuning     TuningConfig     `json:"tuning"`
	Listeners  []ListenerConfig `json:"listeners"`
	Bridge     BridgeConfig     `json:"bridge"`
	Terminal   TerminalConfig   `json:"terminal"`

	// MaxConsoles caps concurrent console sessions across all listeners. Zero is no cap.
	MaxConsoles int `json:"max_consoles"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Rendezvous.validate())
	el.Add(c.Node.validate())
	el.Add(c.Tuning.validate())

	if c.Node.URL == "" {
		switch {
		case !c.Rendezvous.Enabled:
			el.Add(fmt.Errorf("node.url is required unless the rendezvous is enabled"))
		case c.Rendezvous.Port < 0:
			el.Add(fmt.Errorf("node.url is required when the rendezvous uses a random port"))
		}
	}

	if c.MaxConsoles < 0 {
		el.Add(fmt.Errorf("max_consoles must not be negative"))
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	if len(c.Listeners) == 0 && c.Bridge.Address == "" && !c.Terminal.Enabled && c.Node.Role == NodeRoleNone {
		el.Add(fmt.Errorf("nothing can drive the node: configure a listener, the bridge, the terminal, or node.role"))
	}

	return el.Err()
}

type BridgeConfig struct {
	Address string `json:"address"`
}

type TerminalConfig struct {
	Enabled bool `json:"enabled"`
}
