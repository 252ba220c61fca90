package command

import (
	"fmt"

	"github.com/pixil98/go-pulse/internal/bridge"
	"github.com/pixil98/go-pulse/internal/console"
	"github.com/pixil98/go-pulse/internal/listener"
	"github.com/pixil98/go-pulse/internal/tui"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	workers := service.WorkerList{}

	// Embedded rendezvous
	url := cfg.Node.URL
	if cfg.Rendezvous.Enabled {
		srv, err := cfg.Rendezvous.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating rendezvous: %w", err)
		}
		workers["rendezvous"] = srv
		if url == "" {
			url = srv.ClientURL()
		}
	}

	// The node retries until the rendezvous is reachable, so start order does not matter.
	tuning, profiles, err := cfg.Tuning.build()
	if err != nil {
		return nil, fmt.Errorf("loading tuning: %w", err)
	}
	n, err := cfg.Node.buildNode(url, tuning)
	if err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}
	workers["node"] = n

	// Presentation
	var consoleOpts []console.ConsoleOpt
	if profiles != nil {
		consoleOpts = append(consoleOpts, console.WithProfiles(profiles))
	}
	con := console.NewConsole(n, consoleOpts...)

	if len(cfg.Listeners) > 0 {
		cm := listener.NewConnectionManager(con, listener.WithMaxSessions(cfg.MaxConsoles))
		listeners := make(service.WorkerList, len(cfg.Listeners))
		for i, l := range cfg.Listeners {
			w, err := l.build(cm)
			if err != nil {
				return nil, fmt.Errorf("creating listener %d: %w", i, err)
			}
			listeners[fmt.Sprintf("listener-%d", i)] = w
		}
		workers["listeners"] = &listeners
	}

	if cfg.Bridge.Address != "" {
		workers["bridge"] = bridge.NewBridge(n, cfg.Bridge.Address)
	}

	if cfg.Terminal.Enabled {
		workers["terminal"] = tui.NewTUI(n, con)
	}

	return workers, nil
}
