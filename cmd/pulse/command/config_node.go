package command

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-pulse/internal/channel"
	"github.com/pixil98/go-pulse/internal/driver"
	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/node"
	"github.com/pixil98/go-pulse/internal/session"
)

type NodeRole int

const (
	NodeRoleNone NodeRole = iota
	NodeRoleHost
	NodeRoleClient
)

func (r *NodeRole) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "none":
		*r = NodeRoleNone
	case "host":
		*r = NodeRoleHost
	case "client":
		*r = NodeRoleClient
	default:
		return fmt.Errorf("unknown node role: %s", text)
	}
	return nil
}

type NodeConfig struct {
	URL               string   `json:"url"`
	Name              string   `json:"name"`
	Role              NodeRole `json:"role"`
	HostID            string   `json:"host_id"`
	RetryDelay        string   `json:"retry_delay"`
	DialTimeout       string   `json:"dial_timeout"`
	RequestTimeout    string   `json:"request_timeout"`
	HeartbeatInterval string   `json:"heartbeat_interval"`
	HeartbeatTimeout  string   `json:"heartbeat_timeout"`
	Seed              *uint64  `json:"seed,omitempty"`
}

func (c *NodeConfig) validate() error {
	el := errors.NewErrorList()

	durations := map[string]string{
		"retry_delay":        c.RetryDelay,
		"dial_timeout":       c.DialTimeout,
		"request_timeout":    c.RequestTimeout,
		"heartbeat_interval": c.HeartbeatInterval,
		"heartbeat_timeout":  c.HeartbeatTimeout,
	}
	for name, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			el.Add(fmt.Errorf("parsing node.%s: %w", name, err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("node.%s must be positive", name))
		}
	}

	if (c.HeartbeatInterval == "") != (c.HeartbeatTimeout == "") {
		el.Add(fmt.Errorf("node.heartbeat_interval and node.heartbeat_timeout must be set together"))
	} else if c.HeartbeatInterval != "" {
		interval, ierr := time.ParseDuration(c.HeartbeatInterval)
		timeout, terr := time.ParseDuration(c.HeartbeatTimeout)
		if ierr == nil && terr == nil && timeout <= interval {
			el.Add(fmt.Errorf("node.heartbeat_timeout must be longer than node.heartbeat_interval"))
		}
	}

	switch c.Role {
	case NodeRoleClient:
		if c.HostID == "" {
			el.Add(fmt.Errorf("node.host_id is required for the client role"))
		}
	default:
		if c.HostID != "" {
			el.Add(fmt.Errorf("node.host_id is only used with the client role"))
		}
	}

	return el.Err()
}

func (c *NodeConfig) buildNode(url string, tuning game.Tuning) (*node.Node, error) {
	peerOpts := []channel.PeerOpt{}
	if c.Name != "" {
		peerOpts = append(peerOpts, channel.WithName(c.Name))
	}
	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing request_timeout: %w", err)
		}
		peerOpts = append(peerOpts, channel.WithRequestTimeout(d))
	}
	if c.HeartbeatInterval != "" {
		interval, err := time.ParseDuration(c.HeartbeatInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing heartbeat_interval: %w", err)
		}
		timeout, err := time.ParseDuration(c.HeartbeatTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing heartbeat_timeout: %w", err)
		}
		peerOpts = append(peerOpts, channel.WithHeartbeat(interval, timeout))
	}

	var managerOpts []session.ManagerOpt
	if c.RetryDelay != "" {
		d, err := time.ParseDuration(c.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing retry_delay: %w", err)
		}
		managerOpts = append(managerOpts, session.WithRetryDelay(d))
	}
	if c.DialTimeout != "" {
		d, err := time.ParseDuration(c.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing dial_timeout: %w", err)
		}
		managerOpts = append(managerOpts, session.WithDialTimeout(d))
	}

	opts := []node.NodeOpt{
		node.WithTuning(tuning),
		node.WithManagerOpts(managerOpts...),
	}
	if c.Seed != nil {
		opts = append(opts, node.WithRand(rand.New(rand.NewPCG(*c.Seed, *c.Seed))))
	}
	switch c.Role {
	case NodeRoleHost:
		opts = append(opts, node.WithAutoHost())
	case NodeRoleClient:
		opts = append(opts, node.WithAutoJoin(c.HostID))
	}

	peer := channel.NewPeer(url, peerOpts...)
	return node.NewNode(driver.NewDriver(), session.PeerEndpoint(peer), opts...), nil
}
