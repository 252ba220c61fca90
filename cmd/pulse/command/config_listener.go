package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-pulse/internal/listener"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"
)

// ConsoleProtocol is how remote players reach a console.
type ConsoleProtocol int

const (
	ProtocolTelnet ConsoleProtocol = iota
	ProtocolSSH
)

var protocolNames = map[ConsoleProtocol]string{
	ProtocolTelnet: "telnet",
	ProtocolSSH:    "ssh",
}

func (p ConsoleProtocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

func (p ConsoleProtocol) MarshalText() ([]byte, error) {
	if _, ok := protocolNames[p]; !ok {
		return nil, fmt.Errorf("unknown console protocol %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *ConsoleProtocol) UnmarshalText(text []byte) error {
	want := strings.ToLower(strings.TrimSpace(string(text)))
	for proto, name := range protocolNames {
		if name == want {
			*p = proto
			return nil
		}
	}
	return fmt.Errorf("unknown console protocol %q (want telnet or ssh)", text)
}

// ListenerConfig exposes the console to remote players. Bind defaults to every
// interface.
type ListenerConfig struct {
	Protocol    ConsoleProtocol `json:"protocol"`
	Bind        string          `json:"bind,omitempty"`
	Port        uint16          `json:"port"`
	HostKeyPath string          `json:"host_key_path,omitempty"`
}

func (c *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}
	if c.Bind != "" && c.Bind != "localhost" && net.ParseIP(c.Bind) == nil {
		el.Add(fmt.Errorf("bind %q is not an ip address", c.Bind))
	}
	if c.HostKeyPath != "" && c.Protocol != ProtocolSSH {
		el.Add(fmt.Errorf("host_key_path is only used by ssh listeners"))
	}

	return el.Err()
}

func (c *ListenerConfig) address() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(int(c.Port)))
}

func (c *ListenerConfig) build(cm *listener.ConnectionManager) (service.Worker, error) {
	switch c.Protocol {
	case ProtocolTelnet:
		return listener.NewTelnetListener(c.address(), cm), nil
	case ProtocolSSH:
		signer, err := hostKey(c.HostKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ssh host key: %w", err)
		}
		return listener.NewSshListener(c.address(), cm, signer), nil
	}
	return nil, fmt.Errorf("unknown console protocol %v", c.Protocol)
}

// hostKey loads the ssh host key at path, creating it on first use so the key survives
// restarts. Without a path every run gets a throwaway key.
func hostKey(path string) (ssh.Signer, error) {
	if path == "" {
		slog.Warn("ssh listener has no host_key_path, players will see a new host key every run")
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return ssh.NewSignerFromKey(priv)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = writeHostKey(path)
	}
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return signer, nil
}

func writeHostKey(path string) ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	block, err := ssh.MarshalPrivateKey(priv, "pulse console")
	if err != nil {
		return nil, err
	}

	data := pem.EncodeToMemory(block)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("saving new host key: %w", err)
	}
	slog.Info("generated ssh host key", "path", path)
	return data, nil
}
