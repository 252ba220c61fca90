package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-testutil"
)

func writeProfile(t *testing.T, dir, id, spec string) {
	t.Helper()
	body := `{"version":1,"kind":"tuning-profile","id":"` + id + `","spec":` + spec + `}`
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0o644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}
}

func TestConfig_Unmarshal(t *testing.T) {
	raw := `{
		"rendezvous": {"enabled": true, "port": 4333},
		"node": {"role": "client", "host_id": "abc", "retry_delay": "1s"},
		"listeners": [{"protocol": "ssh", "port": 2222}],
		"bridge": {"address": ":8080"},
		"terminal": {"enabled": true}
	}`

	var cfg Config
	err := json.Unmarshal([]byte(raw), &cfg)
	testutil.AssertEqual(t, "error", err, nil)
	testutil.AssertEqual(t, "role", cfg.Node.Role, NodeRoleClient)
	testutil.AssertEqual(t, "listener protocol", cfg.Listeners[0].Protocol, ProtocolSSH)
	testutil.AssertEqual(t, "rendezvous port", cfg.Rendezvous.Port, 4333)
	testutil.AssertEqual(t, "valid", cfg.Validate(), nil)
}

func TestConfig_UnmarshalUnknownRole(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte(`{"node": {"role": "spectator"}}`), &cfg)
	testutil.AssertErrorContains(t, err, "unknown node role")
}

func TestConfig_Validate(t *testing.T) {
	profiles := t.TempDir()

	tests := map[string]struct {
		cfg    Config
		expErr string
	}{
		"external rendezvous": {
			cfg: Config{
				Node:      NodeConfig{URL: "nats://127.0.0.1:4222"},
				Listeners: []ListenerConfig{{Protocol: ProtocolTelnet, Port: 4000}},
			},
		},
		"embedded rendezvous": {
			cfg: Config{
				Rendezvous: NatsConfig{Enabled: true},
				Node:       NodeConfig{Role: NodeRoleHost},
			},
		},
		"no url": {
			cfg: Config{
				Node: NodeConfig{Role: NodeRoleHost},
			},
			expErr: "node.url is required unless the rendezvous is enabled",
		},
		"random port without url": {
			cfg: Config{
				Rendezvous: NatsConfig{Enabled: true, Port: -1},
				Node:       NodeConfig{Role: NodeRoleHost},
			},
			expErr: "random port",
		},
		"port out of range": {
			cfg: Config{
				Rendezvous: NatsConfig{Enabled: true, Port: 70000},
				Node:       NodeConfig{URL: "nats://x", Role: NodeRoleHost},
			},
			expErr: "out of range",
		},
		"bad start timeout": {
			cfg: Config{
				Rendezvous: NatsConfig{Enabled: true, StartTimeout: "soon"},
				Node:       NodeConfig{Role: NodeRoleHost},
			},
			expErr: "parsing rendezvous.start_timeout",
		},
		"nothing drives the node": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://127.0.0.1:4222"},
			},
			expErr: "nothing can drive the node",
		},
		"client without host id": {
			cfg: Config{
				Node:     NodeConfig{URL: "nats://x", Role: NodeRoleClient},
				Terminal: TerminalConfig{Enabled: true},
			},
			expErr: "node.host_id is required",
		},
		"host id without client role": {
			cfg: Config{
				Node:   NodeConfig{URL: "nats://x", HostID: "abc"},
				Bridge: BridgeConfig{Address: ":8080"},
			},
			expErr: "only used with the client role",
		},
		"bad duration": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://x", Role: NodeRoleHost, DialTimeout: "ten"},
			},
			expErr: "parsing node.dial_timeout",
		},
		"negative duration": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://x", Role: NodeRoleHost, RetryDelay: "-1s"},
			},
			expErr: "node.retry_delay must be positive",
		},
		"heartbeat half set": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://x", Role: NodeRoleHost, HeartbeatInterval: "1s"},
			},
			expErr: "must be set together",
		},
		"heartbeat timeout too short": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://x", Role: NodeRoleHost, HeartbeatInterval: "2s", HeartbeatTimeout: "1s"},
			},
			expErr: "must be longer",
		},
		"negative console cap": {
			cfg: Config{
				Node:        NodeConfig{URL: "nats://x", Role: NodeRoleHost},
				MaxConsoles: -1,
			},
			expErr: "max_consoles must not be negative",
		},
		"listener without port": {
			cfg: Config{
				Node:      NodeConfig{URL: "nats://x"},
				Listeners: []ListenerConfig{{Protocol: ProtocolTelnet}},
			},
			expErr: "listener 0: port must be set",
		},
		"bind not an ip": {
			cfg: Config{
				Node:      NodeConfig{URL: "nats://x"},
				Listeners: []ListenerConfig{{Protocol: ProtocolTelnet, Bind: "eth0", Port: 23}},
			},
			expErr: "listener 0: bind \"eth0\" is not an ip address",
		},
		"host key on telnet": {
			cfg: Config{
				Node:      NodeConfig{URL: "nats://x"},
				Listeners: []ListenerConfig{{Protocol: ProtocolTelnet, Port: 23, HostKeyPath: "key"}},
			},
			expErr: "only used by ssh",
		},
		"profile without path": {
			cfg: Config{
				Node:   NodeConfig{URL: "nats://x", Role: NodeRoleHost},
				Tuning: TuningConfig{Profile: "casual"},
			},
			expErr: "tuning.profile needs tuning.profiles.path",
		},
		"missing profile dir": {
			cfg: Config{
				Node:   NodeConfig{URL: "nats://x", Role: NodeRoleHost},
				Tuning: TuningConfig{Profiles: AssetConfig[*game.Profile]{Path: filepath.Join(profiles, "missing")}},
			},
			expErr: "tuning.profiles: invalid path",
		},
		"profile dir": {
			cfg: Config{
				Node:   NodeConfig{URL: "nats://x", Role: NodeRoleHost},
				Tuning: TuningConfig{Profiles: AssetConfig[*game.Profile]{Path: profiles}},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expErr == "" {
				testutil.AssertEqual(t, "error", err, nil)
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestTuningConfig_Build(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "casual", `{"name":"Casual","drain_per_tick":0.5,"tick_interval":"200ms"}`)
	writeProfile(t, dir, "frantic", `{"name":"Frantic","min_spawn_delay":"100ms"}`)

	tests := map[string]struct {
		cfg      TuningConfig
		expTick  time.Duration
		expDrain float64
		expMenu  bool
		expErr   string
	}{
		"defaults": {
			cfg:      TuningConfig{},
			expTick:  game.DefaultTuning().TickInterval,
			expDrain: game.DefaultTuning().DrainPerTick,
		},
		"menu only": {
			cfg:      TuningConfig{Profiles: AssetConfig[*game.Profile]{Path: dir}},
			expTick:  game.DefaultTuning().TickInterval,
			expDrain: game.DefaultTuning().DrainPerTick,
			expMenu:  true,
		},
		"selected profile": {
			cfg:      TuningConfig{Profiles: AssetConfig[*game.Profile]{Path: dir}, Profile: "casual"},
			expTick:  200 * time.Millisecond,
			expDrain: 0.5,
			expMenu:  true,
		},
		"unknown profile": {
			cfg:    TuningConfig{Profiles: AssetConfig[*game.Profile]{Path: dir}, Profile: "zen"},
			expErr: `tuning profile "zen" not found`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tuning, menu, err := tt.cfg.build()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			testutil.AssertEqual(t, "error", err, nil)
			testutil.AssertEqual(t, "tick", tuning.TickInterval, tt.expTick)
			testutil.AssertEqual(t, "drain", tuning.DrainPerTick, tt.expDrain)
			testutil.AssertEqual(t, "menu", menu != nil, tt.expMenu)
			if menu != nil {
				testutil.AssertEqual(t, "menu lines", strings.Contains(strings.Join(menu.Lines(), "\n"), "Frantic"), true)
			}
		})
	}
}

func TestBuildWorkers(t *testing.T) {
	tests := map[string]struct {
		cfg        Config
		expWorkers []string
	}{
		"host with everything": {
			cfg: Config{
				Rendezvous: NatsConfig{Enabled: true, Port: 4555},
				Node:       NodeConfig{Role: NodeRoleHost, HeartbeatInterval: "1s", HeartbeatTimeout: "3s"},
				Listeners: []ListenerConfig{
					{Protocol: ProtocolTelnet, Port: 4000},
					{Protocol: ProtocolSSH, Port: 4001},
				},
				Bridge:   BridgeConfig{Address: "127.0.0.1:0"},
				Terminal: TerminalConfig{Enabled: true},
			},
			expWorkers: []string{"bridge", "listeners", "node", "rendezvous", "terminal"},
		},
		"client on external rendezvous": {
			cfg: Config{
				Node: NodeConfig{URL: "nats://127.0.0.1:4222", Role: NodeRoleClient, HostID: "abc"},
			},
			expWorkers: []string{"node"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			workers, err := BuildWorkers(&tt.cfg)
			testutil.AssertEqual(t, "error", err, nil)

			var names []string
			for name := range workers {
				names = append(names, name)
			}
			slices.Sort(names)
			testutil.AssertEqual(t, "workers", strings.Join(names, ","), strings.Join(tt.expWorkers, ","))
		})
	}
}

func TestBuildWorkers_BadConfig(t *testing.T) {
	_, err := BuildWorkers("nope")
	testutil.AssertErrorContains(t, err, "unable to cast config")
}

func TestConsoleProtocol_UnmarshalText(t *testing.T) {
	tests := map[string]struct {
		text   string
		exp    ConsoleProtocol
		expErr bool
	}{
		"telnet":     {text: "telnet", exp: ProtocolTelnet},
		"ssh":        {text: "ssh", exp: ProtocolSSH},
		"mixed case": {text: " SSH ", exp: ProtocolSSH},
		"unknown":    {text: "http", expErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var p ConsoleProtocol
			err := p.UnmarshalText([]byte(tt.text))
			testutil.AssertEqual(t, "error", err != nil, tt.expErr)
			if err == nil {
				testutil.AssertEqual(t, "protocol", p, tt.exp)
				out, _ := p.MarshalText()
				testutil.AssertEqual(t, "round trip", string(out), strings.ToLower(strings.TrimSpace(tt.text)))
			}
		})
	}
}

func TestListenerConfig_Address(t *testing.T) {
	tests := map[string]struct {
		cfg ListenerConfig
		exp string
	}{
		"all interfaces": {cfg: ListenerConfig{Port: 4000}, exp: ":4000"},
		"ipv4":           {cfg: ListenerConfig{Bind: "127.0.0.1", Port: 4000}, exp: "127.0.0.1:4000"},
		"ipv6":           {cfg: ListenerConfig{Bind: "::1", Port: 2222}, exp: "[::1]:2222"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "address", tt.cfg.address(), tt.exp)
		})
	}
}

func TestHostKey_PersistsGeneratedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")

	first, err := hostKey(path)
	testutil.AssertEqual(t, "first error", err, nil)
	info, err := os.Stat(path)
	testutil.AssertEqual(t, "saved", err, nil)
	testutil.AssertEqual(t, "private", info.Mode().Perm(), os.FileMode(0o600))

	second, err := hostKey(path)
	testutil.AssertEqual(t, "second error", err, nil)
	testutil.AssertEqual(t, "same key", string(second.PublicKey().Marshal()), string(first.PublicKey().Marshal()))

	ephemeral, err := hostKey("")
	testutil.AssertEqual(t, "ephemeral error", err, nil)
	testutil.AssertEqual(t, "ephemeral differs", string(ephemeral.PublicKey().Marshal()) == string(first.PublicKey().Marshal()), false)
}

func TestHostKey_Unparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("writing key: %v", err)
	}

	_, err := hostKey(path)
	testutil.AssertEqual(t, "error", err != nil, true)
	testutil.AssertEqual(t, "names file", strings.Contains(err.Error(), path), true)
}
