package bridge

import (
	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/node"
)

const (
	typeView   = "view"
	typeResult = "result"

	opHost     = "host"
	opJoin     = "join"
	opStart    = "start"
	opInteract = "interact"
)

type viewMessage struct {
	Type          string         `json:"type"`
	LocalID       string         `json:"localId"`
	HostID        string         `json:"hostId,omitempty"`
	Role          string         `json:"role"`
	Status        string         `json:"status"`
	State         game.State     `json:"state"`
	FinalScore    int            `json:"finalScore"`
	Peers         []string       `json:"peers"`
	Contributions map[string]int `json:"contributions"`
	Error         string         `json:"error,omitempty"`
	Notice        string         `json:"notice,omitempty"`
}

func newViewMessage(v node.View) viewMessage {
	peers := v.Peers
	if peers == nil {
		peers = []string{}
	}
	return viewMessage{
		Type:          typeView,
		LocalID:       v.LocalID,
		HostID:        v.HostID,
		Role:          v.Role.String(),
		Status:        v.Status.String(),
		State:         v.State,
		FinalScore:    v.FinalScore,
		Peers:         peers,
		Contributions: v.Contributions,
		Error:         v.LastError,
		Notice:        v.Notice,
	}
}

// resultMessage answers one clientMessage.
type resultMessage struct {
	Type   string `json:"type"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	HostID string `json:"hostId,omitempty"`
	Error  string `json:"error,omitempty"`
}

type clientMessage struct {
	Type     string `json:"type"`
	HostID   string `json:"hostId,omitempty"`
	TargetID int    `json:"targetId,omitempty"`
}
