package session

import (
	"errors"

	"github.com/pixil98/go-pulse/internal/channel"
)

var (
	// ErrConnectionInit is retried by Open.
	ErrConnectionInit = channel.ErrConnectionInit
	// ErrPeerUnavailable is surfaced to the user and not retried.
	ErrPeerUnavailable = channel.ErrPeerUnavailable
	// ErrInvalidTarget rejects an empty or self join identifier before any dial.
	ErrInvalidTarget = errors.New("invalid host id")
	// ErrChannel wraps a mid-session transport fault, handled exactly like a disconnect.
	ErrChannel = errors.New("channel error")
	// ErrStaleMessage marks a message from a channel that is no longer current.
	ErrStaleMessage = errors.New("stale message")
	// ErrRoleFixed rejects a call that would change the session's role.
	ErrRoleFixed = errors.New("role already chosen")
	ErrNotReady  = errors.New("connection manager not ready")
)
