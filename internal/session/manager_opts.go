package session

import "time"

type ManagerOpt func(*Manager)

// WithRetryDelay sets how long Open waits between failed attempts.
func WithRetryDelay(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// WithDialTimeout bounds a single ConnectToHost attempt.
func WithDialTimeout(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.dialTimeout = d
	}
}

// WithAsync sets how blocking dials are run. The default starts a goroutine per dial.
func WithAsync(run func(fn func())) ManagerOpt {
	return func(m *Manager) {
		m.async = run
	}
}
