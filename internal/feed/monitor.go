package feed

import (
	"log/slog"
	"sync"

	"github.com/oakledger/beacon/internal/model"
)

// StatusCallback is invoked on every connection state change.
type StatusCallback func(model.ConnectionState)

// Monitor tracks the change-feed subscription health. It only reflects
// state reported by the transport; retry scheduling lives in the client's
// subscribe loop.
type Monitor struct {
	mu       sync.RWMutex
	state    model.ConnectionState
	onChange StatusCallback
	logger   *slog.Logger
}

// NewMonitor creates a monitor in the disconnected state.
func NewMonitor(onChange StatusCallback, logger *slog.Logger) *Monitor {
	return &Monitor{
		state:    model.StateDisconnected,
		onChange: onChange,
		logger:   logger,
	}
}

// State returns the current connection state.
func (m *Monitor) State() model.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Set transitions to s, notifying the callback when the state changed.
func (m *Monitor) Set(s model.ConnectionState) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	cb := m.onChange
	m.mu.Unlock()

	m.logger.Debug("connection state", "from", prev, "to", s)
	if cb != nil {
		cb(s)
	}
}
