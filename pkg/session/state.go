package session

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// ConnState represents the connection state of a session.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// valid reports whether s is one of the recognized states.
func (s ConnState) valid() bool {
	return s >= StateIdle && s <= StateFailed
}

// MarshalJSON implements json.Marshaler.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ConnState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = StateIdle
	case "connecting":
		*s = StateConnecting
	case "connected":
		*s = StateConnected
	case "reconnecting":
		*s = StateReconnecting
	case "failed":
		*s = StateFailed
	default:
		*s = ConnState(-1)
	}
	return nil
}

// allowedTransitions is the adjacency table of expected transitions.
// Transitions outside the table are still applied, with a warning; the
// source behavior is permissive and changing that needs product
// confirmation.
var allowedTransitions = map[ConnState][]ConnState{
	StateIdle:         {StateConnecting},
	StateConnecting:   {StateConnected, StateFailed, StateIdle},
	StateConnected:    {StateReconnecting, StateFailed, StateIdle},
	StateReconnecting: {StateConnecting, StateConnected, StateFailed, StateIdle},
	StateFailed:       {StateConnecting, StateIdle},
}

// transitionAllowed reports whether from → to is in the table.
func transitionAllowed(from, to ConnState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of the state machine.
type Snapshot struct {
	State        ConnState
	IsConnected  bool
	IsConnecting bool
}

// StateMachine tracks the connection state with validated transitions.
// It is the single source of truth for connectivity; no component may
// mutate the state except through Transition.
type StateMachine struct {
	mu     sync.Mutex
	state  ConnState
	logger *slog.Logger
	warnFn func(from, to ConnState, reason string)
}

// StateMachineOption configures a StateMachine.
type StateMachineOption func(*StateMachine)

// WithStateLogger sets the logger used for transition diagnostics.
func WithStateLogger(logger *slog.Logger) StateMachineOption {
	return func(sm *StateMachine) {
		sm.logger = logger
	}
}

// WithWarnFunc registers a hook invoked once per diagnostic warning
// (unknown target or transition outside the allowed table).
func WithWarnFunc(fn func(from, to ConnState, reason string)) StateMachineOption {
	return func(sm *StateMachine) {
		sm.warnFn = fn
	}
}

// NewStateMachine creates a state machine starting in StateIdle.
func NewStateMachine(opts ...StateMachineOption) *StateMachine {
	sm := &StateMachine{
		state:  StateIdle,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Transition moves the machine to next and returns the resulting
// snapshot. An unrecognized target is rejected (state preserved); a
// known target outside the allowed table is applied with a warning.
func (sm *StateMachine) Transition(next ConnState, reason string) Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.state

	if !next.valid() {
		sm.logger.Warn("rejected transition to unrecognized state",
			"from", from.String(), "to", int(next), "reason", reason)
		sm.warn(from, next, reason)
		return sm.snapshotLocked()
	}

	if !transitionAllowed(from, next) {
		sm.logger.Warn("unexpected state transition",
			"from", from.String(), "to", next.String(), "reason", reason)
		sm.warn(from, next, reason)
	} else {
		sm.logger.Debug("state transition",
			"from", from.String(), "to", next.String(), "reason", reason)
	}

	sm.state = next
	return sm.snapshotLocked()
}

// Snapshot returns the current state and connectivity flags.
func (sm *StateMachine) Snapshot() Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.snapshotLocked()
}

// Reset returns the machine to StateIdle. Used at session cleanup.
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = StateIdle
}

func (sm *StateMachine) snapshotLocked() Snapshot {
	return Snapshot{
		State:        sm.state,
		IsConnected:  sm.state == StateConnected,
		IsConnecting: sm.state == StateConnecting,
	}
}

func (sm *StateMachine) warn(from, to ConnState, reason string) {
	if sm.warnFn != nil {
		sm.warnFn(from, to, reason)
	}
}
