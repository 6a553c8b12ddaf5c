package session

import (
	"encoding/json"
	"testing"
)

func TestStateMachineStartsIdle(t *testing.T) {
	sm := NewStateMachine()
	snap := sm.Snapshot()
	if snap.State != StateIdle {
		t.Fatalf("initial state = %v, want idle", snap.State)
	}
	if snap.IsConnected || snap.IsConnecting {
		t.Fatalf("initial flags = %+v, want both false", snap)
	}
}

func TestStateMachineAllowedTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []ConnState
	}{
		{"happy path", []ConnState{StateConnecting, StateConnected}},
		{"connect failure", []ConnState{StateConnecting, StateFailed}},
		{"reconnect cycle", []ConnState{StateConnecting, StateConnected, StateReconnecting, StateConnecting, StateConnected}},
		{"retry after failure", []ConnState{StateConnecting, StateFailed, StateConnecting, StateConnected}},
		{"teardown", []ConnState{StateConnecting, StateConnected, StateIdle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warned bool
			sm := NewStateMachine(WithWarnFunc(func(from, to ConnState, reason string) {
				warned = true
			}))
			for _, next := range tt.path {
				sm.Transition(next, "test")
			}
			if warned {
				t.Errorf("allowed path produced a warning")
			}
			if got := sm.Snapshot().State; got != tt.path[len(tt.path)-1] {
				t.Errorf("final state = %v, want %v", got, tt.path[len(tt.path)-1])
			}
		})
	}
}

func TestStateMachineUnexpectedTransitionAppliedWithWarning(t *testing.T) {
	var warnings int
	sm := NewStateMachine(WithWarnFunc(func(from, to ConnState, reason string) {
		warnings++
	}))

	// idle -> connected skips connecting; applied but flagged.
	snap := sm.Transition(StateConnected, "test")
	if snap.State != StateConnected {
		t.Fatalf("state = %v, want connected", snap.State)
	}
	if warnings != 1 {
		t.Fatalf("warnings = %d, want 1", warnings)
	}
}

func TestStateMachineRejectsUnrecognizedState(t *testing.T) {
	var warnings int
	sm := NewStateMachine(WithWarnFunc(func(from, to ConnState, reason string) {
		warnings++
	}))
	sm.Transition(StateConnecting, "test")

	snap := sm.Transition(ConnState(42), "test")
	if snap.State != StateConnecting {
		t.Fatalf("state = %v, want connecting preserved", snap.State)
	}
	if warnings != 1 {
		t.Fatalf("warnings = %d, want 1", warnings)
	}
}

func TestStateMachineSnapshotFlags(t *testing.T) {
	sm := NewStateMachine()

	snap := sm.Transition(StateConnecting, "test")
	if !snap.IsConnecting || snap.IsConnected {
		t.Fatalf("connecting snapshot = %+v", snap)
	}

	snap = sm.Transition(StateConnected, "test")
	if !snap.IsConnected || snap.IsConnecting {
		t.Fatalf("connected snapshot = %+v", snap)
	}

	snap = sm.Transition(StateReconnecting, "test")
	if snap.IsConnected || snap.IsConnecting {
		t.Fatalf("reconnecting snapshot = %+v", snap)
	}
}

func TestStateMachineReset(t *testing.T) {
	sm := NewStateMachine()
	sm.Transition(StateConnecting, "test")
	sm.Transition(StateConnected, "test")
	sm.Reset()
	if got := sm.Snapshot().State; got != StateIdle {
		t.Fatalf("state after reset = %v, want idle", got)
	}
}

func TestConnStateJSONRoundTrip(t *testing.T) {
	for _, s := range []ConnState{StateIdle, StateConnecting, StateConnected, StateReconnecting, StateFailed} {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back ConnState
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %s -> %v", s, b, back)
		}
	}

	var unknown ConnState
	if err := json.Unmarshal([]byte(`"warp"`), &unknown); err != nil {
		t.Fatalf("unmarshal unknown: %v", err)
	}
	if unknown.valid() {
		t.Errorf("unknown state name decoded to valid state %v", unknown)
	}
}
