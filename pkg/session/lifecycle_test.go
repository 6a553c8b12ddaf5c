package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wordscape/wordscape/pkg/realtime"
)

type lifecycleFixture struct {
	sm        *StateMachine
	creds     *fakeCreds
	transport *fakeTransport
	router    *EventRouter
	audio     *fakeAudio
	presenter *fakePresenter
	ch        *fakeChannel
	sink      *recordingSink
}

func newLifecycleFixture(cfg LifecycleConfig) (*Lifecycle, *lifecycleFixture) {
	f := &lifecycleFixture{
		sm:        NewStateMachine(),
		creds:     &fakeCreds{},
		audio:     &fakeAudio{},
		presenter: &fakePresenter{},
		ch:        &fakeChannel{},
		sink:      &recordingSink{},
	}
	f.transport = &fakeTransport{ch: f.ch}
	f.router = NewEventRouter(f.audio, f.sink)
	l := NewLifecycle(LifecycleDeps{
		State:       f.sm,
		Credentials: f.creds,
		Transport:   f.transport,
		Router:      f.router,
		Audio:       f.audio,
		Status:      f.presenter,
	}, cfg)
	return l, f
}

func TestConnectSuccess(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := f.sm.Snapshot().State; got != StateConnected {
		t.Fatalf("state = %v, want connected", got)
	}
	if f.presenter.lastStatus() != StatusReady {
		t.Fatalf("status = %v, want ready", f.presenter.lastStatus())
	}
	if l.Channel() == nil || l.Sender() == nil {
		t.Fatalf("channel/sender not recorded")
	}

	// Router is bound to the new channel.
	f.ch.mu.Lock()
	bound := f.ch.handler != nil
	f.ch.mu.Unlock()
	if !bound {
		t.Fatalf("router not bound to data channel")
	}
}

func TestConnectSendsSetupOnChannelOpen(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{
		SystemPrompt: "You are a vocabulary coach.",
		Session:      &realtime.SessionConfig{TurnDetectionDisabled: true},
	})

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(f.ch.sentTypes()) != 0 {
		t.Fatalf("setup sent before channel open: %v", f.ch.sentTypes())
	}

	f.ch.fireOpen()

	types := f.ch.sentTypes()
	if len(types) != 2 {
		t.Fatalf("sent types = %v, want system prompt then session update", types)
	}
	if types[0] != realtime.EventTypeConversationItemCreate {
		t.Errorf("first message = %v, want conversation.item.create", types[0])
	}
	if types[1] != realtime.EventTypeSessionUpdate {
		t.Errorf("second message = %v, want session.update", types[1])
	}
	if got := f.sm.Snapshot().State; got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}
}

func TestConnectCredentialFailure(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	f.creds.err = errBoom

	err := l.Connect(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if got := f.sm.Snapshot().State; got != StateFailed {
		t.Fatalf("state = %v, want failed", got)
	}
	if len(f.presenter.errs) != 1 {
		t.Fatalf("presented errors = %d, want 1", len(f.presenter.errs))
	}
}

func TestConnectTransportFailure(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	f.transport.err = errBoom

	err := l.Connect(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if got := f.sm.Snapshot().State; got != StateFailed {
		t.Fatalf("state = %v, want failed", got)
	}
}

func TestConnectSharesInFlightAttempt(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	gate := make(chan struct{})
	f.transport.gate = gate

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Connect(context.Background())
		}(i)
	}

	// Let all callers enter Connect before releasing the transport.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if got := f.transport.callCount(); got != 1 {
		t.Fatalf("transport establish calls = %d, want 1", got)
	}
	if got := f.creds.calls; got != 1 {
		t.Fatalf("credential calls = %d, want 1", got)
	}
}

func TestConnectAgainAfterFailure(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	f.creds.err = errBoom

	if err := l.Connect(context.Background()); err == nil {
		t.Fatalf("first connect succeeded unexpectedly")
	}

	f.creds.err = nil
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if got := f.sm.Snapshot().State; got != StateConnected {
		t.Fatalf("state = %v, want connected", got)
	}
}

func TestChannelCloseMovesToReconnecting(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.ch.fireClose()

	if got := f.sm.Snapshot().State; got != StateReconnecting {
		t.Fatalf("state = %v, want reconnecting", got)
	}
	if f.presenter.lastStatus() != StatusReconnect {
		t.Fatalf("status = %v, want reconnect", f.presenter.lastStatus())
	}
}

func TestWaitForDataChannelOpen(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})

	// No handle yet.
	if l.WaitForDataChannelOpen(context.Background(), 10*time.Millisecond) {
		t.Fatalf("wait succeeded with no channel")
	}

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Opens while waiting.
	result := make(chan bool, 1)
	go func() {
		result <- l.WaitForDataChannelOpen(context.Background(), time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	f.ch.fireOpen()
	if !<-result {
		t.Fatalf("wait failed after channel opened")
	}

	// Already open resolves immediately.
	if !l.WaitForDataChannelOpen(context.Background(), time.Millisecond) {
		t.Fatalf("wait failed on open channel")
	}
}

func TestWaitForDataChannelOpenTimeout(t *testing.T) {
	l, _ := newLifecycleFixture(LifecycleConfig{})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if l.WaitForDataChannelOpen(context.Background(), 10*time.Millisecond) {
		t.Fatalf("wait succeeded on channel that never opened")
	}
}

func TestCloseResetsState(t *testing.T) {
	l, f := newLifecycleFixture(LifecycleConfig{})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := f.sm.Snapshot().State; got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if l.Channel() != nil || l.Sender() != nil {
		t.Fatalf("handle survived close")
	}
}
