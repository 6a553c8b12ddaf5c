package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wordscape/wordscape/pkg/realtime"
)

// DefaultOpenTimeout bounds how long callers wait for the data channel
// to open after the peer is established.
const DefaultOpenTimeout = 5 * time.Second

// LifecycleDeps are the collaborators a Lifecycle orchestrates.
type LifecycleDeps struct {
	State       *StateMachine
	Credentials CredentialProvider
	Transport   Transport
	Router      *EventRouter
	Audio       AudioManager
	Status      StatusPresenter

	// Preamble is optional; when set and Mobile is enabled, device
	// checks run before the credential request.
	Preamble DevicePreamble
}

// LifecycleConfig carries per-session setup sent once the data channel
// opens.
type LifecycleConfig struct {
	// SystemPrompt, when non-empty, is injected as a system item.
	SystemPrompt string

	// Session, when non-nil, is sent as a session.update.
	Session *realtime.SessionConfig

	// Mobile enables the constrained-device preamble.
	Mobile bool
}

// connectAttempt tracks one in-flight connect so concurrent callers
// share its outcome instead of racing duplicate attempts.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Lifecycle drives the connect sequence: state transitions, credential
// request, transport establishment, and data channel wiring. It is the
// only component that moves the state machine through the connect path.
type Lifecycle struct {
	deps   LifecycleDeps
	cfg    LifecycleConfig
	logger *slog.Logger

	mu      sync.Mutex
	attempt *connectAttempt
	handle  *realtime.Handle
	sender  *realtime.Sender
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithLifecycleLogger sets the lifecycle logger.
func WithLifecycleLogger(logger *slog.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// NewLifecycle creates a lifecycle orchestrator.
func NewLifecycle(deps LifecycleDeps, cfg LifecycleConfig, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		deps:   deps,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect establishes the session. Calling while an attempt is already
// in flight does not start a second one: the caller waits on the
// existing attempt and returns its outcome.
func (l *Lifecycle) Connect(ctx context.Context) error {
	l.mu.Lock()
	if a := l.attempt; a != nil {
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			return a.err
		}
	}
	a := &connectAttempt{done: make(chan struct{})}
	l.attempt = a
	l.mu.Unlock()

	a.err = l.connect(ctx)

	l.mu.Lock()
	l.attempt = nil
	l.mu.Unlock()
	close(a.done)
	return a.err
}

func (l *Lifecycle) connect(ctx context.Context) error {
	l.deps.State.Transition(StateConnecting, "connect_requested")
	l.deps.Status.SetStatus(StatusConnecting)

	// Preamble failures are logged, never fatal: permission probes are
	// unreliable on constrained devices and the connect proceeds.
	if l.cfg.Mobile && l.deps.Preamble != nil {
		if err := l.deps.Preamble.ProbeMicrophone(ctx); err != nil {
			l.logger.Warn("microphone probe failed", "error", err)
		}
		if err := l.deps.Preamble.CheckReachability(ctx); err != nil {
			l.logger.Warn("reachability check failed", "error", err)
		}
	}

	credential, err := l.deps.Credentials.RequestEphemeralKey(ctx)
	if err != nil {
		return l.fail(fmt.Errorf("request ephemeral key: %w", err))
	}

	handle, err := l.deps.Transport.Establish(ctx, credential)
	if err != nil {
		return l.fail(fmt.Errorf("establish transport: %w", err))
	}

	sender := realtime.NewSender(handle.Chan)
	l.mu.Lock()
	l.handle = handle
	l.sender = sender
	l.mu.Unlock()

	handle.Chan.AddOpenListener(func() {
		l.deps.State.Transition(StateConnected, "data_channel_open")
		l.deps.Status.SetStatus(StatusReady)
		l.sendSessionSetup(sender)
	})
	handle.Chan.AddCloseListener(func() {
		l.deps.State.Transition(StateReconnecting, "data_channel_close")
		l.deps.Status.SetStatus(StatusReconnect)
	})
	handle.Chan.AddErrorListener(func(err error) {
		l.logger.Error("data channel error", "error", err)
	})

	if handle.RemoteMedia != nil {
		handle.RemoteMedia.Bind(l.deps.Audio)
	}
	l.deps.Router.Bind(handle.Chan)

	l.deps.State.Transition(StateConnected, "peer_established")
	l.deps.Status.SetStatus(StatusReady)
	return nil
}

// fail records the terminal outcome of a connect attempt and surfaces
// it to the presenter before returning it to the caller.
func (l *Lifecycle) fail(err error) error {
	l.logger.Error("connect failed", "error", err)
	l.deps.State.Transition(StateFailed, "connect_error")
	l.deps.Status.PresentError(err)
	return err
}

// sendSessionSetup pushes the system prompt and session configuration
// over a freshly opened data channel. Send failures are logged; the
// session remains usable without them.
func (l *Lifecycle) sendSessionSetup(sender *realtime.Sender) {
	if l.cfg.SystemPrompt != "" {
		if err := sender.AddSystemPrompt(l.cfg.SystemPrompt); err != nil {
			l.logger.Error("send system prompt failed", "error", err)
		}
	}
	if l.cfg.Session != nil {
		if err := sender.UpdateSession(l.cfg.Session); err != nil {
			l.logger.Error("send session update failed", "error", err)
		}
	}
}

// WaitForDataChannelOpen blocks until the current data channel reports
// open, closes or errors first, the timeout elapses, or ctx is
// canceled. Reports whether the channel is open. The registered
// listeners resolve at most once and are always deregistered.
func (l *Lifecycle) WaitForDataChannelOpen(ctx context.Context, timeout time.Duration) bool {
	ch := l.Channel()
	if ch == nil {
		return false
	}
	if ch.IsOpen() {
		return true
	}
	if timeout <= 0 {
		timeout = DefaultOpenTimeout
	}

	result := make(chan bool, 1)
	var once sync.Once
	settle := func(open bool) {
		once.Do(func() { result <- open })
	}
	removeOpen := ch.AddOpenListener(func() { settle(true) })
	defer removeOpen()
	removeClose := ch.AddCloseListener(func() { settle(false) })
	defer removeClose()
	removeError := ch.AddErrorListener(func(error) { settle(false) })
	defer removeError()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case open := <-result:
		return open
	case <-timer.C:
		return ch.IsOpen()
	case <-ctx.Done():
		return false
	}
}

// Channel returns the current data channel, nil before first connect.
func (l *Lifecycle) Channel() realtime.Channel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	return l.handle.Chan
}

// Sender returns the event sender for the current channel, nil before
// first connect.
func (l *Lifecycle) Sender() *realtime.Sender {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sender
}

// Handle returns the current transport handle, nil before first
// connect.
func (l *Lifecycle) Handle() *realtime.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle
}

// Close tears down the current transport and resets the state machine.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	handle := l.handle
	l.handle = nil
	l.sender = nil
	l.mu.Unlock()

	l.deps.State.Reset()
	if handle != nil && handle.Peer != nil {
		return handle.Peer.Close()
	}
	return nil
}
