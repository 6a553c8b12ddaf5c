package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultReleaseBuffer is the tail kept open after a release so the
// final syllable is not clipped.
const DefaultReleaseBuffer = 250 * time.Millisecond

// Press denial reasons surfaced to callers.
const (
	ReasonConnecting     = "connecting"
	ReasonNotConnected   = "not_connected"
	ReasonChannelNotOpen = "data_channel_not_open"
	ReasonUsageLimit     = "usage_limit_reached"
	ReasonSendFailed     = "send_failed"
	ReasonRecordFailed   = "record_failed"
)

// PressResult reports whether a press started a user turn and, when it
// did not, a presentable reason.
type PressResult struct {
	Allowed bool
	Reason  string
}

func denied(reason string) PressResult {
	return PressResult{Reason: reason}
}

// PTTConfig tunes press/release behavior.
type PTTConfig struct {
	// OpenTimeout bounds the wait for the data channel after connect.
	OpenTimeout time.Duration

	// ReleaseBuffer is the default tail applied on release when the
	// caller does not override it.
	ReleaseBuffer time.Duration
}

// ReleaseOpts carries per-release overrides. Different input surfaces
// use different tails (touch input needs a longer one than a pointer).
type ReleaseOpts struct {
	// BufferTime overrides the configured release tail when positive.
	BufferTime time.Duration
}

// PTT orchestrates push-to-talk across connection churn: a press
// lazily connects, interrupts the assistant, and opens the microphone;
// a release commits the buffered input after a short tail and asks for
// the next response.
type PTT struct {
	sm          *StateMachine
	lifecycle   *Lifecycle
	router      *EventRouter
	audio       AudioManager
	transcriber Transcriber
	gate        UsageGate
	sink        EventSink
	clock       Clock
	logger      *slog.Logger
	cfg         PTTConfig

	mu            sync.Mutex
	micActive     bool
	releaseTimer  Timer
	pendingRecord *Recording
	pendingDone   chan struct{}
}

// PTTOption configures a PTT orchestrator.
type PTTOption func(*PTT)

// WithUsageGate installs a pre-turn usage check.
func WithUsageGate(gate UsageGate) PTTOption {
	return func(p *PTT) {
		p.gate = gate
	}
}

// WithTranscriber installs the local recording transcriber.
func WithTranscriber(t Transcriber) PTTOption {
	return func(p *PTT) {
		p.transcriber = t
	}
}

// WithPTTSink installs a sink notified of speech start/stop.
func WithPTTSink(sink EventSink) PTTOption {
	return func(p *PTT) {
		p.sink = sink
	}
}

// WithPTTClock sets the clock used for timers and interrupted ids.
func WithPTTClock(clock Clock) PTTOption {
	return func(p *PTT) {
		p.clock = clock
	}
}

// WithPTTLogger sets the orchestrator logger.
func WithPTTLogger(logger *slog.Logger) PTTOption {
	return func(p *PTT) {
		p.logger = logger
	}
}

// NewPTT creates a push-to-talk orchestrator.
func NewPTT(sm *StateMachine, lifecycle *Lifecycle, router *EventRouter, audio AudioManager, cfg PTTConfig, opts ...PTTOption) *PTT {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.ReleaseBuffer <= 0 {
		cfg.ReleaseBuffer = DefaultReleaseBuffer
	}
	p := &PTT{
		sm:        sm,
		lifecycle: lifecycle,
		router:    router,
		audio:     audio,
		clock:     SystemClock(),
		logger:    slog.Default(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandlePTTPress starts a user turn. The sequence is fixed: clear any
// stale pending recording, check the usage gate, connect lazily if
// needed, wait for the data channel, cancel the in-flight response
// BEFORE clearing the input buffer, abort the assistant's turn capture,
// then open the microphone.
func (p *PTT) HandlePTTPress(ctx context.Context) PressResult {
	if p.sm.Snapshot().IsConnecting {
		return denied(ReasonConnecting)
	}

	p.clearPending()

	if p.gate != nil {
		if allowed, reason := p.gate.AllowTurn(); !allowed {
			if reason == "" {
				reason = ReasonUsageLimit
			}
			return denied(reason)
		}
	}

	if !p.sm.Snapshot().IsConnected {
		if err := p.lifecycle.Connect(ctx); err != nil {
			p.logger.Error("lazy connect on press failed", "error", err)
		}
		snap := p.sm.Snapshot()
		if !snap.IsConnected {
			if snap.IsConnecting {
				return denied(ReasonConnecting)
			}
			return denied(ReasonNotConnected)
		}
	}

	if !p.lifecycle.WaitForDataChannelOpen(ctx, p.cfg.OpenTimeout) {
		return denied(ReasonChannelNotOpen)
	}
	sender := p.lifecycle.Sender()
	if sender == nil {
		return denied(ReasonNotConnected)
	}

	// Cancel before clear: clearing first can race a response that is
	// still being produced from the buffer being cleared.
	if err := sender.CancelResponse(); err != nil {
		p.logger.Error("cancel response failed", "error", err)
		return denied(ReasonSendFailed)
	}
	if err := sender.ClearInput(); err != nil {
		p.logger.Error("clear input buffer failed", "error", err)
		return denied(ReasonSendFailed)
	}

	p.router.AbortAITurnCapture(p.interruptedID())

	if err := p.audio.StartRecording(ctx); err != nil {
		p.logger.Error("start recording failed", "error", err)
		return denied(ReasonRecordFailed)
	}

	p.mu.Lock()
	p.micActive = true
	p.mu.Unlock()

	if p.sink != nil {
		p.sink.SpeechStarted()
	}
	return PressResult{Allowed: true}
}

// HandlePTTRelease ends the user turn. Local recording stops in the
// background; the commit and response request run after the buffer
// tail so trailing audio reaches the input buffer first. A press during
// the tail cancels the scheduled commit.
func (p *PTT) HandlePTTRelease(ctx context.Context, opts ReleaseOpts) {
	buffer := opts.BufferTime
	if buffer <= 0 {
		buffer = p.cfg.ReleaseBuffer
	}

	p.mu.Lock()
	if p.micActive && p.pendingDone == nil {
		done := make(chan struct{})
		p.pendingDone = done
		go p.stopRecording(ctx, done)
	}
	if p.releaseTimer != nil {
		p.releaseTimer.Stop()
	}
	p.releaseTimer = p.clock.AfterFunc(buffer, p.finishRelease)
	p.mu.Unlock()
}

// stopRecording collects the local segment off the press/release path.
// A newer press may have cleared the slot meanwhile; then the segment
// is dropped.
func (p *PTT) stopRecording(ctx context.Context, done chan struct{}) {
	rec, err := p.audio.StopRecording(ctx)

	p.mu.Lock()
	if p.pendingDone == done {
		if err != nil {
			p.logger.Error("stop recording failed", "error", err)
		} else {
			p.pendingRecord = rec
		}
	}
	p.mu.Unlock()
	close(done)
}

// finishRelease runs after the buffer tail: closes the mic state,
// commits the input buffer, and requests a response.
func (p *PTT) finishRelease() {
	p.mu.Lock()
	p.micActive = false
	p.releaseTimer = nil
	p.mu.Unlock()

	if p.sink != nil {
		p.sink.SpeechStopped()
	}

	ch := p.lifecycle.Channel()
	if ch == nil || !ch.IsOpen() {
		p.logger.Warn("skipping input commit, data channel not open")
		return
	}
	sender := p.lifecycle.Sender()
	if err := sender.CommitInput(); err != nil {
		p.logger.Error("commit input failed", "error", err)
		return
	}
	if err := sender.CreateResponse(); err != nil {
		p.logger.Error("create response failed", "error", err)
	}
}

// ConsumePendingRecording waits for any in-flight stop, then returns
// and clears the most recent local recording. Nil when none exists.
func (p *PTT) ConsumePendingRecording(ctx context.Context) *Recording {
	p.mu.Lock()
	done := p.pendingDone
	p.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return nil
		}
	}

	p.mu.Lock()
	rec := p.pendingRecord
	p.pendingRecord = nil
	p.pendingDone = nil
	p.mu.Unlock()
	return rec
}

// TranscribePending transcribes and clears the pending local recording.
// Returns an empty transcript when no recording or transcriber exists.
func (p *PTT) TranscribePending(ctx context.Context) (string, error) {
	rec := p.ConsumePendingRecording(ctx)
	if rec == nil || p.transcriber == nil {
		return "", nil
	}
	return p.transcriber.Transcribe(ctx, rec)
}

// clearPending drops stale release state from the previous turn: the
// scheduled commit tail and any unconsumed local recording.
func (p *PTT) clearPending() {
	p.mu.Lock()
	if p.releaseTimer != nil {
		p.releaseTimer.Stop()
		p.releaseTimer = nil
	}
	p.pendingRecord = nil
	p.pendingDone = nil
	p.mu.Unlock()
}

// interruptedID names the utterance finalized by this interruption.
func (p *PTT) interruptedID() string {
	return fmt.Sprintf("interrupted_%d", p.clock.Now().UnixMilli())
}
