package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wordscape/wordscape/pkg/realtime"
)

// manualClock is a deterministic clock for timer-driven paths.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// advance moves time forward and fires due timers in schedule order.
func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// fakeAudio records capture calls and fabricates artifacts.
type fakeAudio struct {
	mu             sync.Mutex
	recording      bool
	turnCapturing  bool
	turnStarts     int
	turnStops      int
	recordStarts   int
	recordStops    int
	startRecordErr error
	startTurnErr   error
	recordData     []byte
}

func (a *fakeAudio) HandleRemoteAudio(payload []byte) {}

func (a *fakeAudio) StartRecording(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startRecordErr != nil {
		return a.startRecordErr
	}
	a.recording = true
	a.recordStarts++
	return nil
}

func (a *fakeAudio) StopRecording(ctx context.Context) (*Recording, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recording = false
	a.recordStops++
	data := a.recordData
	if data == nil {
		data = []byte("pcm")
	}
	return &Recording{Data: data, Duration: time.Second}, nil
}

func (a *fakeAudio) StartTurnCapture() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startTurnErr != nil {
		return a.startTurnErr
	}
	a.turnCapturing = true
	a.turnStarts++
	return nil
}

func (a *fakeAudio) StopTurnCapture() (Artifact, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.turnCapturing = false
	a.turnStops++
	return Artifact{Ref: "art_test", Duration: 2 * time.Second}, nil
}

// recordingSink collects router output.
type recordingSink struct {
	mu         sync.Mutex
	utterances []Utterance
	started    int
	stopped    int
}

func (s *recordingSink) UtteranceAdded(u Utterance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, u)
}

func (s *recordingSink) SpeechStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
}

func (s *recordingSink) SpeechStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *recordingSink) all() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Utterance, len(s.utterances))
	copy(out, s.utterances)
	return out
}

// fakeChannel is an in-memory realtime.Channel.
type fakeChannel struct {
	mu       sync.Mutex
	open     bool
	sent     [][]byte
	sendErr  error
	handler  func([]byte)
	openFns  []func()
	closeFns []func()
	errFns   []func(error)
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChannel) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeChannel) AddOpenListener(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openFns = append(c.openFns, fn)
	idx := len(c.openFns) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.openFns[idx] = nil
	}
}

func (c *fakeChannel) AddCloseListener(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFns = append(c.closeFns, fn)
	idx := len(c.closeFns) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closeFns[idx] = nil
	}
}

func (c *fakeChannel) AddErrorListener(fn func(error)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errFns = append(c.errFns, fn)
	idx := len(c.errFns) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.errFns[idx] = nil
	}
}

func (c *fakeChannel) SetMessageHandler(fn func([]byte)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

func (c *fakeChannel) fireOpen() {
	c.mu.Lock()
	c.open = true
	fns := make([]func(), len(c.openFns))
	copy(fns, c.openFns)
	c.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (c *fakeChannel) fireClose() {
	c.mu.Lock()
	c.open = false
	fns := make([]func(), len(c.closeFns))
	copy(fns, c.closeFns)
	c.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

// sentTypes extracts the "type" field of every message sent so far.
func (c *fakeChannel) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.sent))
	for _, raw := range c.sent {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil {
			types = append(types, envelope.Type)
		}
	}
	return types
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fakeTransport hands out a prepared channel.
type fakeTransport struct {
	mu    sync.Mutex
	ch    *fakeChannel
	err   error
	calls int
	gate  chan struct{} // when non-nil, Establish blocks until closed
}

func (t *fakeTransport) Establish(ctx context.Context, credential string) (*realtime.Handle, error) {
	t.mu.Lock()
	t.calls++
	gate := t.gate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.err != nil {
		return nil, t.err
	}
	return &realtime.Handle{Peer: nopCloser{}, Chan: t.ch}, nil
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// fakeCreds returns a fixed ephemeral key.
type fakeCreds struct {
	err   error
	calls int
}

func (c *fakeCreds) RequestEphemeralKey(ctx context.Context) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "ek_test", nil
}

// fakePresenter records status changes and presented errors.
type fakePresenter struct {
	mu       sync.Mutex
	statuses []Status
	errs     []error
}

func (p *fakePresenter) SetStatus(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
}

func (p *fakePresenter) PresentError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *fakePresenter) lastStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return ""
	}
	return p.statuses[len(p.statuses)-1]
}

var errBoom = errors.New("boom")
