package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wordscape/wordscape/pkg/realtime"
)

// DefaultDrainTimeout bounds how long the interruption barrier stays
// armed when no drain signal arrives for the interrupted turn.
const DefaultDrainTimeout = 4 * time.Second

// EventRouter consumes the ordered stream of inbound protocol events,
// owns the pending assistant turn capture, and implements interruption
// and stale-event suppression.
//
// Sink and collaborator callbacks run on the router's event goroutine
// and must not call back into the router.
type EventRouter struct {
	audio      AudioManager
	sink       EventSink
	usage      UsageMeter
	functions  FunctionCallHandler
	reconciler TranscriptionReconciler
	clock      Clock
	logger     *slog.Logger

	drainTimeout     time.Duration
	usagePassThrough bool

	mu      sync.Mutex
	turn    pendingTurn
	barrier struct {
		active  bool
		armedAt time.Time
		timer   Timer
	}
}

// RouterOption configures an EventRouter.
type RouterOption func(*EventRouter)

// WithUsageMeter forwards usage payloads and suppressed-delta estimates.
func WithUsageMeter(meter UsageMeter) RouterOption {
	return func(r *EventRouter) {
		r.usage = meter
	}
}

// WithFunctionCallHandler delegates completed function call arguments.
func WithFunctionCallHandler(h FunctionCallHandler) RouterOption {
	return func(r *EventRouter) {
		r.functions = h
	}
}

// WithTranscriptionReconciler delegates completed user transcriptions.
func WithTranscriptionReconciler(rec TranscriptionReconciler) RouterOption {
	return func(r *EventRouter) {
		r.reconciler = rec
	}
}

// WithRouterClock sets the clock used for timers and timestamps.
func WithRouterClock(clock Clock) RouterOption {
	return func(r *EventRouter) {
		r.clock = clock
	}
}

// WithRouterLogger sets the router logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

// WithDrainTimeout bounds the interruption barrier's self-clear.
func WithDrainTimeout(d time.Duration) RouterOption {
	return func(r *EventRouter) {
		r.drainTimeout = d
	}
}

// WithUsagePassThrough controls whether suppressed transcript deltas
// still feed the usage estimator.
func WithUsagePassThrough(enabled bool) RouterOption {
	return func(r *EventRouter) {
		r.usagePassThrough = enabled
	}
}

// NewEventRouter creates a router delivering finalized utterances to
// the sink and capturing turn audio through the audio manager.
func NewEventRouter(audio AudioManager, sink EventSink, opts ...RouterOption) *EventRouter {
	r := &EventRouter{
		audio:            audio,
		sink:             sink,
		clock:            SystemClock(),
		logger:           slog.Default(),
		drainTimeout:     DefaultDrainTimeout,
		usagePassThrough: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind attaches the router to a data channel, replacing any previous
// binding. Called on every (re)connect.
func (r *EventRouter) Bind(ch realtime.Channel) {
	ch.SetMessageHandler(func(data []byte) {
		event, err := realtime.ParseServerEvent(data)
		if err != nil {
			r.logger.Error("unparseable data channel message", "error", err, "len", len(data))
			return
		}
		r.HandleServerEvent(event)
	})
}

// HandleServerEvent dispatches one inbound event. Handler bodies never
// panic out of the router: one bad message must not halt event
// processing.
func (r *EventRouter) HandleServerEvent(event *realtime.ServerEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event handler panic", "type", event.Type, "panic", p)
		}
	}()

	switch event.Type {
	case realtime.EventTypeResponseAudioTranscriptDelta, realtime.EventTypeResponseTextDelta:
		r.handleTranscriptDelta(event.Delta)

	case realtime.EventTypeOutputAudioBufferStarted:
		r.handleTurnAudioStarted()

	case realtime.EventTypeOutputAudioBufferStopped:
		r.handleTurnAudioStopped()

	case realtime.EventTypeResponseAudioTranscriptDone:
		r.handleTranscriptDone(event.Transcript)

	case realtime.EventTypeResponseTextDone:
		r.handleTranscriptDone(event.Text)

	case realtime.EventTypeResponseDone:
		r.handleResponseDone(event)

	case realtime.EventTypeSessionUpdated:
		if r.usage != nil && event.Response != nil && event.Response.Usage != nil {
			r.usage.RecordUsage(event.Response.Usage)
		}

	case realtime.EventTypeConversationItemInputAudioTranscriptionCompleted:
		if r.reconciler != nil {
			r.reconciler.ReconcileUserTranscript(event.ItemID, event.Transcript)
		}

	case realtime.EventTypeResponseFunctionCallArgumentsDone:
		if r.functions != nil {
			r.functions.HandleFunctionCall(event.Name, event.CallID, event.Arguments)
		}

	case realtime.EventTypeError:
		if event.TranscriptionError != nil {
			r.logger.Error("server error event", "error", event.TranscriptionError.ToError())
		}

	default:
		r.logger.Debug("unhandled event", "type", event.Type)
	}
}

// AbortAITurnCapture interrupts the in-flight assistant turn. The
// accumulated capture is finalized under the supplied id with
// Interrupted set, and the suppression barrier is armed before any
// further events for the old turn can be processed. Safe under rapid
// repeated calls: re-aborting while armed re-arms the drain timer
// without emitting from empty state.
func (r *EventRouter) AbortAITurnCapture(interruptedUtteranceID string) {
	r.mu.Lock()
	var finalized *Utterance
	if r.turn.phase == phaseCapturing {
		u := r.finalizeLocked(true, interruptedUtteranceID)
		finalized = &u
	}
	r.armBarrierLocked()
	r.mu.Unlock()

	if finalized != nil {
		r.sink.UtteranceAdded(*finalized)
	}
}

// handleTranscriptDelta accumulates assistant transcript text, starting
// turn capture on the first delta. Deltas for an interrupted turn are
// consumed but not forwarded.
func (r *EventRouter) handleTranscriptDelta(delta string) {
	r.mu.Lock()
	if r.barrier.active {
		passUsage := r.usagePassThrough && r.usage != nil
		r.mu.Unlock()
		if passUsage {
			r.usage.EstimateText(delta)
		}
		r.logger.Debug("suppressed stale transcript delta", "len", len(delta))
		return
	}

	if r.turn.phase == phaseIdle {
		r.startTurnLocked()
	}
	r.turn.transcript.WriteString(delta)
	r.mu.Unlock()
}

// handleTurnAudioStarted starts capture proactively so a turn is
// recorded even when the remote emits audio before any transcript.
func (r *EventRouter) handleTurnAudioStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.barrier.active {
		r.logger.Debug("suppressed turn-audio-started during barrier")
		return
	}
	if r.turn.phase == phaseIdle {
		r.startTurnLocked()
	}
}

// handleTurnAudioStopped is the explicit drain signal: it finalizes an
// active capture and disarms the barrier.
func (r *EventRouter) handleTurnAudioStopped() {
	r.mu.Lock()
	if r.barrier.active {
		r.disarmBarrierLocked("turn_audio_stopped")
	}
	var finalized *Utterance
	if r.turn.phase == phaseCapturing {
		u := r.finalizeLocked(false, "")
		finalized = &u
	}
	r.mu.Unlock()

	if finalized != nil {
		r.sink.UtteranceAdded(*finalized)
	}
}

// handleTranscriptDone applies the authoritative final transcript to
// the pending turn, unless the barrier is active or the text is a
// structured tool payload.
func (r *EventRouter) handleTranscriptDone(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.barrier.active {
		r.logger.Debug("suppressed stale transcript done", "len", len(text))
		return
	}
	if looksLikeToolPayload(text) {
		r.logger.Debug("suppressed tool payload transcript", "len", len(text))
		return
	}
	if r.turn.phase != phaseCapturing {
		r.logger.Debug("transcript done with no active turn", "len", len(text))
		return
	}
	r.turn.transcript.Reset()
	r.turn.transcript.WriteString(text)
}

// handleResponseDone forwards usage and acts as a drain signal for both
// the barrier and any still-active capture.
func (r *EventRouter) handleResponseDone(event *realtime.ServerEvent) {
	if r.usage != nil && event.Response != nil && event.Response.Usage != nil {
		r.usage.RecordUsage(event.Response.Usage)
	}

	r.mu.Lock()
	if r.barrier.active {
		r.disarmBarrierLocked("response_done")
	}
	var finalized *Utterance
	if r.turn.phase == phaseCapturing {
		u := r.finalizeLocked(false, "")
		finalized = &u
	}
	r.mu.Unlock()

	if finalized != nil {
		r.sink.UtteranceAdded(*finalized)
	}
}

// startTurnLocked begins a new assistant turn capture.
func (r *EventRouter) startTurnLocked() {
	r.turn.phase = phaseCapturing
	r.turn.startedAt = r.clock.Now()
	if err := r.audio.StartTurnCapture(); err != nil {
		r.logger.Error("start turn capture failed", "error", err)
		r.turn.recordingActive = false
	} else {
		r.turn.recordingActive = true
	}
}

// finalizeLocked drains the pending turn into an utterance record and
// resets the capture entity.
func (r *EventRouter) finalizeLocked(interrupted bool, id string) Utterance {
	var artifact Artifact
	if r.turn.recordingActive {
		a, err := r.audio.StopTurnCapture()
		if err != nil {
			r.logger.Error("stop turn capture failed", "error", err)
		} else {
			artifact = a
		}
	}

	if id == "" {
		id = newUtteranceID()
	}
	transcript := r.turn.transcript.String()
	u := Utterance{
		ID:          id,
		Transcript:  transcript,
		Words:       splitWords(transcript),
		Audio:       artifact,
		Interrupted: interrupted,
		StartedAt:   r.turn.startedAt,
	}

	r.turn.reset()
	return u
}

// armBarrierLocked activates the suppression barrier. Arming while
// already active resets the drain timer rather than stacking barriers.
func (r *EventRouter) armBarrierLocked() {
	if r.barrier.timer != nil {
		r.barrier.timer.Stop()
	}
	r.barrier.active = true
	r.barrier.armedAt = r.clock.Now()
	r.turn.phase = phaseDraining
	r.barrier.timer = r.clock.AfterFunc(r.drainTimeout, func() {
		r.mu.Lock()
		if r.barrier.active {
			r.barrier.active = false
			r.barrier.timer = nil
			if r.turn.phase == phaseDraining {
				r.turn.phase = phaseIdle
			}
			r.logger.Debug("interruption barrier cleared by timeout")
		}
		r.mu.Unlock()
	})
}

// disarmBarrierLocked clears the barrier on an explicit drain signal.
func (r *EventRouter) disarmBarrierLocked(reason string) {
	if r.barrier.timer != nil {
		r.barrier.timer.Stop()
		r.barrier.timer = nil
	}
	r.barrier.active = false
	if r.turn.phase == phaseDraining {
		r.turn.phase = phaseIdle
	}
	r.logger.Debug("interruption barrier cleared", "reason", reason)
}

// BarrierActive reports whether the suppression barrier is armed.
func (r *EventRouter) BarrierActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.barrier.active
}

// toolPayloadMarkers identify transcript bodies that are really
// structured tool output and must not reach user-visible text.
var toolPayloadMarkers = []string{`"tool_call`, `"function`, `"call_id"`, `"arguments"`}

func looksLikeToolPayload(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	for _, marker := range toolPayloadMarkers {
		if strings.Contains(trimmed, marker) {
			return true
		}
	}
	return false
}
