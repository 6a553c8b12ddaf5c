package session

import (
	"context"
	"time"

	"github.com/wordscape/wordscape/pkg/realtime"
)

// CredentialProvider issues the short-lived credential used to
// establish the transport.
type CredentialProvider interface {
	RequestEphemeralKey(ctx context.Context) (string, error)
}

// Transport establishes the peer transport given a credential. Each
// call produces a fresh handle that replaces the previous one.
type Transport interface {
	Establish(ctx context.Context, credential string) (*realtime.Handle, error)
}

// Status is a user-facing connection status.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusReady      Status = "ready"
	StatusReconnect  Status = "reconnect"
	StatusError      Status = "error"
)

// StatusPresenter surfaces status changes and errors to the user.
// Connection failures are presented as a retry affordance; this layer
// never owns the UI.
type StatusPresenter interface {
	SetStatus(status Status)
	PresentError(err error)
}

// DevicePreamble runs constrained-device checks before connecting.
// Failures are non-fatal: permission probes are flaky on such browsers
// and the connect proceeds regardless.
type DevicePreamble interface {
	ProbeMicrophone(ctx context.Context) error
	CheckReachability(ctx context.Context) error
}

// Recording is a locally captured audio segment awaiting enrichment by
// the transcription collaborator.
type Recording struct {
	Data     []byte
	Duration time.Duration
}

// Artifact is a reference to a stored audio artifact for one assistant
// turn. Construction is delegated to the audio manager.
type Artifact struct {
	Ref      string
	Duration time.Duration
}

// AudioManager controls audio capture on both sides of the
// conversation: the user's microphone and the assistant's audio turn.
// Codec and device internals live behind this interface.
type AudioManager interface {
	realtime.AudioSink

	// StartRecording begins microphone capture.
	StartRecording(ctx context.Context) error

	// StopRecording ends microphone capture and returns the segment.
	StopRecording(ctx context.Context) (*Recording, error)

	// StartTurnCapture begins capturing the assistant's audio turn.
	StartTurnCapture() error

	// StopTurnCapture ends the turn capture and returns the artifact.
	StopTurnCapture() (Artifact, error)
}

// Transcriber enriches a locally captured recording with a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, rec *Recording) (string, error)
}

// UsageGate checks the token/usage-limit precondition before a turn.
// When the turn is disallowed it returns a user-presentable reason.
type UsageGate interface {
	AllowTurn() (allowed bool, reason string)
}

// UsageMeter accumulates token usage from protocol events and from
// suppressed transcript deltas (estimation pass-through).
type UsageMeter interface {
	RecordUsage(usage *realtime.Usage)
	EstimateText(text string)
}

// FunctionCallHandler receives completed function call arguments.
type FunctionCallHandler interface {
	HandleFunctionCall(name, callID, arguments string)
}

// TranscriptionReconciler reconciles a completed user transcription
// with the dialogue, exactly once per event.
type TranscriptionReconciler interface {
	ReconcileUserTranscript(itemID, transcript string)
}

// EventSink receives the router's output: finalized utterance records
// and synthetic speech notifications for UI consumers.
type EventSink interface {
	UtteranceAdded(u Utterance)
	SpeechStarted()
	SpeechStopped()
}
