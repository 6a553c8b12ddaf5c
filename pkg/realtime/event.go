package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client event types (sent from client to server).
const (
	// Session events
	EventTypeSessionUpdate = "session.update"

	// Input audio buffer events
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	// Conversation item events
	EventTypeConversationItemCreate = "conversation.item.create"

	// Response events
	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"
)

// Server event types (sent from server to client).
const (
	// Error event
	EventTypeError = "error"

	// Session events
	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	// Conversation events
	EventTypeConversationItemCreated                           = "conversation.item.created"
	EventTypeConversationItemInputAudioTranscriptionCompleted  = "conversation.item.input_audio_transcription.completed"
	EventTypeConversationItemInputAudioTranscriptionFailed     = "conversation.item.input_audio_transcription.failed"

	// Input audio buffer events
	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferCleared       = "input_audio_buffer.cleared"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	// Output audio buffer events (WebRTC transport only)
	EventTypeOutputAudioBufferStarted = "output_audio_buffer.started"
	EventTypeOutputAudioBufferStopped = "output_audio_buffer.stopped"

	// Response events
	EventTypeResponseCreated = "response.created"
	EventTypeResponseDone    = "response.done"

	// Response text events
	EventTypeResponseTextDelta = "response.text.delta"
	EventTypeResponseTextDone  = "response.text.done"

	// Response audio events
	EventTypeResponseAudioDelta = "response.audio.delta"
	EventTypeResponseAudioDone  = "response.audio.done"

	// Response audio transcript events
	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"

	// Response function call events
	EventTypeResponseFunctionCallArgumentsDone = "response.function_call_arguments.done"
)

// ServerEvent represents a server event received over the data channel.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// Session contains session information (for session.created, session.updated).
	Session *SessionResource `json:"session,omitzero"`

	// Item contains the conversation item (for conversation.item.* events).
	Item *ConversationItem `json:"item,omitzero"`

	// ItemID is the ID of the item (for various events).
	ItemID string `json:"item_id,omitzero"`

	// Transcript is the transcription text (for transcript done and
	// input transcription events).
	Transcript string `json:"transcript,omitzero"`

	// Text is the final text (for response.text.done).
	Text string `json:"text,omitzero"`

	// TranscriptionError contains error info for error events.
	TranscriptionError *EventError `json:"error,omitzero"`

	// Response contains response information (for response.* events).
	Response *ResponseResource `json:"response,omitzero"`

	// ResponseID is the response identifier.
	ResponseID string `json:"response_id,omitzero"`

	// Delta contains incremental text/arguments (for *.delta events).
	Delta string `json:"delta,omitzero"`

	// Audio contains decoded audio data (populated after parsing).
	Audio []byte `json:"-"`

	// CallID is the function call ID.
	CallID string `json:"call_id,omitzero"`

	// Name is the function name.
	Name string `json:"name,omitzero"`

	// Arguments is the complete function arguments (for the done event).
	Arguments string `json:"arguments,omitzero"`

	// Raw contains the original JSON message.
	Raw []byte `json:"-"`
}

// EventError contains error information from error events.
type EventError struct {
	Type    string `json:"type,omitzero"`
	Code    string `json:"code,omitzero"`
	Message string `json:"message,omitzero"`
	EventID string `json:"event_id,omitzero"`
}

// ToError converts EventError to Error.
func (e *EventError) ToError() *Error {
	return &Error{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		EventID: e.EventID,
	}
}

// ParseServerEvent parses a raw JSON message into a ServerEvent.
func ParseServerEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("realtime: parse event: %w", err)
	}

	event.Raw = message

	// For audio deltas the "delta" field carries base64 audio.
	if event.Type == EventTypeResponseAudioDelta && event.Delta != "" {
		if decoded, err := base64.StdEncoding.DecodeString(event.Delta); err == nil {
			event.Audio = decoded
		}
	}

	return &event, nil
}

// GenerateEventID generates a unique client event ID.
func GenerateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}
