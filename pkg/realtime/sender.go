package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Sender issues client protocol events over a channel. Every event
// carries a fresh event_id.
type Sender struct {
	ch     Channel
	logger *slog.Logger
}

// NewSender creates a Sender for the given channel.
func NewSender(ch Channel) *Sender {
	return &Sender{ch: ch, logger: slog.Default()}
}

// UpdateSession sends the session configuration.
func (s *Sender) UpdateSession(config *SessionConfig) error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  config,
	})
}

// AddSystemPrompt adds a system message to the conversation.
func (s *Sender) AddSystemPrompt(text string) error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type": "message",
			"role": "system",
			"content": []map[string]any{
				{
					"type": "input_text",
					"text": text,
				},
			},
		},
	})
}

// AddFunctionCallOutput adds a function call output to the conversation.
func (s *Sender) AddFunctionCallOutput(callID string, output string) error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// CommitInput commits the input audio buffer, creating a user message.
func (s *Sender) CommitInput() error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// ClearInput clears the input audio buffer without creating a message.
func (s *Sender) ClearInput() error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeInputAudioBufferClear,
	})
}

// CreateResponse requests the model to generate a response.
func (s *Sender) CreateResponse() error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeResponseCreate,
	})
}

// CancelResponse cancels the current response generation.
func (s *Sender) CancelResponse() error {
	return s.send(map[string]any{
		"event_id": GenerateEventID(),
		"type":     EventTypeResponseCancel,
	})
}

// SendRaw sends a raw JSON event.
func (s *Sender) SendRaw(event map[string]any) error {
	if _, ok := event["event_id"]; !ok {
		event["event_id"] = GenerateEventID()
	}
	return s.send(event)
}

// send marshals and transmits one event.
func (s *Sender) send(event map[string]any) error {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		str := string(jsonBytes)
		if len(str) > 500 {
			str = str[:500] + "..."
		}
		s.logger.Debug("sending event", "content", str)
	}

	return s.ch.Send(jsonBytes)
}
