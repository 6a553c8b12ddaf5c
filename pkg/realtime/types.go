package realtime

import "encoding/json"

// Default model and voice for new sessions.
const (
	DefaultModel = "gpt-4o-realtime-preview"
	DefaultVoice = "alloy"
)

// Audio formats supported by the realtime endpoint.
const (
	// AudioFormatPCM16 is 16-bit PCM audio at 24kHz, mono, little-endian.
	AudioFormatPCM16 = "pcm16"
)

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// SessionConfig contains configuration for updating session parameters.
type SessionConfig struct {
	// Modalities specifies the output modalities.
	// Default: ["text", "audio"]
	Modalities []string `json:"modalities,omitzero"`

	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitzero"`

	// Voice is the voice ID for audio output.
	Voice string `json:"voice,omitzero"`

	// InputAudioFormat specifies the input audio format. Default: pcm16.
	InputAudioFormat string `json:"input_audio_format,omitzero"`

	// OutputAudioFormat specifies the output audio format. Default: pcm16.
	OutputAudioFormat string `json:"output_audio_format,omitzero"`

	// InputAudioTranscription enables transcription of user audio.
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`

	// Tools defines the available functions for the model.
	Tools []Tool `json:"tools,omitzero"`

	// ToolChoice specifies how the model should use tools
	// ("auto", "none", "required" or an object form).
	ToolChoice any `json:"tool_choice,omitzero"`

	// Temperature controls randomness (0.6-1.2). Default: 0.8.
	Temperature *float64 `json:"temperature,omitzero"`

	// TurnDetectionDisabled when true sends "turn_detection": null,
	// disabling server-side VAD. Push-to-talk clients run in this
	// manual mode: the client commits the buffer and creates responses
	// itself.
	TurnDetectionDisabled bool `json:"-"`
}

// MarshalJSON implements custom marshaling so that manual mode sends an
// explicit "turn_detection": null rather than omitting the field.
func (s SessionConfig) MarshalJSON() ([]byte, error) {
	type alias SessionConfig
	data, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	if !s.TurnDetectionDisabled {
		return data, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["turn_detection"] = nil
	return json.Marshal(m)
}

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	// Model is the transcription model to use. Default: whisper-1.
	Model string `json:"model,omitzero"`
}

// Tool defines a function tool available to the model.
type Tool struct {
	// Type is always "function".
	Type string `json:"type"`

	// Name is the function name.
	Name string `json:"name"`

	// Description describes what the function does.
	Description string `json:"description,omitzero"`

	// Parameters is the JSON Schema for the function parameters.
	Parameters map[string]any `json:"parameters,omitzero"`
}

// SessionResource represents the session state returned by the server.
type SessionResource struct {
	ID                      string               `json:"id,omitzero"`
	Object                  string               `json:"object,omitzero"`
	Model                   string               `json:"model,omitzero"`
	ExpiresAt               int64                `json:"expires_at,omitzero"`
	Modalities              []string             `json:"modalities,omitzero"`
	Instructions            string               `json:"instructions,omitzero"`
	Voice                   string               `json:"voice,omitzero"`
	InputAudioFormat        string               `json:"input_audio_format,omitzero"`
	OutputAudioFormat       string               `json:"output_audio_format,omitzero"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`
	Tools                   []Tool               `json:"tools,omitzero"`
	Temperature             float64              `json:"temperature,omitzero"`
}

// ConversationItem represents an item in the conversation.
type ConversationItem struct {
	ID        string        `json:"id,omitzero"`
	Type      string        `json:"type,omitzero"` // "message", "function_call", "function_call_output"
	Status    string        `json:"status,omitzero"`
	Role      string        `json:"role,omitzero"` // "user", "assistant", "system"
	Content   []ContentPart `json:"content,omitzero"`
	CallID    string        `json:"call_id,omitzero"`
	Name      string        `json:"name,omitzero"`
	Arguments string        `json:"arguments,omitzero"`
	Output    string        `json:"output,omitzero"`
}

// ContentPart represents a part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"` // "input_text", "input_audio", "text", "audio"
	Text       string `json:"text,omitzero"`
	Audio      string `json:"audio,omitzero"` // base64 encoded
	Transcript string `json:"transcript,omitzero"`
}

// ResponseResource represents a response from the model.
type ResponseResource struct {
	ID     string             `json:"id,omitzero"`
	Object string             `json:"object,omitzero"`
	Status string             `json:"status,omitzero"` // "in_progress", "completed", "cancelled", "incomplete", "failed"
	Output []ConversationItem `json:"output,omitzero"`
	Usage  *Usage             `json:"usage,omitzero"`
}

// Usage contains token usage information.
type Usage struct {
	TotalTokens  int `json:"total_tokens,omitzero"`
	InputTokens  int `json:"input_tokens,omitzero"`
	OutputTokens int `json:"output_tokens,omitzero"`
}
