package realtime

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestParseServerEvent_TranscriptDelta(t *testing.T) {
	raw := []byte(`{"type":"response.audio_transcript.delta","event_id":"evt_1","delta":"hello "}`)

	event, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent error: %v", err)
	}
	if event.Type != EventTypeResponseAudioTranscriptDelta {
		t.Errorf("Type = %q; want %q", event.Type, EventTypeResponseAudioTranscriptDelta)
	}
	if event.Delta != "hello " {
		t.Errorf("Delta = %q; want %q", event.Delta, "hello ")
	}
	if string(event.Raw) != string(raw) {
		t.Error("Raw should carry the original message")
	}
}

func TestParseServerEvent_AudioDeltaDecodesBase64(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	encoded := base64.StdEncoding.EncodeToString(pcm)
	raw := []byte(`{"type":"response.audio.delta","delta":"` + encoded + `"}`)

	event, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent error: %v", err)
	}
	if string(event.Audio) != string(pcm) {
		t.Errorf("Audio = %v; want %v", event.Audio, pcm)
	}
}

func TestParseServerEvent_UsagePayload(t *testing.T) {
	raw := []byte(`{"type":"response.done","response":{"id":"resp_1","status":"completed","usage":{"total_tokens":42,"input_tokens":10,"output_tokens":32}}}`)

	event, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent error: %v", err)
	}
	if event.Response == nil || event.Response.Usage == nil {
		t.Fatal("Response.Usage should be populated")
	}
	if event.Response.Usage.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d; want 42", event.Response.Usage.TotalTokens)
	}
}

func TestParseServerEvent_Invalid(t *testing.T) {
	if _, err := ParseServerEvent([]byte(`not json`)); err == nil {
		t.Error("ParseServerEvent should fail on invalid JSON")
	}
}

func TestGenerateEventID(t *testing.T) {
	a := GenerateEventID()
	b := GenerateEventID()

	if !strings.HasPrefix(a, "evt_") {
		t.Errorf("event ID %q should have evt_ prefix", a)
	}
	if a == b {
		t.Error("consecutive event IDs should differ")
	}
}
