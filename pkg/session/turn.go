package session

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// turnPhase tags the lifecycle of a single assistant turn.
type turnPhase int

const (
	phaseIdle turnPhase = iota
	phaseCapturing
	phaseDraining
)

func (p turnPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseCapturing:
		return "capturing"
	case phaseDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// pendingTurn is the capture state for the assistant turn in flight.
// Exactly one exists at a time; it is owned by the event router and
// mutated only under its lock.
type pendingTurn struct {
	phase           turnPhase
	transcript      strings.Builder
	recordingActive bool
	startedAt       time.Time
	interruptedID   string
}

// reset returns the pending turn to idle.
func (t *pendingTurn) reset() {
	t.phase = phaseIdle
	t.transcript.Reset()
	t.recordingActive = false
	t.startedAt = time.Time{}
	t.interruptedID = ""
}

// Utterance is one finalized span of assistant speech, from start to
// natural or interrupted end.
type Utterance struct {
	// ID identifies the utterance. Interrupted turns carry the id the
	// interrupter supplied, so downstream UI finalizes a distinct
	// bubble instead of merging with the next turn.
	ID string

	// Transcript is the accumulated or authoritative final text.
	Transcript string

	// Words is the transcript split into lowercase word tokens.
	Words []string

	// Audio references the captured audio artifact.
	Audio Artifact

	// Interrupted marks a turn cut short by the user.
	Interrupted bool

	// StartedAt is when the first turn signal arrived.
	StartedAt time.Time
}

// newUtteranceID generates an id for a naturally finished utterance.
func newUtteranceID() string {
	return "utt_" + uuid.New().String()[:12]
}

// splitWords tokenizes a transcript into lowercase words. Punctuation
// is dropped; apostrophes inside a word are kept.
func splitWords(transcript string) []string {
	fields := strings.FieldsFunc(transcript, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		words = append(words, strings.ToLower(f))
	}
	return words
}
