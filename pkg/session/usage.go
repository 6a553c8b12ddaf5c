package session

import (
	"sync"

	"github.com/wordscape/wordscape/pkg/realtime"
)

// TokenTally accumulates token usage reported by the server plus rough
// estimates for suppressed transcript text, and gates new turns against
// a limit. A zero limit disables gating.
type TokenTally struct {
	mu        sync.Mutex
	limit     int
	total     int
	estimated int
}

// NewTokenTally creates a tally with the given token limit.
func NewTokenTally(limit int) *TokenTally {
	return &TokenTally{limit: limit}
}

// RecordUsage adds a server-reported usage payload.
func (t *TokenTally) RecordUsage(usage *realtime.Usage) {
	if usage == nil {
		return
	}
	t.mu.Lock()
	t.total += usage.TotalTokens
	t.mu.Unlock()
}

// EstimateText adds a rough token estimate for text that never reached
// a usage payload (suppressed deltas). Four characters per token,
// rounded up so partial tokens count against the limit.
func (t *TokenTally) EstimateText(text string) {
	if text == "" {
		return
	}
	n := (len(text) + 3) / 4
	t.mu.Lock()
	t.estimated += n
	t.mu.Unlock()
}

// AllowTurn reports whether another turn fits under the limit.
func (t *TokenTally) AllowTurn() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit > 0 && t.total+t.estimated >= t.limit {
		return false, ReasonUsageLimit
	}
	return true, ""
}

// Totals returns the reported and estimated token counts.
func (t *TokenTally) Totals() (total, estimated int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, t.estimated
}
