package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// DefaultMaxRetries is how many times a retryable lookup failure is
	// retried before the call fails.
	DefaultMaxRetries = 2

	// DefaultFailureThreshold is the consecutive retryable-failure
	// streak that opens the circuit.
	DefaultFailureThreshold = 3

	// DefaultCooldown is how long an open circuit rejects lookups
	// before allowing a probe.
	DefaultCooldown = 30 * time.Second

	// DefaultMaxBackoff caps the exponential backoff between retries.
	DefaultMaxBackoff = 8 * time.Second
)

// ErrCircuitOpen is returned without a network call while the circuit
// is open.
var ErrCircuitOpen = errors.New("embedding: circuit open")

// Error is a lookup failure with retryability classification.
type Error struct {
	Word       string
	StatusCode int
	Message    string
	retryable  bool
	malformed  bool
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding: lookup %q: status %d: %s", e.Word, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding: lookup %q: %s", e.Word, e.Message)
}

// Retryable reports whether retrying the lookup could succeed.
func (e *Error) Retryable() bool {
	return e.retryable
}

// Stats is a snapshot of client health counters.
type Stats struct {
	Requests      int
	Successes     int
	Recoveries    int
	Retries       int
	Timeouts      int
	Failures      int
	NonRetryable  int
	Malformed     int
	ShortCircuits int
	CircuitOpened int
	Fallbacks     int
}

// Client looks up word positions over HTTP with bounded retries and a
// circuit breaker. The breaker counts consecutive lookups that failed
// for retryable reasons; caller mistakes (4xx, bad input) never open
// it and reset the streak.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	logger           *slog.Logger
	maxRetries       int
	maxBackoff       time.Duration
	failureThreshold int
	cooldown         time.Duration
	scale            float64
	nowFn            func() time.Time
	sleepFn          func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	streak    int
	openUntil time.Time
	stats     Stats
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxRetries bounds retries per lookup.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithMaxBackoff caps the delay between retries.
func WithMaxBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxBackoff = d
	}
}

// WithFailureThreshold sets the streak length that opens the circuit.
func WithFailureThreshold(n int) ClientOption {
	return func(c *Client) {
		c.failureThreshold = n
	}
}

// WithCooldown sets how long the circuit stays open.
func WithCooldown(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cooldown = d
	}
}

// WithFallbackScale sets the coordinate scale used for fallback
// positions.
func WithFallbackScale(scale float64) ClientOption {
	return func(c *Client) {
		c.scale = scale
	}
}

// WithNowFunc replaces the clock. For tests.
func WithNowFunc(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowFn = now
	}
}

// WithSleepFunc replaces the backoff sleep. For tests.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		c.sleepFn = sleep
	}
}

// NewClient creates a lookup client for the embedding service at
// baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:          baseURL,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		logger:           slog.Default(),
		maxRetries:       DefaultMaxRetries,
		maxBackoff:       DefaultMaxBackoff,
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultCooldown,
		scale:            DefaultScale,
		nowFn:            time.Now,
		sleepFn:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup fetches the position for word. Retryable failures (network
// errors, 429, 5xx) are retried with exponential backoff; exhausting
// retries counts one failure toward the circuit. While the circuit is
// open, Lookup returns ErrCircuitOpen without touching the network.
func (c *Client) Lookup(ctx context.Context, word string) (Point, error) {
	if word == "" {
		return Point{}, &Error{Word: word, Message: "empty word"}
	}

	c.mu.Lock()
	if c.nowFn().Before(c.openUntil) {
		c.stats.ShortCircuits++
		c.mu.Unlock()
		return Point{}, ErrCircuitOpen
	}
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.stats.Retries++
			c.mu.Unlock()
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			c.logger.Debug("retrying lookup", "word", word, "attempt", attempt, "backoff", backoff)
			if err := c.sleepFn(ctx, backoff); err != nil {
				return Point{}, err
			}
		}

		point, err := c.doLookup(ctx, word)
		if err == nil {
			c.recordSuccess()
			return point, nil
		}
		lastErr = err

		var lookupErr *Error
		if errors.As(err, &lookupErr) && !lookupErr.Retryable() {
			c.recordNonRetryable(err)
			return Point{}, err
		}
	}

	c.recordRetryableFailure(word)
	return Point{}, lastErr
}

// Resolve returns the service position, or the deterministic local
// position when the lookup fails for any reason. The second result
// reports whether the fallback was used.
func (c *Client) Resolve(ctx context.Context, word string) (Point, bool) {
	point, err := c.Lookup(ctx, word)
	if err == nil {
		return point, false
	}
	c.mu.Lock()
	c.stats.Fallbacks++
	c.mu.Unlock()
	if !errors.Is(err, ErrCircuitOpen) {
		c.logger.Warn("embedding lookup failed, using fallback", "word", word, "error", err)
	}
	return FallbackPoint(word, c.scale), true
}

// LookupOrFallback is Resolve without the fallback flag.
func (c *Client) LookupOrFallback(ctx context.Context, word string) Point {
	point, _ := c.Resolve(ctx, word)
	return point
}

func (c *Client) doLookup(ctx context.Context, word string) (Point, error) {
	c.mu.Lock()
	c.stats.Requests++
	c.mu.Unlock()

	endpoint := c.baseURL + "/embed-word?word=" + url.QueryEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, &Error{Word: word, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.mu.Lock()
			c.stats.Timeouts++
			c.mu.Unlock()
		}
		return Point{}, &Error{Word: word, Message: err.Error(), retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Point{}, &Error{Word: word, Message: err.Error(), retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		point, err := decodePoint(body, word)
		if err != nil {
			return Point{}, &Error{Word: word, StatusCode: resp.StatusCode, Message: err.Error(), malformed: true}
		}
		return point, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return Point{}, &Error{Word: word, StatusCode: resp.StatusCode, Message: string(body), retryable: true}
	default:
		return Point{}, &Error{Word: word, StatusCode: resp.StatusCode, Message: string(body)}
	}
}

// recordSuccess closes the circuit and clears the failure streak.
func (c *Client) recordSuccess() {
	c.mu.Lock()
	if c.streak > 0 {
		c.stats.Recoveries++
	}
	c.streak = 0
	c.openUntil = time.Time{}
	c.stats.Successes++
	c.mu.Unlock()
}

// recordNonRetryable clears the streak: caller mistakes say nothing
// about service health.
func (c *Client) recordNonRetryable(err error) {
	c.mu.Lock()
	c.streak = 0
	c.stats.NonRetryable++
	var lookupErr *Error
	if errors.As(err, &lookupErr) && lookupErr.malformed {
		c.stats.Malformed++
	}
	c.mu.Unlock()
}

func (c *Client) recordRetryableFailure(word string) {
	c.mu.Lock()
	c.streak++
	c.stats.Failures++
	if c.streak >= c.failureThreshold {
		if !c.nowFn().Before(c.openUntil) {
			c.stats.CircuitOpened++
		}
		c.openUntil = c.nowFn().Add(c.cooldown)
		c.logger.Warn("embedding circuit opened",
			"word", word, "streak", c.streak, "cooldown", c.cooldown)
	}
	c.mu.Unlock()
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// CircuitOpen reports whether lookups are currently short-circuited.
func (c *Client) CircuitOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowFn().Before(c.openUntil)
}
