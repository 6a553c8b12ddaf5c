package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultHTTPURL is the default HTTP endpoint (session creation and
	// SDP exchange).
	DefaultHTTPURL = "https://api.openai.com/v1/realtime"

	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"
)

// Client talks to the realtime endpoint's HTTP surface: ephemeral
// credential issuance and SDP offer exchange.
type Client struct {
	config *clientConfig
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiKey     string
	model      string
	voice      string
	httpURL    string
	wsURL      string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new realtime client.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("realtime: API key is required")
	}

	cfg := &clientConfig{
		apiKey:     apiKey,
		model:      DefaultModel,
		voice:      DefaultVoice,
		httpURL:    DefaultHTTPURL,
		wsURL:      DefaultWebSocketURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{config: cfg}
}

// WithModel sets the model ID used for sessions.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithVoice sets the voice ID used when creating the ephemeral credential.
func WithVoice(voice string) Option {
	return func(c *clientConfig) {
		c.voice = voice
	}
}

// WithHTTPURL sets the HTTP URL for session creation and SDP exchange.
func WithHTTPURL(url string) Option {
	return func(c *clientConfig) {
		c.httpURL = url
	}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// Model returns the configured model ID.
func (c *Client) Model() string {
	return c.config.model
}

// ephemeralTokenResponse is the response from the session creation API.
type ephemeralTokenResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	ExpiresAt    int64  `json:"expires_at"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// RequestEphemeralKey obtains a short-lived credential for transport
// establishment. The first attempt sends a minimal request; on a network
// failure one more attempt is made with explicit content negotiation
// headers, which works around proxies that reject bare POSTs.
func (c *Client) RequestEphemeralKey(ctx context.Context) (string, error) {
	key, err := c.requestEphemeralKey(ctx, false)
	if err == nil {
		return key, nil
	}
	if _, isAPI := AsError(err); isAPI {
		return "", err
	}
	slog.Debug("ephemeral key request failed, retrying with explicit headers", "error", err)
	return c.requestEphemeralKey(ctx, true)
}

func (c *Client) requestEphemeralKey(ctx context.Context, explicit bool) (string, error) {
	reqBody := map[string]any{
		"model": c.config.model,
		"voice": c.config.voice,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.httpURL+"/sessions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if explicit {
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:       "session_creation_failed",
			Message:    fmt.Sprintf("failed to create session: %s", string(body)),
			HTTPStatus: resp.StatusCode,
		}
	}

	var tokenResp ephemeralTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	if tokenResp.ClientSecret.Value == "" {
		return "", &Error{
			Code:    "session_creation_failed",
			Message: "session response carried no client secret",
		}
	}

	return tokenResp.ClientSecret.Value, nil
}

// sendOffer sends the SDP offer using the ephemeral credential and
// returns the answer SDP.
func (c *Client) sendOffer(ctx context.Context, credential, sdp string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", c.config.httpURL, c.config.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(sdp)))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:       "sdp_exchange_failed",
			Message:    fmt.Sprintf("failed to exchange SDP: %s", string(body)),
			HTTPStatus: resp.StatusCode,
		}
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(answer), nil
}
