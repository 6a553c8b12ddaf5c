package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketTransport establishes socket connections against the
// realtime endpoint. Audio travels inside protocol events (base64), so
// the handle carries no media track.
type WebSocketTransport struct {
	client *Client
	logger *slog.Logger
}

// NewWebSocketTransport creates a WebSocket transport.
func NewWebSocketTransport(client *Client) *WebSocketTransport {
	return &WebSocketTransport{client: client, logger: slog.Default()}
}

// Establish dials the socket using the short-lived credential.
func (t *WebSocketTransport) Establish(ctx context.Context, credential string) (*Handle, error) {
	url := fmt.Sprintf("%s?model=%s", t.client.config.wsURL, t.client.config.model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+credential)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: t.client.config.httpClient.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("realtime: failed to connect: %w", err)
	}

	ch := newWSChannel(conn, t.logger)
	go ch.readLoop()

	return &Handle{
		Peer: conn.NetConn(),
		Chan: ch,
	}, nil
}

// wsChannel adapts a websocket connection to the Channel contract. The
// socket counts as open from dial until the read loop exits.
type wsChannel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	closeFns listenerSet[func()]
	errFns   listenerSet[func(error)]

	mu      sync.Mutex
	msgFn   func(data []byte)
	open    bool
	writeMu sync.Mutex
}

func newWSChannel(conn *websocket.Conn, logger *slog.Logger) *wsChannel {
	return &wsChannel{conn: conn, logger: logger, open: true}
}

func (ch *wsChannel) readLoop() {
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			ch.mu.Lock()
			ch.open = false
			ch.mu.Unlock()
			ch.logger.Debug("websocket read ended", "error", err)
			for _, fn := range ch.errFns.snapshot() {
				fn(err)
			}
			for _, fn := range ch.closeFns.snapshot() {
				fn()
			}
			return
		}

		ch.mu.Lock()
		fn := ch.msgFn
		ch.mu.Unlock()
		if fn != nil {
			fn(data)
		}
	}
}

func (ch *wsChannel) Send(data []byte) error {
	if !ch.IsOpen() {
		return ErrChannelClosed
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

func (ch *wsChannel) IsOpen() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.open
}

// AddOpenListener fires immediately: the socket is open from the moment
// dialing succeeds.
func (ch *wsChannel) AddOpenListener(fn func()) func() {
	if ch.IsOpen() {
		fn()
	}
	return func() {}
}

func (ch *wsChannel) AddCloseListener(fn func()) func() {
	return ch.closeFns.add(fn)
}

func (ch *wsChannel) AddErrorListener(fn func(error)) func() {
	return ch.errFns.add(fn)
}

func (ch *wsChannel) SetMessageHandler(fn func(data []byte)) {
	ch.mu.Lock()
	ch.msgFn = fn
	ch.mu.Unlock()
}
