package realtime

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned by Send when the data channel is not open.
var ErrChannelClosed = errors.New("realtime: data channel not open")

// Error represents an API error from the realtime endpoint.
type Error struct {
	// Code is the error code (e.g. "session_creation_failed").
	Code string `json:"code,omitzero"`

	// Type is the error type (e.g. "invalid_request_error").
	Type string `json:"type,omitzero"`

	// Message is the human-readable error message.
	Message string `json:"message,omitzero"`

	// EventID is the ID of the client event that caused the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is the HTTP status code, if applicable.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: %s: %s", e.Code, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("realtime: %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("realtime: %s", e.Message)
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
