package realtime

import (
	"io"
	"sync"
)

// Channel is the reliable, ordered side channel carrying JSON protocol
// events. Listeners may be added and removed independently; the message
// handler is single-owner (the event router binds it).
type Channel interface {
	// Send transmits a raw JSON payload. Returns ErrChannelClosed if the
	// channel is not open.
	Send(data []byte) error

	// IsOpen reports whether the channel is currently open.
	IsOpen() bool

	// AddOpenListener registers fn to run when the channel opens.
	// The returned function removes the listener.
	AddOpenListener(fn func()) (remove func())

	// AddCloseListener registers fn to run when the channel closes.
	AddCloseListener(fn func()) (remove func())

	// AddErrorListener registers fn to run on a channel error.
	AddErrorListener(fn func(error)) (remove func())

	// SetMessageHandler sets the handler for inbound messages,
	// replacing any previous handler.
	SetMessageHandler(fn func(data []byte))
}

// AudioSink receives remote audio payloads from the transport.
type AudioSink interface {
	// HandleRemoteAudio is called with each opus payload read from the
	// remote media track.
	HandleRemoteAudio(payload []byte)
}

// Media binds a sink to the transport's remote media stream. Bind must
// deliver audio even when the remote track went live before Bind was
// called.
type Media interface {
	Bind(sink AudioSink)
}

// LocalTrack is the locally captured audio track reference.
type LocalTrack interface {
	ID() string
}

// Handle bundles the transport artifacts of one (re)connect. A new
// handle replaces the previous one wholesale; the session layer owns it
// for the lifetime of the connection.
type Handle struct {
	// Peer is the underlying peer connection (or socket).
	Peer io.Closer

	// Chan is the protocol event channel.
	Chan Channel

	// Track is the local audio track, if the transport carries one.
	Track LocalTrack

	// RemoteMedia binds remote audio delivery, if the transport carries
	// a media stream. Nil for transports that deliver audio in events.
	RemoteMedia Media
}

// listenerSet is a fan-out registry used by channel implementations.
type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]T
}

func (s *listenerSet[T]) add(fn T) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *listenerSet[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.fns))
	for _, fn := range s.fns {
		out = append(out, fn)
	}
	return out
}
