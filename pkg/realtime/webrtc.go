package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3"
)

// WebRTCTransport establishes peer connections against the realtime
// endpoint: a recvonly audio transceiver for the model's voice, a local
// audio track for the microphone, and an "oai-events" data channel for
// protocol events.
type WebRTCTransport struct {
	client *Client
	logger *slog.Logger
}

// WebRTCOption configures the transport.
type WebRTCOption func(*WebRTCTransport)

// WithWebRTCLogger sets the transport logger.
func WithWebRTCLogger(logger *slog.Logger) WebRTCOption {
	return func(t *WebRTCTransport) {
		t.logger = logger
	}
}

// NewWebRTCTransport creates a WebRTC transport using the given client
// for SDP exchange.
func NewWebRTCTransport(client *Client, opts ...WebRTCOption) *WebRTCTransport {
	t := &WebRTCTransport{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Establish builds a fresh peer connection using the short-lived
// credential and returns its handle. Every call produces a new handle;
// the caller replaces any previous one.
func (t *WebRTCTransport) Establish(ctx context.Context, credential string) (*Handle, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: create peer connection: %w", err)
	}

	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: add audio transceiver: %w", err)
	}

	mic, err := newMicrophone()
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: create local track: %w", err)
	}
	if _, err := pc.AddTrack(mic.track); err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: add local track: %w", err)
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: create data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: set local description: %w", err)
	}

	// Wait for ICE gathering so the offer carries candidates.
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		pc.Close()
		return nil, ctx.Err()
	}

	answer, err := t.client.sendOffer(ctx, credential, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: send offer: %w", err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("realtime: set remote description: %w", err)
	}

	return &Handle{
		Peer:        pc,
		Chan:        newWebRTCChannel(dc, t.logger),
		Track:       mic,
		RemoteMedia: newWebRTCMedia(pc, t.logger),
	}, nil
}

// webrtcChannel adapts a pion data channel to the Channel contract with
// listener fan-out.
type webrtcChannel struct {
	dc     *webrtc.DataChannel
	logger *slog.Logger

	openFns  listenerSet[func()]
	closeFns listenerSet[func()]
	errFns   listenerSet[func(error)]

	mu    sync.Mutex
	msgFn func(data []byte)
}

func newWebRTCChannel(dc *webrtc.DataChannel, logger *slog.Logger) *webrtcChannel {
	ch := &webrtcChannel{dc: dc, logger: logger}

	dc.OnOpen(func() {
		logger.Debug("data channel opened", "label", dc.Label())
		for _, fn := range ch.openFns.snapshot() {
			fn()
		}
	})
	dc.OnClose(func() {
		logger.Debug("data channel closed", "label", dc.Label())
		for _, fn := range ch.closeFns.snapshot() {
			fn()
		}
	})
	dc.OnError(func(err error) {
		logger.Debug("data channel error", "error", err)
		for _, fn := range ch.errFns.snapshot() {
			fn(err)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		ch.mu.Lock()
		fn := ch.msgFn
		ch.mu.Unlock()
		if fn != nil {
			fn(msg.Data)
		}
	})

	return ch
}

func (ch *webrtcChannel) Send(data []byte) error {
	if ch.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelClosed
	}
	return ch.dc.Send(data)
}

func (ch *webrtcChannel) IsOpen() bool {
	return ch.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (ch *webrtcChannel) AddOpenListener(fn func()) func() {
	return ch.openFns.add(fn)
}

func (ch *webrtcChannel) AddCloseListener(fn func()) func() {
	return ch.closeFns.add(fn)
}

func (ch *webrtcChannel) AddErrorListener(fn func(error)) func() {
	return ch.errFns.add(fn)
}

func (ch *webrtcChannel) SetMessageHandler(fn func(data []byte)) {
	ch.mu.Lock()
	ch.msgFn = fn
	ch.mu.Unlock()
}

// webrtcMedia delivers remote track audio to a bound sink.
type webrtcMedia struct {
	pc     *webrtc.PeerConnection
	logger *slog.Logger

	mu   sync.Mutex
	sink AudioSink
}

func newWebRTCMedia(pc *webrtc.PeerConnection, logger *slog.Logger) *webrtcMedia {
	return &webrtcMedia{pc: pc, logger: logger}
}

// Bind wires remote-track handling and hydrates any track that went
// live before Bind was called, so no audio is lost to the race between
// track arrival and listener attachment.
func (m *webrtcMedia) Bind(sink AudioSink) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()

	m.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		m.logger.Debug("received remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			go m.readRemoteTrack(track)
		}
	})

	// Hydrate already-live receiver tracks.
	for _, receiver := range m.pc.GetReceivers() {
		track := receiver.Track()
		if track != nil && track.Kind() == webrtc.RTPCodecTypeAudio {
			m.logger.Debug("hydrating live remote track", "codec", track.Codec().MimeType)
			go m.readRemoteTrack(track)
		}
	}
}

// readRemoteTrack reads RTP packets from the remote audio track and
// forwards the opus payloads to the sink.
func (m *webrtcMedia) readRemoteTrack(track *webrtc.TrackRemote) {
	for {
		rtpPacket, _, err := track.ReadRTP()
		if err != nil {
			m.logger.Debug("remote track read ended", "error", err)
			return
		}

		m.mu.Lock()
		sink := m.sink
		m.mu.Unlock()

		if sink != nil {
			sink.HandleRemoteAudio(rtpPacket.Payload)
		}
	}
}
