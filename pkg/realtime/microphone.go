package realtime

import (
	"math/rand/v2"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// Opus at 48kHz produces 960 samples per 20ms frame.
const opusFrameSamples = 960

// Microphone wraps the local audio track and packetizes opus frames
// into RTP. An audio capture collaborator feeds it encoded frames.
type Microphone struct {
	track *webrtc.TrackLocalStaticRTP

	mu        sync.Mutex
	ssrc      uint32
	sequence  uint16
	timestamp uint32
}

func newMicrophone() (*Microphone, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"wordscape-mic",
	)
	if err != nil {
		return nil, err
	}
	return &Microphone{
		track: track,
		ssrc:  rand.Uint32(),
	}, nil
}

// ID returns the track ID.
func (m *Microphone) ID() string {
	return m.track.ID()
}

// WriteOpus sends one encoded opus frame to the peer. Frames written
// while the track is unbound are dropped by the transport.
func (m *Microphone) WriteOpus(payload []byte) error {
	m.mu.Lock()
	m.sequence++
	m.timestamp += opusFrameSamples
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111, // opus
			SequenceNumber: m.sequence,
			Timestamp:      m.timestamp,
			SSRC:           m.ssrc,
		},
		Payload: payload,
	}
	m.mu.Unlock()

	return m.track.WriteRTP(packet)
}
