// Package realtime provides the wire protocol and peer transports for
// talking to a realtime speech model.
//
// The protocol is a stream of JSON events exchanged over a reliable,
// ordered side channel. Two transports are provided:
//
//   - WebRTC — a peer connection carrying the model's audio as a media
//     track and protocol events over a data channel. This is the
//     low-latency mode used by interactive clients.
//   - WebSocket — a single socket carrying both audio (base64) and
//     events. Suitable for server-side use.
//
// Both expose the same [Channel] contract, so the session layer above
// does not care which transport carries its events.
//
// # Connecting
//
//	client := realtime.NewClient(apiKey)
//	key, err := client.RequestEphemeralKey(ctx)
//	if err != nil {
//	    return err
//	}
//	transport := realtime.NewWebRTCTransport(client)
//	handle, err := transport.Establish(ctx, key)
//
// # Sending events
//
//	sender := realtime.NewSender(handle.Chan)
//	sender.CancelResponse()
//	sender.ClearInput()
package realtime
