// Package session implements the realtime conversation resilience core:
// an explicit connection state machine, a reconnect-aware push-to-talk
// turn controller, and an inbound event router that captures assistant
// audio turns and suppresses stale events after interruption.
//
// The package owns turn-taking correctness under an unreliable
// transport. A user can interrupt the assistant mid-utterance, the
// transport can drop and is silently rebuilt, and slow collaborators
// must never corrupt the visible conversation state.
//
// Components:
//
//   - [StateMachine] — the single source of truth for "are we connected".
//   - [Lifecycle] — orchestrates connect/reconnect: credential, transport,
//     channel lifecycle wiring.
//   - [EventRouter] — consumes inbound protocol events, owns the pending
//     assistant turn and the interruption barrier.
//   - [PTT] — translates press/release gestures into on-demand connects,
//     interruption, capture control, and outbound protocol commands.
//
// All collaborators (credential provider, transport, status presenter,
// audio manager, transcriber, usage gate, clock) are injected as small
// interfaces so they can be substituted in tests.
package session
