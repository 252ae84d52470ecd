// Package events defines the typed conversation event contract.
//
// Event kinds are grouped by namespaces matching where they originate:
//
//   - conversation.* (user-level conversation intents)
//   - capture.*      (microphone capture lifecycle)
//   - transport.*    (backend exchange completions)
//   - playback.*     (agent speech playback lifecycle)
//
// conversation events
//
//   - ConversationStarted (conversation.started): user asked to open a
//     conversation; carries the greeting text to send.
//
// capture events
//
//   - CaptureToggled (capture.toggled): user pressed the mic toggle.
//   - CaptureChunk (capture.chunk): binary audio chunk delivered by the
//     capture device while recording.
//   - CaptureDenied (capture.denied): microphone access was refused.
//
// transport events
//
//   - GreetingReceived (transport.greeting_received): greeting reply arrived.
//   - GreetingFailed (transport.greeting_failed): greeting request failed.
//   - TurnReceived (transport.turn_received): voice-turn reply arrived;
//     carries the replacement order snapshot (if any) and the reply audio URL.
//   - TurnFailed (transport.turn_failed): voice-turn request failed.
//
// playback events
//
//   - PlaybackEnded (playback.ended): the agent's reply audio finished
//     playing (or was skipped because there was nothing to play).
package events
