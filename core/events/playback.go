package events

// KindPlaybackEnded identifies the completion of agent speech playback.
const KindPlaybackEnded Kind = "playback.ended"

// PlaybackEnded marks the end of agent speech playback for the current turn.
type PlaybackEnded struct{ Base }

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded() PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded)}
}
