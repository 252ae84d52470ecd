package events

import "github.com/baristalabs/barista-core/core/order"

const (
	// KindGreetingReceived identifies a successful greeting reply.
	KindGreetingReceived Kind = "transport.greeting_received"
	// KindGreetingFailed identifies a failed greeting request.
	KindGreetingFailed Kind = "transport.greeting_failed"
	// KindTurnReceived identifies a successful voice-turn reply.
	KindTurnReceived Kind = "transport.turn_received"
	// KindTurnFailed identifies a failed voice-turn request.
	KindTurnFailed Kind = "transport.turn_failed"
)

// GreetingReceived carries the greeting reply audio URL (may be empty).
type GreetingReceived struct {
	Base
	AudioURL string
}

// NewGreetingReceived creates a greeting received event.
func NewGreetingReceived(audioURL string) GreetingReceived {
	return GreetingReceived{Base: NewBase(KindGreetingReceived), AudioURL: audioURL}
}

// GreetingFailed marks a failed greeting request.
type GreetingFailed struct {
	Base
	Err error
}

// NewGreetingFailed creates a greeting failed event.
func NewGreetingFailed(err error) GreetingFailed {
	return GreetingFailed{Base: NewBase(KindGreetingFailed), Err: err}
}

// TurnReceived carries a voice-turn reply. UpdatedState is nil when the
// backend sent no replacement snapshot this turn; AudioURL is empty when
// there is nothing to play.
type TurnReceived struct {
	Base
	TurnID       string
	UpdatedState *order.Snapshot
	AudioURL     string
}

// NewTurnReceived creates a turn received event.
func NewTurnReceived(turnID string, updatedState *order.Snapshot, audioURL string) TurnReceived {
	return TurnReceived{Base: NewBase(KindTurnReceived), TurnID: turnID, UpdatedState: updatedState, AudioURL: audioURL}
}

// TurnFailed marks a failed voice-turn request.
type TurnFailed struct {
	Base
	TurnID string
	Err    error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Err: err}
}
