package conversation

// State is the conversation turn state. Exactly one capture session and one
// in-flight transmission may exist at a time; the state enforces strict turn
// alternation (capture, transmit, speak, capture, ...).
type State string

const (
	// StateIdle is the initial state, before a conversation is opened.
	StateIdle State = "idle"
	// StateGreeting covers the opening greeting exchange.
	StateGreeting State = "greeting"
	// StateAwaitingCapture means the agent is waiting for the user to reply.
	StateAwaitingCapture State = "awaiting_capture"
	// StateRecording means a capture session is accumulating audio.
	StateRecording State = "recording"
	// StateTransmitting means a voice turn is in flight to the backend.
	StateTransmitting State = "transmitting"
	// StateSpeaking means the agent's reply audio is playing.
	StateSpeaking State = "speaking"
	// StateComplete is terminal: the order is placed, no further capture.
	StateComplete State = "complete"
	// StateErrored means the last exchange failed; the user can retry.
	StateErrored State = "errored"
)

// MicControl is the visual state of the single capture toggle.
type MicControl string

const (
	// MicReady renders the idle toggle, ready to start recording.
	MicReady MicControl = "ready"
	// MicRecording renders the pulsing recording toggle.
	MicRecording MicControl = "recording"
	// MicDisabled renders the disabled toggle while transmitting or speaking.
	MicDisabled MicControl = "disabled"
	// MicCelebrating renders the disabled celebratory indicator of a placed order.
	MicCelebrating MicControl = "celebrating"
)

// User-visible status lines and alerts.
const (
	statusConnecting      = "Connecting..."
	statusListening       = "Listening..."
	statusThinking        = "Thinking... ☕"
	statusSpeaking        = "Speaking..."
	statusTapToReply      = "Tap to Reply"
	statusOrderPlaced     = "Order Placed! ✅"
	statusDidNotCatch     = "Sorry, I didn't catch that."
	statusConnectionError = "Error connecting to barista."

	alertMicDenied = "Microphone permission denied."
)

// DefaultGreeting is the fixed text the client opens every conversation with.
const DefaultGreeting = "Hi there! Welcome in. What can I get started for you today?"
