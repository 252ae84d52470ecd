package conversation

import (
	"context"

	"github.com/baristalabs/barista-core/core/order"
	"github.com/baristalabs/barista-core/core/receipt"
	"github.com/baristalabs/barista-core/core/transport"
)

type ControllerOption func(*Controller)

// Transport exchanges greeting and voice-turn requests with the backend.
type Transport interface {
	SendGreeting(ctx context.Context, text string) (*transport.GreetingReply, error)
	SendVoiceTurn(ctx context.Context, payload []byte, current order.Snapshot) (*transport.TurnReply, error)
}

func WithTransport(client Transport) ControllerOption {
	return func(c *Controller) { c.transport = client }
}

// CaptureDevice delivers microphone chunks while a capture session is open.
type CaptureDevice interface {
	StartCapture(ctx context.Context, onChunk func(chunk []byte)) error
	StopCapture() error
}

func WithCaptureDevice(device CaptureDevice) ControllerOption {
	return func(c *Controller) { c.captureDevice = device }
}

// Player plays one reply audio asset per turn and signals completion exactly
// once. An empty URL must complete immediately without playing anything.
type Player interface {
	Play(ctx context.Context, url string, onEnded func()) error
}

func WithPlayer(player Player) ControllerOption {
	return func(c *Controller) { c.player = player }
}

// WithGreeting replaces the fixed text the conversation opens with.
func WithGreeting(greeting string) ControllerOption {
	return func(c *Controller) {
		if greeting != "" {
			c.greeting = greeting
		}
	}
}

type ConverseOptions struct {
	onStatusChanged     func(status string)
	onMicControlChanged func(control MicControl)
	onReceiptUpdated    func(rendered receipt.Receipt)
	onStateChanged      func(state State)
	onAlert             func(message string)
}

type ConverseOption func(*ConverseOptions)

// WithStatusCallback registers a callback for status line updates.
func WithStatusCallback(callback func(status string)) ConverseOption {
	return func(o *ConverseOptions) {
		o.onStatusChanged = callback
	}
}

// WithMicControlCallback registers a callback for mic toggle visual updates.
func WithMicControlCallback(callback func(control MicControl)) ConverseOption {
	return func(o *ConverseOptions) {
		o.onMicControlChanged = callback
	}
}

// WithReceiptCallback registers a callback invoked with the freshly rendered
// receipt after every order snapshot replacement, and once at conversation
// start to clear the previous display.
func WithReceiptCallback(callback func(rendered receipt.Receipt)) ConverseOption {
	return func(o *ConverseOptions) {
		o.onReceiptUpdated = callback
	}
}

// WithStateChangedCallback registers a callback for turn state transitions.
func WithStateChangedCallback(callback func(state State)) ConverseOption {
	return func(o *ConverseOptions) {
		o.onStateChanged = callback
	}
}

// WithAlertCallback registers a callback for blocking, user-facing alerts
// (currently only refused microphone access).
func WithAlertCallback(callback func(message string)) ConverseOption {
	return func(o *ConverseOptions) {
		o.onAlert = callback
	}
}
