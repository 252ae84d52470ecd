// Package conversation implements the client-side turn state machine of the
// voice ordering client: it sequences microphone capture, backend exchange,
// order snapshot replacement, receipt rendering and reply playback into a
// strict turn-taking protocol.
package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/baristalabs/barista-core/core/audio"
	"github.com/baristalabs/barista-core/core/capture"
	"github.com/baristalabs/barista-core/core/events"
	"github.com/baristalabs/barista-core/core/order"
	"github.com/baristalabs/barista-core/core/receipt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Controller owns the conversation state: the turn state, the single order
// snapshot and the at-most-one capture session. All mutations go through
// Handle, the single state machine entry point; collaborator completions
// (transport replies, playback end, capture chunks) are fed back into Handle
// as typed events.
type Controller struct {
	mu sync.Mutex

	state    State
	snapshot order.Snapshot

	// session is the at-most-one open capture session.
	session *capture.Session
	// preRecordingState is restored when microphone acquisition fails after
	// the toggle was accepted.
	preRecordingState State
	// activeTurnID identifies the single in-flight transmission; completions
	// carrying another ID are stale and discarded.
	activeTurnID string

	transport     Transport
	captureDevice CaptureDevice
	player        Player

	greeting        string
	baseContext     context.Context
	converseOptions ConverseOptions
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		state:       StateIdle,
		snapshot:    order.Empty(),
		greeting:    DefaultGreeting,
		baseContext: context.Background(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Converse binds the base context and the per-conversation UI callbacks.
// Call it once before dispatching user actions.
func (c *Controller) Converse(ctx context.Context, opts ...ConverseOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseContext = ctx
	c.converseOptions = ConverseOptions{}
	for _, opt := range opts {
		opt(&c.converseOptions)
	}
}

// StartConversation opens (or reopens) a conversation with the greeting.
func (c *Controller) StartConversation() {
	c.Handle(events.NewConversationStarted(c.greeting))
}

// ToggleCapture starts recording when the agent awaits a reply and stops and
// transmits when a recording is open. Presses in any other state are ignored,
// which is what keeps turns strictly alternating.
func (c *Controller) ToggleCapture() {
	c.Handle(events.NewCaptureToggled())
}

// State returns the current turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current order snapshot.
func (c *Controller) Snapshot() order.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.Clone()
}

// effect is work emitted by a transition and run after the state lock is
// released, in emission order.
type effect func()

// Handle is the single entry point of the state machine: it maps
// (state, event) to (new state, effects) under the lock and runs the effects
// afterwards, so callbacks can safely dispatch further events.
func (c *Controller) Handle(event events.Event) {
	c.mu.Lock()
	effects := c.respondToEvent(event)
	c.mu.Unlock()

	for _, run := range effects {
		run()
	}
}

func (c *Controller) respondToEvent(event events.Event) []effect {
	switch typedEvent := event.(type) {
	case events.ConversationStarted:
		return c.startConversationLocked(typedEvent.Greeting)
	case events.GreetingReceived:
		if c.state != StateGreeting {
			return nil
		}
		return c.startSpeakingLocked(typedEvent.AudioURL)
	case events.GreetingFailed:
		if c.state != StateGreeting {
			return nil
		}
		return c.failConversationLocked(statusConnectionError, typedEvent.Err)
	case events.CaptureToggled:
		return c.toggleCaptureLocked()
	case events.CaptureStarted:
		return c.captureStartedLocked()
	case events.CaptureChunk:
		c.appendChunkLocked(typedEvent.Audio)
		return nil
	case events.CaptureDenied:
		return c.captureDeniedLocked(typedEvent.Err)
	case events.TurnReceived:
		if c.state != StateTransmitting || typedEvent.TurnID != c.activeTurnID {
			return nil
		}
		return c.applyTurnLocked(typedEvent)
	case events.TurnFailed:
		if c.state != StateTransmitting || typedEvent.TurnID != c.activeTurnID {
			return nil
		}
		return c.failConversationLocked(statusDidNotCatch, typedEvent.Err)
	case events.PlaybackEnded:
		if c.state != StateSpeaking {
			return nil
		}
		return c.resolveTurnEndLocked()
	}

	return nil
}

// startConversationLocked resets the order state and opens the greeting
// exchange. Reopening is allowed from any resting state, which covers both
// retrying a failed greeting and starting over after a placed order.
func (c *Controller) startConversationLocked(greeting string) []effect {
	switch c.state {
	case StateIdle, StateErrored, StateComplete:
	default:
		return nil
	}

	c.state = StateGreeting
	c.snapshot = order.Empty()
	c.session = nil
	c.activeTurnID = ""

	effects := []effect{
		c.emitState(StateGreeting),
		c.emitReceipt(receipt.Render(c.snapshot)),
		c.emitStatus(statusConnecting),
		c.emitMicControl(MicDisabled),
	}

	ctx := c.baseContext
	return append(effects, func() {
		go func() {
			reply, err := c.transport.SendGreeting(ctx, greeting)
			if err != nil {
				c.Handle(events.NewGreetingFailed(err))
				return
			}
			c.Handle(events.NewGreetingReceived(reply.AudioURL))
		}()
	})
}

func (c *Controller) toggleCaptureLocked() []effect {
	switch c.state {
	case StateAwaitingCapture, StateErrored:
		return c.startRecordingLocked()
	case StateRecording:
		return c.stopRecordingLocked()
	default:
		// Includes Transmitting and Speaking: the toggle stays dead until the
		// turn resolves, so playback completion always wins the race.
		return nil
	}
}

// startRecordingLocked opens a capture session. The transition is committed
// internally but surfaced only once the microphone is actually acquired, so a
// denied permission leaves no externally visible state change.
func (c *Controller) startRecordingLocked() []effect {
	c.preRecordingState = c.state
	c.state = StateRecording
	c.session = capture.NewSession()

	ctx := c.baseContext
	return []effect{func() {
		if err := c.captureDevice.StartCapture(ctx, func(chunk []byte) {
			c.Handle(events.NewCaptureChunk(chunk))
		}); err != nil {
			c.Handle(events.NewCaptureDenied(err))
			return
		}

		c.Handle(events.NewCaptureStarted())
	}}
}

// captureStartedLocked surfaces a committed recording once the microphone is
// actually acquired. The user may have toggled off while the device was still
// acquiring; the acquisition is then stale and the device is released instead,
// so the microphone is never held past its recording.
func (c *Controller) captureStartedLocked() []effect {
	if c.state != StateRecording {
		ctx := c.baseContext
		return []effect{func() {
			if err := c.captureDevice.StopCapture(); err != nil {
				logger.WarnContext(ctx, "failed to release stale capture device", "error", err)
			}
		}}
	}

	return []effect{
		c.emitState(StateRecording),
		c.emitStatus(statusListening),
		c.emitMicControl(MicRecording),
	}
}

// captureDeniedLocked rolls back a capture toggle whose microphone
// acquisition failed: the session is discarded and the previous state
// restored, leaving only a blocking alert for the user.
func (c *Controller) captureDeniedLocked(err error) []effect {
	if c.state != StateRecording || c.session == nil {
		return nil
	}

	c.session = nil
	c.state = c.preRecordingState

	message := alertMicDenied
	if err != nil && !errors.Is(err, audio.ErrPermissionDenied) {
		message = "Microphone unavailable: " + err.Error()
	}

	ctx := c.baseContext
	return []effect{func() {
		logger.WarnContext(ctx, "microphone acquisition failed", "error", err)
		c.emitAlert(message)()
	}}
}

func (c *Controller) appendChunkLocked(chunk []byte) {
	if c.state != StateRecording || c.session == nil {
		return
	}

	// A chunk racing a finalized session is rejected by the session itself.
	_ = c.session.Append(chunk)
}

// stopRecordingLocked finalizes the open session into one payload and opens
// the single in-flight transmission for this turn.
func (c *Controller) stopRecordingLocked() []effect {
	session := c.session
	c.session = nil

	turnID := uuid.NewString()
	c.activeTurnID = turnID
	c.state = StateTransmitting

	current := c.snapshot.Clone()
	ctx := c.baseContext

	effects := []effect{
		c.emitState(StateTransmitting),
		c.emitStatus(statusThinking),
		c.emitMicControl(MicDisabled),
	}

	return append(effects, func() {
		if err := c.captureDevice.StopCapture(); err != nil {
			logger.WarnContext(ctx, "failed to stop capture device", "error", err)
		}

		payload, finalized := session.Stop()
		if !finalized {
			return
		}

		go c.transmit(ctx, turnID, payload, current)
	})
}

func (c *Controller) transmit(ctx context.Context, turnID string, payload []byte, current order.Snapshot) {
	ctx, span := tracer.Start(ctx, "voice turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int("turn.audio_bytes", len(payload)),
	)

	reply, err := c.transport.SendVoiceTurn(ctx, payload, current)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.Handle(events.NewTurnFailed(turnID, err))
		return
	}

	c.Handle(events.NewTurnReceived(turnID, reply.Snapshot(), reply.AudioURL))
}

// applyTurnLocked replaces the order snapshot wholesale when the reply
// carries one, re-renders the receipt, and then either speaks the reply or,
// when there is nothing to play, resolves the turn immediately so the mic is
// never left disabled.
func (c *Controller) applyTurnLocked(reply events.TurnReceived) []effect {
	c.activeTurnID = ""

	effects := []effect{}
	if reply.UpdatedState != nil {
		c.snapshot = reply.UpdatedState.Clone()
		effects = append(effects, c.emitReceipt(receipt.Render(c.snapshot)))
	}

	if reply.AudioURL == "" {
		return append(effects, c.resolveTurnEndLocked()...)
	}

	return append(effects, c.startSpeakingLocked(reply.AudioURL)...)
}

// startSpeakingLocked plays the reply audio; the turn resolves when playback
// completion is fed back in. A playback failure is demoted to an immediate
// completion so the conversation always returns to an actionable state.
func (c *Controller) startSpeakingLocked(audioURL string) []effect {
	if audioURL == "" {
		return c.resolveTurnEndLocked()
	}

	c.state = StateSpeaking

	effects := []effect{
		c.emitState(StateSpeaking),
		c.emitStatus(statusSpeaking),
		c.emitMicControl(MicDisabled),
	}

	ctx := c.baseContext
	return append(effects, func() {
		go func() {
			if err := c.player.Play(ctx, audioURL, func() {
				c.Handle(events.NewPlaybackEnded())
			}); err != nil {
				logger.WarnContext(ctx, "playback failed, resolving turn without audio", "error", err)
				c.Handle(events.NewPlaybackEnded())
			}
		}()
	})
}

// resolveTurnEndLocked decides what follows the agent's reply: a terminal
// celebration when the backend marked the order complete, otherwise the next
// capture invitation.
func (c *Controller) resolveTurnEndLocked() []effect {
	if c.snapshot.IsComplete {
		c.state = StateComplete
		return []effect{
			c.emitState(StateComplete),
			c.emitStatus(statusOrderPlaced),
			c.emitMicControl(MicCelebrating),
		}
	}

	c.state = StateAwaitingCapture
	return []effect{
		c.emitState(StateAwaitingCapture),
		c.emitStatus(statusTapToReply),
		c.emitMicControl(MicReady),
	}
}

// failConversationLocked converts an exchange failure into an actionable
// errored state: the status explains, the mic is re-enabled, and the order
// snapshot is left exactly as it was before the attempt.
func (c *Controller) failConversationLocked(status string, err error) []effect {
	c.state = StateErrored
	c.activeTurnID = ""

	ctx := c.baseContext
	return []effect{
		func() { logger.WarnContext(ctx, "backend exchange failed", "error", err) },
		c.emitState(StateErrored),
		c.emitStatus(status),
		c.emitMicControl(MicReady),
	}
}

func (c *Controller) emitStatus(status string) effect {
	callback := c.converseOptions.onStatusChanged
	return func() {
		if callback != nil {
			callback(status)
		}
	}
}

func (c *Controller) emitMicControl(control MicControl) effect {
	callback := c.converseOptions.onMicControlChanged
	return func() {
		if callback != nil {
			callback(control)
		}
	}
}

func (c *Controller) emitReceipt(rendered receipt.Receipt) effect {
	callback := c.converseOptions.onReceiptUpdated
	return func() {
		if callback != nil {
			callback(rendered)
		}
	}
}

func (c *Controller) emitState(state State) effect {
	callback := c.converseOptions.onStateChanged
	return func() {
		if callback != nil {
			callback(state)
		}
	}
}

func (c *Controller) emitAlert(message string) effect {
	callback := c.converseOptions.onAlert
	return func() {
		if callback != nil {
			callback(message)
		}
	}
}
