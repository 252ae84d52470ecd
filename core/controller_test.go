package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baristalabs/barista-core/core/audio"
	"github.com/baristalabs/barista-core/core/events"
	"github.com/baristalabs/barista-core/core/order"
	"github.com/baristalabs/barista-core/core/receipt"
	"github.com/baristalabs/barista-core/core/transport"
	"github.com/baristalabs/barista-core/internal/utils"
)

type transportStub struct {
	mu sync.Mutex

	greetingReply *transport.GreetingReply
	greetingErr   error
	turnReply     *transport.TurnReply
	turnErr       error

	greetings []string
	payloads  [][]byte
	sentState []order.Snapshot
}

func (s *transportStub) SendGreeting(_ context.Context, text string) (*transport.GreetingReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greetings = append(s.greetings, text)
	if s.greetingErr != nil {
		return nil, s.greetingErr
	}
	return s.greetingReply, nil
}

func (s *transportStub) SendVoiceTurn(_ context.Context, payload []byte, current order.Snapshot) (*transport.TurnReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	s.sentState = append(s.sentState, current)
	if s.turnErr != nil {
		return nil, s.turnErr
	}
	return s.turnReply, nil
}

type captureStub struct {
	mu sync.Mutex

	startErr   error
	onChunk    func(chunk []byte)
	startCalls int
	stopCalls  int
}

func (s *captureStub) StartCapture(_ context.Context, onChunk func(chunk []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCalls++
	if s.startErr != nil {
		return s.startErr
	}
	s.onChunk = onChunk
	return nil
}

func (s *captureStub) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	return nil
}

func (s *captureStub) deliver(chunk []byte) {
	s.mu.Lock()
	onChunk := s.onChunk
	s.mu.Unlock()
	if onChunk != nil {
		onChunk(chunk)
	}
}

// slowCaptureStub holds StartCapture open until released, modelling a device
// that is still acquiring the microphone when the user moves on.
type slowCaptureStub struct {
	captureStub

	acquiring chan struct{}
	release   chan struct{}
}

func (s *slowCaptureStub) StartCapture(ctx context.Context, onChunk func(chunk []byte)) error {
	s.acquiring <- struct{}{}
	<-s.release
	return s.captureStub.StartCapture(ctx, onChunk)
}

// slowTransportStub holds SendVoiceTurn open until released so a test can
// observe the Transmitting state at leisure.
type slowTransportStub struct {
	transportStub

	proceed chan struct{}
}

func (s *slowTransportStub) SendVoiceTurn(ctx context.Context, payload []byte, current order.Snapshot) (*transport.TurnReply, error) {
	<-s.proceed
	return s.transportStub.SendVoiceTurn(ctx, payload, current)
}

type playerStub struct {
	mu sync.Mutex

	playErr error
	urls    []string
	onEnded func()
}

func (s *playerStub) Play(_ context.Context, url string, onEnded func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.urls = append(s.urls, url)
	s.onEnded = onEnded
	return nil
}

func (s *playerStub) playedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

func (s *playerStub) endPlayback(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		onEnded := s.onEnded
		s.onEnded = nil
		s.mu.Unlock()
		if onEnded != nil {
			onEnded()
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected playback to have started")
}

type uiRecorder struct {
	mu sync.Mutex

	statuses    []string
	micControls []MicControl
	receipts    []receipt.Receipt
	states      []State
	alerts      []string
}

func (r *uiRecorder) converseOptions() []ConverseOption {
	return []ConverseOption{
		WithStatusCallback(func(status string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, status)
		}),
		WithMicControlCallback(func(control MicControl) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.micControls = append(r.micControls, control)
		}),
		WithReceiptCallback(func(rendered receipt.Receipt) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.receipts = append(r.receipts, rendered)
		}),
		WithStateChangedCallback(func(state State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, state)
		}),
		WithAlertCallback(func(message string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.alerts = append(r.alerts, message)
		}),
	}
}

func (r *uiRecorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *uiRecorder) lastMicControl() MicControl {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.micControls) == 0 {
		return ""
	}
	return r.micControls[len(r.micControls)-1]
}

func (r *uiRecorder) lastReceipt() receipt.Receipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.receipts) == 0 {
		return receipt.Receipt{}
	}
	return r.receipts[len(r.receipts)-1]
}

func (r *uiRecorder) alertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func waitForState(t *testing.T, controller *Controller, expected State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if controller.State() == expected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected state %q, got %q", expected, controller.State())
}

func newTestController(transportClient Transport, captureDevice CaptureDevice, player *playerStub) (*Controller, *uiRecorder) {
	controller := NewController(
		WithTransport(transportClient),
		WithCaptureDevice(captureDevice),
		WithPlayer(player),
	)
	recorder := &uiRecorder{}
	controller.Converse(context.Background(), recorder.converseOptions()...)
	return controller, recorder
}

// advanceToAwaitingCapture walks a controller through the greeting exchange
// so tests can start at the top of a capture turn.
func advanceToAwaitingCapture(t *testing.T, controller *Controller, player *playerStub) {
	t.Helper()
	controller.StartConversation()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)
}

func TestGreetingHappyPathReachesAwaitingCapture(t *testing.T) {
	transportClient := &transportStub{greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"}}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, &captureStub{}, player)

	controller.StartConversation()
	waitForState(t, controller, StateSpeaking)

	if got := recorder.lastReceipt(); got != receipt.Render(order.Empty()) {
		t.Fatalf("expected conversation start to clear the receipt, got %+v", got)
	}

	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)

	if played := player.playedURLs(); len(played) != 1 || played[0] != "a.mp3" {
		t.Fatalf("expected greeting audio to play, got %v", played)
	}

	if got := recorder.lastStatus(); got != "Tap to Reply" {
		t.Fatalf("expected tap-to-reply status, got %q", got)
	}
	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic to be re-enabled, got %q", got)
	}
	if len(transportClient.greetings) != 1 || transportClient.greetings[0] != DefaultGreeting {
		t.Fatalf("expected the fixed greeting to be sent once, got %v", transportClient.greetings)
	}
}

func TestGreetingFailureIsActionable(t *testing.T) {
	transportClient := &transportStub{greetingErr: fmt.Errorf("%w: connection refused", transport.ErrConnection)}
	controller, recorder := newTestController(transportClient, &captureStub{}, &playerStub{})

	controller.StartConversation()
	waitForState(t, controller, StateErrored)

	if got := recorder.lastStatus(); got != "Error connecting to barista." {
		t.Fatalf("expected connection error status, got %q", got)
	}
	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic to stay actionable, got %q", got)
	}

	// The conversation can be reopened after a failed greeting.
	transportClient.mu.Lock()
	transportClient.greetingErr = nil
	transportClient.greetingReply = &transport.GreetingReply{AudioURL: "a.mp3"}
	transportClient.mu.Unlock()

	controller.StartConversation()
	waitForState(t, controller, StateSpeaking)
}

func TestVoiceTurnUpdatesReceiptAndReturnsToAwaitingCapture(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{
				DrinkType: utils.Ptr("Latte"),
				Size:      utils.Ptr("Grande"),
				Extras:    []string{"vanilla"},
				Name:      utils.Ptr("Sam"),
			},
			AudioURL: "b.mp3",
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	controller.ToggleCapture()
	if controller.State() != StateRecording {
		t.Fatalf("expected recording state, got %q", controller.State())
	}
	if got := recorder.lastStatus(); got != "Listening..." {
		t.Fatalf("expected listening status, got %q", got)
	}

	captureDevice.deliver([]byte{0x01, 0x02})
	captureDevice.deliver([]byte{0x03})

	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)

	if captureDevice.stopCalls != 1 {
		t.Fatalf("expected capture device to be stopped once, got %d", captureDevice.stopCalls)
	}
	if len(transportClient.payloads) != 1 || !bytes.Equal(transportClient.payloads[0], []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("expected finalized payload to concatenate chunks, got %v", transportClient.payloads)
	}

	expected := receipt.Receipt{Drink: "Latte", Size: "Grande", Milk: "-", Name: "Sam", Extras: "Extras: vanilla"}
	if got := recorder.lastReceipt(); got != expected {
		t.Fatalf("expected receipt %+v, got %+v", expected, got)
	}

	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)

	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic re-enabled after the turn, got %q", got)
	}
}

func TestCompletedOrderCelebratesAndRefusesFurtherCapture(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{
				DrinkType:  utils.Ptr("Latte"),
				Size:       utils.Ptr("Grande"),
				Milk:       utils.Ptr("Oat"),
				Extras:     []string{"vanilla"},
				Name:       utils.Ptr("Sam"),
				IsComplete: true,
			},
			AudioURL: "b.mp3",
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateComplete)

	if got := recorder.lastStatus(); got != "Order Placed! ✅" {
		t.Fatalf("expected order placed status, got %q", got)
	}
	if got := recorder.lastMicControl(); got != MicCelebrating {
		t.Fatalf("expected celebratory mic indicator, got %q", got)
	}

	startCallsBefore := captureDevice.startCalls
	controller.ToggleCapture()
	if controller.State() != StateComplete || captureDevice.startCalls != startCallsBefore {
		t.Fatalf("expected completed conversation to refuse further capture")
	}
}

func TestFailedVoiceTurnLeavesSnapshotUntouched(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnErr:       fmt.Errorf("%w: connection reset", transport.ErrConnection),
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	before := controller.Snapshot()

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateErrored)

	if got := recorder.lastStatus(); got != "Sorry, I didn't catch that." {
		t.Fatalf("expected catch-failure status, got %q", got)
	}
	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic re-enabled after failure, got %q", got)
	}
	if after := controller.Snapshot(); after.DrinkType != before.DrinkType || after.IsComplete != before.IsComplete {
		t.Fatalf("expected snapshot unchanged, got %+v", after)
	}

	// Errored is retryable: the next toggle opens a fresh session.
	controller.ToggleCapture()
	if controller.State() != StateRecording {
		t.Fatalf("expected retry toggle to start recording, got %q", controller.State())
	}
}

func TestReplyWithoutAudioStillReenablesCapture(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{DrinkType: utils.Ptr("Mocha"), Extras: []string{}},
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	playsBefore := len(player.playedURLs())

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateAwaitingCapture)

	if played := player.playedURLs(); len(played) != playsBefore {
		t.Fatalf("expected nothing to play, got %v", played)
	}
	if got := recorder.lastStatus(); got != "Tap to Reply" {
		t.Fatalf("expected status reset, got %q", got)
	}
	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic re-enabled despite missing audio, got %q", got)
	}
	if got := recorder.lastReceipt().Drink; got != "Mocha" {
		t.Fatalf("expected receipt update to still apply, got %q", got)
	}
}

func TestReplyWithoutUpdatedStateKeepsDisplayedSnapshot(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{DrinkType: utils.Ptr("Latte"), Extras: []string{}},
			AudioURL:     "b.mp3",
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	// First turn fills the receipt.
	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)

	receiptsBefore := recorder.lastReceipt()

	// Second turn carries no replacement state.
	transportClient.mu.Lock()
	transportClient.turnReply = &transport.TurnReply{AudioURL: "c.mp3"}
	transportClient.mu.Unlock()

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x02})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)

	if got := recorder.lastReceipt(); got != receiptsBefore {
		t.Fatalf("expected displayed snapshot unchanged, got %+v", got)
	}
	if got := controller.Snapshot().DrinkType; got != "Latte" {
		t.Fatalf("expected snapshot to survive the no-update turn, got %q", got)
	}
}

func TestDeniedMicrophoneLeavesStateUntouched(t *testing.T) {
	transportClient := &transportStub{greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"}}
	captureDevice := &captureStub{startErr: fmt.Errorf("%w: device refused", audio.ErrPermissionDenied)}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	statusBefore := recorder.lastStatus()

	controller.ToggleCapture()

	if controller.State() != StateAwaitingCapture {
		t.Fatalf("expected denial to leave state untouched, got %q", controller.State())
	}
	if recorder.alertCount() != 1 {
		t.Fatalf("expected one blocking alert, got %d", recorder.alertCount())
	}
	if got := recorder.lastStatus(); got != statusBefore {
		t.Fatalf("expected status untouched by denial, got %q", got)
	}

	// The user may retry the toggle once permission is granted.
	captureDevice.mu.Lock()
	captureDevice.startErr = nil
	captureDevice.mu.Unlock()

	controller.ToggleCapture()
	if controller.State() != StateRecording {
		t.Fatalf("expected retry to start recording, got %q", controller.State())
	}
}

func TestMicStaysDisabledWhileTransmittingAndSpeaking(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply:     &transport.TurnReply{AudioURL: "b.mp3"},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)

	if got := recorder.lastMicControl(); got != MicDisabled {
		t.Fatalf("expected mic disabled while speaking, got %q", got)
	}

	// Toggles while speaking are dead: no session opens, no device start.
	startCallsBefore := captureDevice.startCalls
	controller.ToggleCapture()
	if controller.State() != StateSpeaking || captureDevice.startCalls != startCallsBefore {
		t.Fatalf("expected toggle to be ignored while speaking")
	}

	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)
	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic re-enabled once speaking resolved, got %q", got)
	}
}

func waitForStopCalls(t *testing.T, device *captureStub, expected int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		device.mu.Lock()
		stops := device.stopCalls
		device.mu.Unlock()
		if stops >= expected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d capture stops", expected)
}

func TestToggleOffDuringMicAcquisitionKeepsMicDisabled(t *testing.T) {
	transportClient := &slowTransportStub{
		transportStub: transportStub{
			greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
			turnReply:     &transport.TurnReply{},
		},
		proceed: make(chan struct{}),
	}
	captureDevice := &slowCaptureStub{
		acquiring: make(chan struct{}),
		release:   make(chan struct{}),
	}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	// Toggle on; the device is still acquiring the microphone.
	go controller.ToggleCapture()
	<-captureDevice.acquiring

	// Toggle off before acquisition finishes: the turn moves on without it.
	controller.ToggleCapture()
	if controller.State() != StateTransmitting {
		t.Fatalf("expected transmitting state, got %q", controller.State())
	}

	// The late acquisition must neither resurface the recording UI nor hold
	// the microphone; the device is released instead.
	close(captureDevice.release)
	waitForStopCalls(t, &captureDevice.captureStub, 2)

	if controller.State() != StateTransmitting {
		t.Fatalf("expected state to stay transmitting, got %q", controller.State())
	}
	if got := recorder.lastMicControl(); got != MicDisabled {
		t.Fatalf("expected mic to stay disabled while transmitting, got %q", got)
	}
	if got := recorder.lastStatus(); got != "Thinking... ☕" {
		t.Fatalf("expected thinking status to survive the late acquisition, got %q", got)
	}

	close(transportClient.proceed)
	waitForState(t, controller, StateAwaitingCapture)

	captureDevice.mu.Lock()
	startCalls, stopCalls := captureDevice.startCalls, captureDevice.stopCalls
	captureDevice.mu.Unlock()
	if stopCalls < startCalls {
		t.Fatalf("expected every device start to be matched by a stop, got %d starts and %d stops", startCalls, stopCalls)
	}
}

func TestStaleTurnRepliesAreDiscarded(t *testing.T) {
	transportClient := &transportStub{greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"}}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, _ := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	stale := order.Snapshot{DrinkType: "Espresso"}
	controller.Handle(events.NewTurnReceived("not-the-active-turn", &stale, "x.mp3"))

	if controller.State() != StateAwaitingCapture {
		t.Fatalf("expected stale reply to be ignored, got state %q", controller.State())
	}
	if got := controller.Snapshot().DrinkType; got != "" {
		t.Fatalf("expected snapshot untouched by stale reply, got %q", got)
	}

	controller.Handle(events.NewTurnFailed("not-the-active-turn", errors.New("late failure")))
	if controller.State() != StateAwaitingCapture {
		t.Fatalf("expected stale failure to be ignored, got state %q", controller.State())
	}
}

func TestStartConversationResetsOrderState(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{
				DrinkType:  utils.Ptr("Latte"),
				Size:       utils.Ptr("Tall"),
				Milk:       utils.Ptr("Whole"),
				Extras:     []string{},
				Name:       utils.Ptr("Ana"),
				IsComplete: true,
			},
			AudioURL: "b.mp3",
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, recorder := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateComplete)

	controller.StartConversation()
	waitForState(t, controller, StateSpeaking)

	if got := controller.Snapshot(); got.DrinkType != "" || got.IsComplete {
		t.Fatalf("expected fresh conversation to reset the snapshot, got %+v", got)
	}
	if got := recorder.lastReceipt(); got != receipt.Render(order.Empty()) {
		t.Fatalf("expected receipt cleared on restart, got %+v", got)
	}
}

func TestCustomGreetingIsSent(t *testing.T) {
	transportClient := &transportStub{greetingReply: &transport.GreetingReply{}}
	controller := NewController(
		WithTransport(transportClient),
		WithCaptureDevice(&captureStub{}),
		WithPlayer(&playerStub{}),
		WithGreeting("Welcome to the counter!"),
	)
	controller.Converse(context.Background())

	controller.StartConversation()
	waitForState(t, controller, StateAwaitingCapture)

	if len(transportClient.greetings) != 1 || transportClient.greetings[0] != "Welcome to the counter!" {
		t.Fatalf("expected custom greeting, got %v", transportClient.greetings)
	}
}

func TestPlaybackFailureStillResolvesTurn(t *testing.T) {
	transportClient := &transportStub{greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"}}
	player := &playerStub{playErr: errors.New("asset gone")}
	controller, recorder := newTestController(transportClient, &captureStub{}, player)

	controller.StartConversation()
	waitForState(t, controller, StateAwaitingCapture)

	if got := recorder.lastMicControl(); got != MicReady {
		t.Fatalf("expected mic re-enabled after playback failure, got %q", got)
	}
}

func TestVoiceTurnSendsCurrentSnapshotCopy(t *testing.T) {
	transportClient := &transportStub{
		greetingReply: &transport.GreetingReply{AudioURL: "a.mp3"},
		turnReply: &transport.TurnReply{
			UpdatedState: &order.WireSnapshot{DrinkType: utils.Ptr("Latte"), Extras: []string{"vanilla"}},
			AudioURL:     "b.mp3",
		},
	}
	captureDevice := &captureStub{}
	player := &playerStub{}
	controller, _ := newTestController(transportClient, captureDevice, player)
	advanceToAwaitingCapture(t, controller, player)

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x01})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)
	player.endPlayback(t)
	waitForState(t, controller, StateAwaitingCapture)

	controller.ToggleCapture()
	captureDevice.deliver([]byte{0x02})
	controller.ToggleCapture()
	waitForState(t, controller, StateSpeaking)

	if len(transportClient.sentState) != 2 {
		t.Fatalf("expected two transmissions, got %d", len(transportClient.sentState))
	}
	if got := transportClient.sentState[0].DrinkType; got != "" {
		t.Fatalf("expected first turn to send the empty snapshot, got %q", got)
	}
	if got := transportClient.sentState[1].DrinkType; got != "Latte" {
		t.Fatalf("expected second turn to send the updated snapshot, got %q", got)
	}
}
