package events

const (
	// KindCaptureToggled identifies a user press of the mic toggle.
	KindCaptureToggled Kind = "capture.toggled"
	// KindCaptureStarted identifies an acquired microphone.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureChunk identifies a binary audio chunk delivered while recording.
	KindCaptureChunk Kind = "capture.chunk"
	// KindCaptureDenied identifies refused microphone access.
	KindCaptureDenied Kind = "capture.denied"
)

// CaptureToggled marks a user press of the mic toggle.
type CaptureToggled struct{ Base }

// NewCaptureToggled creates a capture toggled event.
func NewCaptureToggled() CaptureToggled {
	return CaptureToggled{Base: NewBase(KindCaptureToggled)}
}

// CaptureStarted marks a successfully acquired microphone. Acquisition is
// asynchronous, so by the time it lands the recording may already be over.
type CaptureStarted struct{ Base }

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted() CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted)}
}

// CaptureChunk carries an audio chunk delivered by the capture device.
type CaptureChunk struct {
	Base
	Audio []byte
}

// NewCaptureChunk creates a capture chunk event.
func NewCaptureChunk(audio []byte) CaptureChunk {
	return CaptureChunk{Base: NewBase(KindCaptureChunk), Audio: audio}
}

// CaptureDenied marks refused microphone access.
type CaptureDenied struct {
	Base
	Err error
}

// NewCaptureDenied creates a capture denied event.
func NewCaptureDenied(err error) CaptureDenied {
	return CaptureDenied{Base: NewBase(KindCaptureDenied), Err: err}
}
