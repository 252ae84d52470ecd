// Package audio holds the device-level contracts shared by the capture and
// playback backends.
package audio

import "errors"

// ErrPermissionDenied is reported by capture backends when the microphone
// cannot be acquired. The conversation surface treats it as a blocking,
// user-retryable condition rather than a fatal error.
var ErrPermissionDenied = errors.New("microphone permission denied")

const (
	DefaultSampleRate = 48000
	DefaultFormat     = FormatLinear16
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

// EncodingInfo describes the raw audio format a device produces or consumes.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

type Format string

const (
	FormatLinear16 Format = "linear16"
)

func (f Format) Name() string {
	return string(f)
}

func (f Format) ByteSize() int {
	switch f {
	case FormatLinear16:
		return 2
	}
	return -1
}
