// Package capture implements the single-use microphone recording session:
// chunks accumulate while recording and are finalized into one payload.
package capture

import (
	"errors"
	"sync"
)

// ErrSessionFinalized is returned when a chunk arrives after Stop.
var ErrSessionFinalized = errors.New("capture session already finalized")

// Session accumulates audio chunks for one recording. A session is single
// use: Stop finalizes the accumulated chunks into one payload and is terminal.
//
// Chunks are delivered from device callbacks, so the session is safe for
// concurrent use.
type Session struct {
	mu        sync.Mutex
	recording bool
	chunks    [][]byte
}

// NewSession creates a recording session. The session starts accepting
// chunks immediately.
func NewSession() *Session {
	return &Session{recording: true}
}

// Recording reports whether the session still accepts chunks.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Append stores a chunk in arrival order. Chunks delivered after Stop are
// rejected with ErrSessionFinalized and never reach the payload.
func (s *Session) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return ErrSessionFinalized
	}

	// The device may reuse its buffer between callbacks, copy the chunk.
	stored := make([]byte, len(chunk))
	copy(stored, chunk)
	s.chunks = append(s.chunks, stored)
	return nil
}

// Stop finalizes the session, concatenating all accumulated chunks in
// arrival order into a single payload. Stop is idempotent-terminal: only the
// first call reports true, so completion is signaled exactly once.
func (s *Session) Stop() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil, false
	}
	s.recording = false

	size := 0
	for _, chunk := range s.chunks {
		size += len(chunk)
	}

	payload := make([]byte, 0, size)
	for _, chunk := range s.chunks {
		payload = append(payload, chunk...)
	}
	s.chunks = nil

	return payload, true
}
