package capture

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestStopConcatenatesChunksInArrivalOrder(t *testing.T) {
	session := NewSession()

	for _, chunk := range [][]byte{{0x01, 0x02}, {0x03}, {}, {0x04, 0x05}} {
		if err := session.Append(chunk); err != nil {
			t.Fatalf("expected append to succeed, got %v", err)
		}
	}

	payload, first := session.Stop()
	if !first {
		t.Fatalf("expected first stop to signal finalization")
	}
	if expected := []byte{0x01, 0x02, 0x03, 0x04, 0x05}; !bytes.Equal(payload, expected) {
		t.Fatalf("expected payload %v, got %v", expected, payload)
	}
}

func TestChunksAfterStopAreRejected(t *testing.T) {
	session := NewSession()
	if err := session.Append([]byte{0x01}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	payload, _ := session.Stop()

	if err := session.Append([]byte{0x02}); !errors.Is(err, ErrSessionFinalized) {
		t.Fatalf("expected ErrSessionFinalized, got %v", err)
	}
	if !bytes.Equal(payload, []byte{0x01}) {
		t.Fatalf("expected payload to exclude late chunks, got %v", payload)
	}
}

func TestStopSignalsExactlyOnce(t *testing.T) {
	session := NewSession()
	_ = session.Append([]byte{0x01})

	if _, first := session.Stop(); !first {
		t.Fatalf("expected first stop to signal")
	}
	if payload, first := session.Stop(); first || payload != nil {
		t.Fatalf("expected repeated stop to be silent, got payload=%v first=%v", payload, first)
	}
}

func TestAppendCopiesDeviceBuffers(t *testing.T) {
	session := NewSession()

	buffer := []byte{0x01, 0x02}
	_ = session.Append(buffer)
	buffer[0] = 0xFF

	payload, _ := session.Stop()
	if !bytes.Equal(payload, []byte{0x01, 0x02}) {
		t.Fatalf("expected payload to be immune to buffer reuse, got %v", payload)
	}
}

func TestConcurrentAppendsAllLandBeforeStop(t *testing.T) {
	session := NewSession()

	wg := sync.WaitGroup{}
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = session.Append([]byte{0xAA})
		}()
	}
	wg.Wait()

	payload, _ := session.Stop()
	if len(payload) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(payload))
	}
}

func TestNewSessionIsRecording(t *testing.T) {
	session := NewSession()

	if !session.Recording() {
		t.Fatalf("expected new session to be recording")
	}

	session.Stop()
	if session.Recording() {
		t.Fatalf("expected stopped session to not be recording")
	}
}
