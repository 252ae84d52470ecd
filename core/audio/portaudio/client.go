// Package portaudio is an alternate device backend built on the PortAudio
// duplex stream. It exposes the same capture/playback contract as miniaudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/baristalabs/barista-core/core/audio"
	"github.com/gordonklaus/portaudio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	onChunk   func(chunk []byte)
	capturing bool

	queuedAudio []byte
	marks       []playbackMark

	mu sync.Mutex
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	client := &Client{bufferSize: bufferSize}

	stream, err := portaudio.OpenDefaultStream(1, 1, float64(audio.DefaultSampleRate), bufferSize, client.process)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open PortAudio stream: %w", audio.ErrPermissionDenied, err)
	}
	client.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to start PortAudio stream: %w", audio.ErrPermissionDenied, err)
	}

	return client, nil
}

// process is the duplex stream callback: it forwards captured frames while
// capturing and drains queued playback audio into the output buffer.
func (c *Client) process(in, out []int16) {
	c.mu.Lock()
	onChunk := c.onChunk
	capturing := c.capturing

	need := len(out) * 2
	c.fireMarksLocked(need)

	queued := c.queuedAudio
	if len(queued) > need {
		c.queuedAudio = queued[need:]
		queued = queued[:need]
	} else {
		c.queuedAudio = nil
	}
	c.mu.Unlock()

	for i := range out {
		out[i] = 0
	}
	for i := 0; i+1 < len(queued); i += 2 {
		out[i/2] = int16(binary.LittleEndian.Uint16(queued[i:]))
	}

	if capturing && onChunk != nil {
		chunkBuffer := bytes.Buffer{}
		_ = binary.Write(&chunkBuffer, binary.LittleEndian, in)
		onChunk(chunkBuffer.Bytes())
	}
}

func (c *Client) fireMarksLocked(until int) {
	passedMarks := 0
	for i, mark := range c.marks {
		if mark.position >= until {
			c.marks[i].position -= until
		} else {
			passedMarks++
		}
	}
	if passedMarks > 0 {
		toCall := c.marks[:passedMarks]
		c.marks = c.marks[passedMarks:]
		go func() {
			for _, mark := range toCall {
				mark.callback(mark.name)
			}
		}()
	}
}

func (c *Client) StartCapture(_ context.Context, onChunk func(chunk []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("stream not open")
	}

	c.onChunk = onChunk
	c.capturing = true
	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturing = false
	c.onChunk = nil
	return nil
}

func (c *Client) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("stream not open")
	}

	c.queuedAudio = append(c.queuedAudio, audio...)
	return nil
}

func (c *Client) Mark(mark string, callback func(string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: len(c.queuedAudio),
		callback: callback,
	})
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
