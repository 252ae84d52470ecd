// Package transport exchanges greeting and voice-turn requests with the
// agent backend over HTTP. Every call is attempted exactly once under an
// explicit timeout; the backend performs all speech and order reasoning.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/baristalabs/barista-core/core/order"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	greetingPath  = "/server"
	voiceTurnPath = "/chat-with-voice"

	// Multipart contract of /chat-with-voice.
	audioFieldName = "file"
	audioFileName  = "recording.webm"
	stateFieldName = "current_state"

	defaultTimeout = 30 * time.Second
)

// ErrConnection covers every way a backend exchange can fail: dial errors,
// timeouts and non-2xx replies. Callers treat them all the same, so the
// cause is wrapped instead of typed.
var ErrConnection = errors.New("connection to agent failed")

// GreetingReply is the response of POST /server.
type GreetingReply struct {
	AudioURL string `json:"audioUrl"`
}

// TurnReply is the response of POST /chat-with-voice. UpdatedState is absent
// when the backend has no replacement snapshot this turn.
type TurnReply struct {
	UpdatedState *order.WireSnapshot `json:"updated_state"`
	AudioURL     string              `json:"audio_url"`
}

// Snapshot converts the reply's replacement state, or returns nil when the
// backend sent none.
func (r TurnReply) Snapshot() *order.Snapshot {
	if r.UpdatedState == nil {
		return nil
	}
	snapshot := order.FromWire(*r.UpdatedState)
	return &snapshot
}

// Client talks to the agent backend. The zero value is not usable; construct
// with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*Client)

// WithTimeout bounds each backend call. Expiry is reported as ErrConnection
// so a hung backend never leaves the conversation stuck.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// WithHTTPClient replaces the underlying HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SendGreeting opens a conversation with a single POST carrying the fixed
// greeting text. The backend replies with the greeting audio URL.
func (c *Client) SendGreeting(ctx context.Context, text string) (*GreetingReply, error) {
	ctx, span := tracer.Start(ctx, "send greeting")
	defer span.End()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		err = fmt.Errorf("error marshalling greeting body: %w", err)
		span.RecordError(err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+greetingPath, bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("error creating greeting request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	reply := &GreetingReply{}
	if err := c.do(ctx, req, reply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("response.has_audio", reply.AudioURL != ""))
	return reply, nil
}

// SendVoiceTurn submits one finalized recording plus the serialized current
// order snapshot as a multipart POST and returns the backend's reply.
//
// Partial snapshots are not part of the contract: the reply either replaces
// the whole order state or leaves it alone.
func (c *Client) SendVoiceTurn(ctx context.Context, payload []byte, current order.Snapshot) (*TurnReply, error) {
	ctx, span := tracer.Start(ctx, "send voice turn")
	defer span.End()
	span.SetAttributes(attribute.Int("request.audio_bytes", len(payload)))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filePart, err := writer.CreateFormFile(audioFieldName, audioFileName)
	if err != nil {
		err = fmt.Errorf("error creating audio form file: %w", err)
		span.RecordError(err)
		return nil, err
	}
	if _, err := filePart.Write(payload); err != nil {
		err = fmt.Errorf("error writing audio payload: %w", err)
		span.RecordError(err)
		return nil, err
	}

	state, err := current.MarshalWire()
	if err != nil {
		err = fmt.Errorf("error serializing order state: %w", err)
		span.RecordError(err)
		return nil, err
	}
	if err := writer.WriteField(stateFieldName, string(state)); err != nil {
		err = fmt.Errorf("error writing order state field: %w", err)
		span.RecordError(err)
		return nil, err
	}

	if err := writer.Close(); err != nil {
		err = fmt.Errorf("error finalizing multipart body: %w", err)
		span.RecordError(err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+voiceTurnPath, body)
	if err != nil {
		err = fmt.Errorf("error creating voice turn request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	reply := &TurnReply{}
	if err := c.do(ctx, req, reply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("response.has_updated_state", reply.UpdatedState != nil),
		attribute.Bool("response.has_audio", reply.AudioURL != ""),
	)
	return reply, nil
}

// do performs one request attempt and decodes a JSON reply into out. There
// are no retries; any transport failure or non-2xx status maps to
// ErrConnection.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "backend request failed", "path", req.URL.Path, "error", err)
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if errorBody, err := io.ReadAll(resp.Body); err == nil && len(errorBody) > 0 {
			logger.WarnContext(ctx, "backend rejected request", "path", req.URL.Path, "status", resp.Status, "body", string(errorBody))
		}
		return fmt.Errorf("%w: non-OK HTTP status: %s", ErrConnection, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: error decoding response: %w", ErrConnection, err)
	}

	return nil
}
