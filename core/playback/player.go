// Package playback plays synthesized speech assets returned by the backend
// and signals completion back to the conversation controller.
package playback

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Output is the audio output device the player queues decoded audio on.
// Marks are position-tracked: the callback fires once the output buffer has
// drained past the point where the mark was placed.
type Output interface {
	SendAudio(audio []byte) error
	Mark(mark string, callback func(string)) error
}

// Fetcher downloads http(s) speech assets.
type Fetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, error)
}

// Player plays one speech asset per turn. Assets are addressed by URL:
// http(s) URLs are fetched whole, ws(s) URLs are streamed frame by frame
// until the backend closes the stream.
type Player struct {
	output  Output
	fetcher Fetcher
	dialer  *websocket.Dialer
}

type PlayerOption func(*Player)

// WithDialer replaces the websocket dialer used for streamed assets.
func WithDialer(dialer *websocket.Dialer) PlayerOption {
	return func(p *Player) { p.dialer = dialer }
}

func NewPlayer(output Output, fetcher Fetcher, opts ...PlayerOption) *Player {
	player := &Player{
		output:  output,
		fetcher: fetcher,
		dialer:  websocket.DefaultDialer,
	}

	for _, opt := range opts {
		opt(player)
	}

	return player
}

// Play queues the asset at assetURL on the output and arranges for onEnded
// to fire exactly once when the output drains past it.
//
// An empty assetURL means there is nothing to play this turn: onEnded fires
// immediately so the conversation never waits for a completion that cannot
// come. On error, onEnded is not invoked and the caller decides how the turn
// progresses.
func (p *Player) Play(ctx context.Context, assetURL string, onEnded func()) error {
	ctx, span := tracer.Start(ctx, "play speech asset")
	defer span.End()
	span.SetAttributes(attribute.String("request.url", assetURL))

	ended := sync.OnceFunc(onEnded)

	if assetURL == "" {
		span.AddEvent("no asset, playback skipped")
		ended()
		return nil
	}

	parsed, err := url.Parse(assetURL)
	if err != nil {
		err = fmt.Errorf("error parsing asset url: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	switch parsed.Scheme {
	case "ws", "wss":
		err = p.stream(ctx, assetURL)
	default:
		err = p.fetchAndQueue(ctx, assetURL)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := p.output.Mark(uuid.NewString(), func(string) { ended() }); err != nil {
		err = fmt.Errorf("failed to mark end of playback: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (p *Player) fetchAndQueue(ctx context.Context, assetURL string) error {
	asset, err := p.fetcher.FetchAsset(ctx, assetURL)
	if err != nil {
		return fmt.Errorf("failed to fetch speech asset: %w", err)
	}

	if err := p.output.SendAudio(asset); err != nil {
		return fmt.Errorf("failed to queue speech asset: %w", err)
	}

	return nil
}

// stream reads binary frames from a websocket asset until the backend closes
// the stream, forwarding each frame to the output in arrival order.
func (p *Player) stream(ctx context.Context, assetURL string) error {
	conn, _, err := p.dialer.DialContext(ctx, assetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial speech stream: %w", err)
	}
	defer conn.Close()

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read speech stream frame: %w", err)
		}

		if messageType != websocket.BinaryMessage {
			logger.DebugContext(ctx, "skipping non-binary speech stream frame", "type", messageType)
			continue
		}

		if err := p.output.SendAudio(frame); err != nil {
			return fmt.Errorf("failed to queue speech stream frame: %w", err)
		}
	}
}
