package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FetchAsset downloads a synthesized speech asset returned by the backend.
// Asset URLs point at the backend's TTS storage, not at the backend itself,
// so fetching shares the client's timeout and failure taxonomy.
func (c *Client) FetchAsset(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "fetch audio asset")
	defer span.End()
	span.SetAttributes(attribute.String("request.url", url))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("error creating asset request: %w", err)
		span.RecordError(err)
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnection, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("%w: non-OK HTTP status: %s", ErrConnection, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	asset, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: error reading asset body: %w", ErrConnection, err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.asset_bytes", len(asset)))
	return asset, nil
}
