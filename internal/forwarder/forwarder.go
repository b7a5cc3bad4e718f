package forwarder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angeloszaimis/rpc-proxy/internal/endpoint"
)

// DefaultTimeout bounds a single upstream call when no timeout is
// configured.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream response body is
// buffered before it is relayed.
const maxResponseBytes = 10 << 20

// Response is one upstream's answer, buffered in full. Any Response,
// whatever its status code, is a delivered answer; failure to get a
// Response at all is reported as an error from Send.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Forwarder posts payloads to upstream endpoints over a shared
// http.Client.
type Forwarder struct {
	client *http.Client
}

// New creates a Forwarder whose upstream calls time out after the given
// duration. A timeout of 0 means DefaultTimeout.
func New(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Forwarder{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers payload to the endpoint and returns the upstream
// response verbatim. The payload is forwarded as-is; nothing is read
// into or rewritten out of it.
//
// A non-nil error means no HTTP response was received at all (dial
// failure, timeout, connection reset mid-headers). If a response came
// back, Send returns it regardless of status code and the error is nil.
func (f *Forwarder) Send(ctx context.Context, e *endpoint.Endpoint, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL().String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	return &Response{
		StatusCode:  res.StatusCode,
		Body:        body,
		ContentType: res.Header.Get("Content-Type"),
	}, nil
}
