package ratelimit

import (
	"encoding/json"
	"net/http"
	"strings"
)

// DefaultMarkers are the error-message substrings that identify a
// provider-side throttle when the status code alone does not.
var DefaultMarkers = []string{
	"exceeded",
	"rate limit",
	"too many requests",
}

// Classifier decides whether an upstream response means the endpoint is
// being rate limited. Matching is case-insensitive substring search over
// the upstream error message.
type Classifier struct {
	markers []string
}

// rpcError mirrors the JSON-RPC error envelope providers return.
type rpcError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// New creates a Classifier with the given markers. Nil or empty markers
// fall back to DefaultMarkers.
func New(markers []string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}

	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}

	return &Classifier{markers: lowered}
}

// IsRateLimited reports whether a response with the given status code
// and body is a rate-limit failure. Status 429 always classifies; other
// error statuses classify only if the body's error message contains one
// of the markers. Successful statuses never classify, even when the
// body carries an application-level error. Bodies that don't parse as a
// JSON-RPC error envelope are matched as raw text, since some providers
// throttle with plain-text bodies.
func (c *Classifier) IsRateLimited(statusCode int, body []byte) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	if statusCode < http.StatusBadRequest {
		return false
	}

	return c.messageMatches(extractMessage(body))
}

func (c *Classifier) messageMatches(message string) bool {
	if message == "" {
		return false
	}

	message = strings.ToLower(message)
	for _, marker := range c.markers {
		if strings.Contains(message, marker) {
			return true
		}
	}

	return false
}

func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope rpcError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	return string(body)
}
