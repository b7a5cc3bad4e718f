package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/rpc-proxy/internal/endpoint"
	"github.com/angeloszaimis/rpc-proxy/internal/forwarder"
	"github.com/angeloszaimis/rpc-proxy/internal/metrics"
	"github.com/angeloszaimis/rpc-proxy/internal/pool"
	"github.com/angeloszaimis/rpc-proxy/internal/ratelimit"
)

// DefaultMaxBodyBytes caps inbound request bodies when no limit is
// configured.
const DefaultMaxBodyBytes = 1 << 20

// Sender delivers a payload to one endpoint. A nil error guarantees a
// non-nil Response; a non-nil error means no response was received at
// all.
type Sender interface {
	Send(ctx context.Context, e *endpoint.Endpoint, payload []byte) (*forwarder.Response, error)
}

// Outcome is what a handled request resolves to: either the upstream's
// answer verbatim or a synthesized JSON-RPC error.
type Outcome struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// ProxyHandler drives one inbound call through the endpoint pool,
// rotating past rate-limited endpoints, and maps the final result onto
// the HTTP response.
type ProxyHandler struct {
	logger           *slog.Logger
	pool             *pool.Pool
	sender           Sender
	classifier       *ratelimit.Classifier
	metricsCollector *metrics.Collector
	maxBodyBytes     int64
}

// NewProxyHandler wires the retry driver. A maxBodyBytes of 0 means
// DefaultMaxBodyBytes; collector may be nil.
func NewProxyHandler(
	logger *slog.Logger,
	p *pool.Pool,
	sender Sender,
	classifier *ratelimit.Classifier,
	collector *metrics.Collector,
	maxBodyBytes int64,
) *ProxyHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &ProxyHandler{
		logger:           logger,
		pool:             p,
		sender:           sender,
		classifier:       classifier,
		metricsCollector: collector,
		maxBodyBytes:     maxBodyBytes,
	}
}

// Handle forwards payload to the pool, retrying on rate-limit failures
// only. The retry budget equals the pool size: in the worst case every
// endpoint is tried once.
//
// Any upstream response that is not rate-limited resolves the call
// verbatim, upstream errors included. A pure transport failure resolves
// immediately with a synthesized internal error. If every attempt was
// rate limited, the call resolves with the pool-exhaustion error.
func (h *ProxyHandler) Handle(ctx context.Context, payload []byte) Outcome {
	budget := len(h.pool.Endpoints())

	for attempt := 1; attempt <= budget; attempt++ {
		e := h.pool.SelectEndpoint()

		h.emitEvent(metrics.MetricEvent{
			Type:      metrics.EventAttempt,
			Timestamp: time.Now(),
			Endpoint:  e.URL().String(),
		})

		start := time.Now()
		res, err := h.sender.Send(ctx, e, payload)
		if err != nil {
			h.logger.Error("Upstream transport failure",
				slog.String("endpoint", e.URL().String()),
				slog.Int("attempt", attempt),
				slog.Any("err", err))

			return Outcome{
				StatusCode:  http.StatusInternalServerError,
				Body:        errorEnvelope(CodeInternalError, fmt.Sprintf("upstream request failed: %v", err)),
				ContentType: "application/json",
			}
		}

		if h.classifier.IsRateLimited(res.StatusCode, res.Body) {
			h.pool.MarkUnavailable(e)

			h.logger.Warn("Endpoint rate limited, rotating",
				slog.String("endpoint", e.URL().String()),
				slog.Int("attempt", attempt),
				slog.Int("status", res.StatusCode))

			h.emitEvent(metrics.MetricEvent{
				Type:      metrics.EventRateLimited,
				Timestamp: time.Now(),
				Endpoint:  e.URL().String(),
			})
			continue
		}

		h.emitEvent(metrics.MetricEvent{
			Type:       metrics.EventResponseCompleted,
			Timestamp:  time.Now(),
			Endpoint:   e.URL().String(),
			Duration:   time.Since(start),
			StatusCode: res.StatusCode,
		})

		return Outcome{
			StatusCode:  res.StatusCode,
			Body:        res.Body,
			ContentType: res.ContentType,
		}
	}

	h.logger.Error("All endpoints rate limited", slog.Int("pool_size", budget))

	return Outcome{
		StatusCode:  http.StatusInternalServerError,
		Body:        errorEnvelope(CodeInternalError, "all endpoints currently unavailable due to rate limits"),
		ContentType: "application/json",
	}
}

// ServeHTTP adapts the retry driver to HTTP. Only POST is accepted;
// anything else gets the invalid-request envelope. The body is treated
// as opaque bytes and forwarded unchanged.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed,
			errorEnvelope(CodeInvalidRequest, "method not allowed"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorEnvelope(CodeInvalidRequest, "request body too large"))
		return
	}

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
	})

	outcome := h.Handle(r.Context(), payload)

	contentType := outcome.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(outcome.StatusCode)
	w.Write(outcome.Body)
}

func (h *ProxyHandler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}

	select {
	case h.metricsCollector.EventChannel() <- event:
	default:
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
