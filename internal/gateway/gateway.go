// Package gateway wraps every call to the storefront REST backend. A call
// always ends in a Result, never in a Go error: transport failures,
// undecodable bodies and backend rejections are all folded into the same
// {"success": false, "error": "..."} shape, and failures of non-auth calls
// are reported once through the notifier.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	// CorrelationHeader carries the correlation ID to the backend.
	CorrelationHeader = "X-Correlation-ID"

	maxBodyBytes = 10 << 20
)

// Doer sends a request. *httpclient.Client and *httpclient.CircuitBreakerClient
// both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CallOptions configures a single call. The zero value is a GET without body.
type CallOptions struct {
	Method string
	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body any
	// Headers are merged over the default headers.
	Headers map[string]string
}

// Gateway issues calls against one backend base URL.
type Gateway struct {
	baseURL  string
	client   Doer
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	headers  map[string]string
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithDefaultHeader adds a header sent on every call.
func WithDefaultHeader(key, value string) Option {
	return func(g *Gateway) {
		g.headers[key] = value
	}
}

// New creates a Gateway. baseURL is joined verbatim with each endpoint, so
// it should not end with a slash.
func New(baseURL string, client Doer, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		notifier: notifier,
		logger:   logger,
		tracer:   tracing.Tracer("storefront/gateway"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsAuthEndpoint reports whether endpoint belongs to the authentication
// family. Those payloads are returned verbatim and never notified, since the
// caller decides what a failed login means.
func IsAuthEndpoint(endpoint string) bool {
	return strings.Contains(endpoint, "/auth/")
}

// Family returns the first path segment of endpoint, used as a low
// cardinality metrics label: "/cart/12?user_id=3" -> "cart".
func Family(endpoint string) string {
	p := strings.TrimLeft(endpoint, "/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

// Call performs one request against endpoint and normalizes the answer.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts CallOptions) Result {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	family := Family(endpoint)

	if logger.CorrelationIDFromContext(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, uuid.New().String())
	}

	ctx, span := g.tracer.Start(ctx, "gateway "+method+" /"+family,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("storefront.endpoint", endpoint),
		),
	)
	defer span.End()

	log := logger.WithContext(ctx, g.logger)
	start := time.Now()

	res := g.roundTrip(ctx, method, endpoint, opts)

	elapsed := time.Since(start)
	outcome := res.Kind.String()
	callsTotal.WithLabelValues(family, method, outcome).Inc()
	callDuration.WithLabelValues(family, method, outcome).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("http.response.status_code", res.Status),
		attribute.String("storefront.outcome", outcome),
	)

	switch res.Kind {
	case KindConnection:
		span.SetStatus(codes.Error, res.ErrorText())
		log.WarnContext(ctx, "backend unreachable",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", res.ErrorText()),
		)
		return res
	case KindOK:
		log.DebugContext(ctx, "backend call",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("status", res.Status),
			slog.Duration("duration", elapsed),
		)
		return res
	}

	// Non-2xx, or an undecodable body.
	span.SetStatus(codes.Error, res.FailureMessage())
	if IsAuthEndpoint(endpoint) {
		return res
	}
	if res.Kind == KindInvalidFormat && res.Status >= 200 && res.Status <= 299 {
		log.WarnContext(ctx, "backend answered with an undecodable body",
			slog.String("endpoint", endpoint),
			slog.Int("status", res.Status),
		)
		return res
	}

	msg := res.FailureMessage()
	log.WarnContext(ctx, "backend call failed",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", res.Status),
		slog.String("error", msg),
	)
	notificationsTotal.WithLabelValues(family).Inc()
	g.notifier.Notify(ctx, "Error: "+msg, notify.SeverityError)
	return res
}

func (g *Gateway) roundTrip(ctx context.Context, method, endpoint string, opts CallOptions) Result {
	body, err := encodeBody(opts.Body)
	if err != nil {
		return connectionResult(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, body)
	if err != nil {
		return connectionResult(err)
	}
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(CorrelationHeader, logger.CorrelationIDFromContext(ctx))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return connectionResult(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return synthesized(resp.StatusCode, KindInvalidFormat, MsgInvalidFormat)
	}
	return parsedResult(resp.StatusCode, data)
}

// encodeBody returns a reader that http.NewRequest knows how to rewind, so
// retries can resend it.
func encodeBody(v any) (io.Reader, error) {
	switch b := v.(type) {
	case nil:
		return http.NoBody, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}
