package requester

import (
	"context"
	"errors"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
)

// Middleware wraps a Transport with cross-cutting behavior.
type Middleware func(Transport) Transport

// Chain composes middlewares; the first one is outermost.
// Chain(a, b)(t) is a(b(t)).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Transport) Transport {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// WithLogging logs every round trip: debug on a response, error when none
// was received.
func WithLogging(log *logger.Logger) Middleware {
	return func(inner Transport) Transport {
		return TransportFunc(func(ctx context.Context, url string, req Request) (*Response, error) {
			start := time.Now()
			resp, err := roundTrip(ctx, inner, url, req)

			fields := logger.MergeWithDuration(logger.Fields(
				logger.FieldMethod, req.Method,
				logger.FieldURL, url,
			), time.Since(start))
			if id := req.Headers[HeaderRequestID]; id != "" {
				fields[logger.FieldRequestID] = id
			}
			if err != nil {
				log.Error("request failed", logger.MergeWithError(fields, err))
				return resp, err
			}
			fields[logger.FieldStatus] = resp.StatusCode
			log.Debug("request completed", fields)
			return resp, nil
		})
	}
}

// WithTracing wraps each round trip in a client span named "<service> <method>"
// and injects the trace context into a copy of the request headers.
func WithTracing(service string) Middleware {
	return func(inner Transport) Transport {
		return TransportFunc(func(ctx context.Context, url string, req Request) (*Response, error) {
			ctx, span := observability.StartClientSpan(ctx, service+" "+req.Method,
				attribute.String(observability.AttrService, service),
				attribute.String(observability.AttrMethod, req.Method),
				attribute.String(observability.AttrURL, url),
			)
			defer span.End()

			req.Headers = maps.Clone(req.Headers)
			if req.Headers == nil {
				req.Headers = make(map[string]string)
			}
			otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(req.Headers))

			resp, err := roundTrip(ctx, inner, url, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.String(observability.AttrErrorKind, errorKind(err)))
				return resp, err
			}
			span.SetAttributes(attribute.Int(observability.AttrStatusCode, resp.StatusCode))
			if resp.StatusCode >= 400 {
				span.SetStatus(codes.Error, "")
			}
			return resp, nil
		})
	}
}

// WithMetrics records call count, latency and in-flight calls on m.
func WithMetrics(m *observability.Metrics, service string) Middleware {
	return func(inner Transport) Transport {
		return TransportFunc(func(ctx context.Context, url string, req Request) (*Response, error) {
			m.RecordCallStart(ctx, service)
			start := time.Now()
			resp, err := roundTrip(ctx, inner, url, req)

			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			m.RecordCallEnd(ctx, service, req.Method, status, time.Since(start))
			switch {
			case err != nil:
				m.RecordError(ctx, service, errorKind(err))
			case status >= 400 && status != 413:
				m.RecordError(ctx, service, "application")
			}
			return resp, err
		})
	}
}

// roundTrip calls inner and reports a missing response as a connection
// failure, so middlewares never see a nil response without an error.
func roundTrip(ctx context.Context, inner Transport, url string, req Request) (*Response, error) {
	resp, err := inner.RoundTrip(ctx, url, req)
	if err == nil && resp == nil {
		return nil, noResponse(req.Method, url)
	}
	return resp, err
}

func errorKind(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code.String()
	}
	return "transport"
}
