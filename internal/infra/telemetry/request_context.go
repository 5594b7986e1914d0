package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const RequestIDHeader = "x-request-id"

type requestKey struct{}

// Request identifies one inbound gateway call in logs. Trace and span ids
// come from a W3C traceparent header when the caller sends one.
type Request struct {
	ID      string
	Method  string
	Path    string
	TraceID string
	SpanID  string
}

var traceContext = propagation.TraceContext{}

// RequestMiddleware attaches a Request to every request context and echoes
// its id back to the caller.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := traceContext.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		req := Request{
			ID:     r.Header.Get(RequestIDHeader),
			Method: r.Method,
			Path:   r.URL.Path,
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		req.TraceID, req.SpanID = traceSpan(ctx)
		w.Header().Set(RequestIDHeader, req.ID)
		next.ServeHTTP(w, r.WithContext(WithRequest(ctx, req)))
	})
}

func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

func RequestFromContext(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	req, ok := ctx.Value(requestKey{}).(Request)
	return req, ok
}

func traceSpan(ctx context.Context) (string, string) {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

// Fields renders the non-empty parts of req as log fields.
func (req Request) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if req.ID != "" {
		fields = append(fields, RequestIDField(req.ID))
	}
	if req.Method != "" {
		fields = append(fields, zap.String(FieldMethod, req.Method))
	}
	if req.Path != "" {
		fields = append(fields, zap.String(FieldPath, req.Path))
	}
	if req.TraceID != "" {
		fields = append(fields, TraceIDField(req.TraceID), SpanIDField(req.SpanID))
	}
	return fields
}

func RequestFieldsFromContext(ctx context.Context) []zap.Field {
	req, ok := RequestFromContext(ctx)
	if !ok {
		return nil
	}
	return req.Fields()
}

// LoggerWithRequest scopes base to the request carried by ctx, if any.
func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := RequestFieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
