package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldKey        = "key"
	FieldTool       = "tool"
	FieldEndpoint   = "endpoint"
	FieldConnID     = "conn_id"
	FieldDurationMs = "duration_ms"
	FieldLogSource  = "log_source"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldMethod     = "method"
	FieldPath       = "path"
)

const (
	EventQuoteSaved       = "quote_saved"
	EventQuoteNoMatch     = "quote_no_match"
	EventNotifyDelivered  = "notify_delivered"
	EventNotifyFailed     = "notify_failed"
	EventObserverReplaced = "observer_replaced"
	EventStreamOpened     = "stream_opened"
	EventStreamClosed     = "stream_closed"
	EventPublishFailed    = "publish_failed"
)

const (
	LogSourceCore = "core"
	LogSourceHTTP = "http"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func KeyField(key string) zap.Field {
	return zap.String(FieldKey, key)
}

func ToolField(name string) zap.Field {
	return zap.String(FieldTool, name)
}

func EndpointField(endpoint string) zap.Field {
	return zap.String(FieldEndpoint, endpoint)
}

func ConnIDField(id string) zap.Field {
	return zap.String(FieldConnID, id)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
