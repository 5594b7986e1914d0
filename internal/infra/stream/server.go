package stream

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

type ServerOptions struct {
	Heartbeat     time.Duration
	DeliverEvents bool
	Logger        *zap.Logger
	Metrics       domain.Metrics
	Now           domain.Clock
}

// Server is the http.Handler behind the push stream.
type Server struct {
	hub           *Hub
	heartbeat     time.Duration
	deliverEvents bool
	logger        *zap.Logger
	metrics       domain.Metrics
	now           domain.Clock
}

func NewServer(hub *Hub, opts ServerOptions) *Server {
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = time.Duration(domain.DefaultHeartbeatSeconds) * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		hub:           hub,
		heartbeat:     heartbeat,
		deliverEvents: opts.DeliverEvents,
		logger:        logger.Named("stream"),
		metrics:       metrics,
		now:           now,
	}
}

// ServeHTTP holds the connection open until the peer goes away or the hub
// closes. Each connection owns its own heartbeat ticker.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	connID := uuid.NewString()
	logger := telemetry.LoggerWithRequest(r.Context(), s.logger).With(telemetry.ConnIDField(connID))

	sub := s.hub.Subscribe()
	s.metrics.AddActiveStreams(1)
	defer func() {
		s.hub.Unsubscribe(sub)
		s.metrics.AddActiveStreams(-1)
		logger.Info("stream closed", telemetry.EventField(telemetry.EventStreamClosed))
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	logger.Info("stream opened", telemetry.EventField(telemetry.EventStreamOpened))

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	// a nil channel never fires
	var frames <-chan *Frame
	if s.deliverEvents {
		frames = sub.Frames()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case f := <-frames:
			if err := writeFrame(w, f); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := writeHeartbeat(w, s.now()); err != nil {
				logger.Debug("heartbeat write failed", zap.Error(err))
				return
			}
			flusher.Flush()
			s.metrics.ObserveHeartbeat()
		}
	}
}

func writeFrame(w io.Writer, f *Frame) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", f.ID, f.Event, f.Data)
	return err
}

func writeHeartbeat(w io.Writer, at time.Time) error {
	_, err := fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\":%d}\n\n", at.UnixMilli())
	return err
}
