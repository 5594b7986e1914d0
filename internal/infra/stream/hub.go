// Package stream serves long-lived server-sent event connections with a
// per-connection heartbeat and optional gateway event delivery.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"quotegw/internal/domain"
)

// Frame is one encoded event queued for a connection.
type Frame struct {
	ID    uint64
	Event string
	Data  []byte
}

// Subscription is a single connection's view of the hub.
type Subscription struct {
	ch   chan *Frame
	done chan struct{}
	once sync.Once
}

// Frames delivers gateway events. Slow readers miss events rather than
// blocking publishers.
func (s *Subscription) Frames() <-chan *Frame {
	return s.ch
}

// Done is closed when the hub shuts down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans gateway events out to open stream connections.
type Hub struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	closed     bool
	nextID     atomic.Uint64
	bufferSize int
	logger     *zap.Logger
}

func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = domain.DefaultStreamBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger.Named("stream_hub"),
	}
}

// Subscribe registers a connection. The returned subscription is already
// done if the hub has been closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ch:   make(chan *Frame, h.bufferSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Active returns the number of open connections.
func (h *Hub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish queues event for every open connection without blocking.
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f := &Frame{ID: h.nextID.Add(1), Event: eventName(event.Type), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for sub := range h.subs {
		select {
		case sub.ch <- f:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("stream event dropped for slow connections", zap.Int("dropped", dropped), zap.Uint64("id", f.ID))
	}
	return nil
}

// Close ends every open connection and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for sub := range h.subs {
		sub.close()
	}
	return nil
}

func eventName(t domain.EventType) string {
	switch t {
	case domain.EventQuoteAdded:
		return "quote"
	default:
		return "event"
	}
}

var _ domain.Publisher = (*Hub)(nil)
