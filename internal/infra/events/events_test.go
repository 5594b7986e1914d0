package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegw/internal/domain"
	"quotegw/internal/infra/telemetry"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type publishMetrics struct {
	telemetry.NoopMetrics
	mu      sync.Mutex
	results map[string][]bool
}

func (m *publishMetrics) ObservePublish(publisher string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[string][]bool)
	}
	m.results[publisher] = append(m.results[publisher], err == nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url, "quotegw.test")
	require.NoError(t, err)
	defer pub.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("quotegw.test", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck
	require.NoError(t, nc.Flush())

	event := domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:1700000000000"}
	require.NoError(t, pub.Publish(context.Background(), event))
	require.NoError(t, pub.conn.Flush())

	select {
	case msg := <-ch:
		var got domain.Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_ConnectFailure(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "")
	require.Error(t, err)
}

func TestFanout_IsolatesFailingTarget(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("bus down")}
	healthy := &recordingPublisher{}
	metrics := &publishMetrics{}

	fanout := NewFanout(nil, metrics,
		Target{Name: "nats", Publisher: failing},
		Target{Name: "stream", Publisher: healthy},
		Target{Name: "missing"},
	)

	event := domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:1"}
	err := fanout.Publish(context.Background(), event)
	require.Error(t, err)

	assert.Equal(t, []domain.Event{event}, healthy.events)
	assert.Equal(t, []domain.Event{event}, failing.events)
	assert.Equal(t, map[string][]bool{"nats": {false}, "stream": {true}}, metrics.results)

	require.NoError(t, fanout.Close())
	assert.True(t, failing.closed)
	assert.True(t, healthy.closed)
}

func TestFanout_AttachLateTarget(t *testing.T) {
	fanout := NewFanout(nil, nil)
	late := &recordingPublisher{}
	fanout.Attach(Target{Name: "mcp", Publisher: late})
	fanout.Attach(Target{Name: "nil"})

	event := domain.Event{Type: domain.EventQuoteAdded, Key: "quotes:2"}
	require.NoError(t, fanout.Publish(context.Background(), event))
	assert.Equal(t, []domain.Event{event}, late.events)
}

func TestNoopPublisher(t *testing.T) {
	var pub domain.Publisher = NoopPublisher{}
	require.NoError(t, pub.Publish(context.Background(), domain.Event{}))
	require.NoError(t, pub.Close())
}
