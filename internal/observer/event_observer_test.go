package observer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []SessionEvent
	done   chan struct{}
}

func newRecordingObserver(name string) *recordingObserver {
	return &recordingObserver{name: name, done: make(chan struct{}, 16)}
}

func (o *recordingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *recordingObserver) GetObserverName() string { return o.name }

func waitForSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for observer notification")
	}
}

func TestEventPublisher_NotifyAndUnsubscribe(t *testing.T) {
	publisher := NewEventPublisher()
	first := newRecordingObserver("first")
	second := newRecordingObserver("second")
	publisher.Subscribe(first)
	publisher.Subscribe(second)

	publisher.NotifyObservers(context.Background(), SessionEvent{EventType: ImageLoaded, SessionID: "s1"})
	waitForSignal(t, first.done)
	waitForSignal(t, second.done)

	publisher.Unsubscribe(second)
	publisher.NotifyObservers(context.Background(), SessionEvent{EventType: SessionReset, SessionID: "s1"})
	waitForSignal(t, first.done)

	select {
	case <-second.done:
		t.Error("Expected unsubscribed observer not to be notified")
	case <-time.After(50 * time.Millisecond):
	}
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event SessionEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                        { return "panicking" }

func TestEventPublisher_ObserverPanicIsContained(t *testing.T) {
	publisher := NewEventPublisher()
	healthy := newRecordingObserver("healthy")
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(healthy)

	publisher.NotifyObservers(context.Background(), SessionEvent{EventType: PredictionStarted})
	waitForSignal(t, healthy.done)
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(logger).OnEvent(context.Background(), SessionEvent{
		EventType:    PredictionFailed,
		SessionID:    "abc",
		Phase:        "result",
		Source:       "remoteUrl",
		Duration:     1500 * time.Millisecond,
		ErrorMessage: "low confidence",
	})

	out := buf.String()
	for _, want := range []string{`"session_id":"abc"`, `"error":"low confidence"`, `"duration_ms":1500`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got %s", want, out)
		}
	}
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetricsObserver(reg)
	ctx := context.Background()

	metrics.OnEvent(ctx, SessionEvent{EventType: PredictionStarted, Source: "localFile"})
	metrics.OnEvent(ctx, SessionEvent{EventType: PredictionCompleted, Source: "localFile", Duration: time.Second})
	metrics.OnEvent(ctx, SessionEvent{EventType: PredictionFailed, Source: "remoteUrl", Duration: time.Second})
	metrics.OnEvent(ctx, SessionEvent{EventType: PredictionFailed, Source: "remoteUrl", Duration: time.Second})

	if got := testutil.ToFloat64(metrics.predictions.WithLabelValues("localFile", "success")); got != 1 {
		t.Errorf("Expected 1 successful prediction, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.predictions.WithLabelValues("remoteUrl", "error")); got != 2 {
		t.Errorf("Expected 2 failed predictions, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.events.WithLabelValues(string(PredictionStarted))); got != 1 {
		t.Errorf("Expected 1 started event, got %v", got)
	}
	if n := testutil.CollectAndCount(metrics.latency); n != 1 {
		t.Errorf("Expected one latency histogram, got %d", n)
	}
}

func TestStreamObserver_FiltersAndCoalesces(t *testing.T) {
	stream := NewStreamObserver("mine")
	ctx := context.Background()

	stream.OnEvent(ctx, SessionEvent{SessionID: "other"})
	select {
	case <-stream.Changes():
		t.Fatal("Expected events of other sessions to be ignored")
	default:
	}

	stream.OnEvent(ctx, SessionEvent{SessionID: "mine"})
	stream.OnEvent(ctx, SessionEvent{SessionID: "mine"})
	<-stream.Changes()
	select {
	case <-stream.Changes():
		t.Fatal("Expected signals to be coalesced")
	default:
	}

	if NewStreamObserver("mine").GetObserverName() == stream.GetObserverName() {
		t.Error("Expected stream observer names to be unique")
	}
}
