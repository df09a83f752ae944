package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, SessionEvent) { panic("observer bug") }
func (panickingObserver) GetObserverName() string              { return "panicking" }

func TestMetricsObserver_Counts(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(metrics)
	ctx := context.Background()

	publisher.NotifyObservers(ctx, SessionEvent{EventType: ImageUploaded, SessionID: "s"})
	publisher.NotifyObservers(ctx, SessionEvent{EventType: RecommendationCompleted, Metadata: map[string]interface{}{"filter_type": "median"}})
	publisher.NotifyObservers(ctx, SessionEvent{EventType: RecommendationDiscarded})
	publisher.NotifyObservers(ctx, SessionEvent{EventType: FilterApplied, Duration: 20 * time.Millisecond})
	publisher.NotifyObservers(ctx, SessionEvent{EventType: FilterApplied, Duration: 40 * time.Millisecond})

	assert.Equal(t, int64(2), metrics.Count(FilterApplied))
	m := metrics.GetMetrics()
	assert.Equal(t, int64(1), m["images_uploaded"])
	assert.Equal(t, int64(1), m["recommendations_discarded"])
	assert.Equal(t, int64(30), m["avg_apply_time_ms"])
	assert.Equal(t, map[string]int64{"median": 1}, m["recommended_filters"])
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(metrics)
	publisher.Unsubscribe(metrics)

	publisher.NotifyObservers(context.Background(), SessionEvent{EventType: SessionReset})
	assert.Equal(t, int64(0), metrics.Count(SessionReset))
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(logger).OnEvent(context.Background(), SessionEvent{
		EventType:  FilterFailed,
		SessionID:  "abc",
		Generation: 3,
		Error:      "encode failed",
		Metadata:   map[string]interface{}{"filter_type": "gaussian"},
	})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "abc", line["session_id"])
	assert.Equal(t, "encode failed", line["error"])
	assert.Equal(t, "gaussian", line["filter_type"])
}
