package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionEvent is something that happened to a session
type SessionEvent struct {
	EventType  EventType              `json:"event_type"`
	Timestamp  time.Time              `json:"timestamp"`
	SessionID  string                 `json:"session_id"`
	Generation uint64                 `json:"generation"`
	Duration   time.Duration          `json:"duration"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of session event
type EventType string

const (
	SessionCreated          EventType = "session_created"
	SessionDeleted          EventType = "session_deleted"
	ImageUploaded           EventType = "image_uploaded"
	UploadRejected          EventType = "upload_rejected"
	UploadFailed            EventType = "upload_failed"
	RecommendationStarted   EventType = "recommendation_started"
	RecommendationCompleted EventType = "recommendation_completed"
	RecommendationDiscarded EventType = "recommendation_discarded"
	RecommendationAccepted  EventType = "recommendation_accepted"
	ParametersChanged       EventType = "parameters_changed"
	FilterApplied           EventType = "filter_applied"
	FilterFailed            EventType = "filter_failed"
	SessionReset            EventType = "session_reset"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SessionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SessionEvent)
}

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"generation": event.Generation,
		"success":    event.Success,
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ImageUploaded:
		entry.Info("Image uploaded")
	case UploadRejected:
		entry.Warn("Upload rejected")
	case UploadFailed:
		entry.Error("Upload failed")
	case RecommendationStarted:
		entry.Debug("Recommendation started")
	case RecommendationCompleted:
		entry.Info("Recommendation completed")
	case RecommendationDiscarded:
		entry.Info("Stale recommendation discarded")
	case FilterApplied:
		entry.Info("Filter applied")
	case FilterFailed:
		entry.Error("Filter application failed")
	case SessionReset:
		entry.Info("Session reset")
	default:
		entry.Debug("Session event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts session events for the stats endpoint
type MetricsObserver struct {
	mu               sync.RWMutex
	counts           map[EventType]int64
	totalApplyTime   time.Duration
	recommendedTypes map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		counts:           make(map[EventType]int64),
		recommendedTypes: make(map[string]int64),
	}
}

// OnEvent handles session events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.counts[event.EventType]++
	switch event.EventType {
	case FilterApplied:
		o.totalApplyTime += event.Duration
	case RecommendationCompleted:
		if ft, ok := event.Metadata["filter_type"].(string); ok {
			o.recommendedTypes[ft]++
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Count returns how many events of a type were seen
func (o *MetricsObserver) Count(t EventType) int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.counts[t]
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	applied := o.counts[FilterApplied]
	avgApplyTime := time.Duration(0)
	if applied > 0 {
		avgApplyTime = o.totalApplyTime / time.Duration(applied)
	}

	recommended := make(map[string]int64, len(o.recommendedTypes))
	for k, v := range o.recommendedTypes {
		recommended[k] = v
	}

	return map[string]interface{}{
		"sessions_created":          o.counts[SessionCreated],
		"images_uploaded":           o.counts[ImageUploaded],
		"uploads_rejected":          o.counts[UploadRejected],
		"uploads_failed":            o.counts[UploadFailed],
		"recommendations_completed": o.counts[RecommendationCompleted],
		"recommendations_discarded": o.counts[RecommendationDiscarded],
		"recommendations_accepted":  o.counts[RecommendationAccepted],
		"filters_applied":           applied,
		"filters_failed":            o.counts[FilterFailed],
		"resets":                    o.counts[SessionReset],
		"avg_apply_time_ms":         avgApplyTime.Milliseconds(),
		"recommended_filters":       recommended,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order.
// A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SessionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.notify(ctx, observer, event)
	}
}

func (p *EventPublisher) notify(ctx context.Context, obs Observer, event SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
