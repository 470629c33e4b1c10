package metrics

import (
	"context"
	"time"

	commonredis "yourloops-dashboard/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event is one usage or performance measurement.
type Event struct {
	Category  string   `json:"category"`
	Action    string   `json:"action"`
	Name      string   `json:"name,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Recorder sends metrics. Send never fails the caller; failures are logged.
type Recorder interface {
	Send(ctx context.Context, category, action, name string, value *float64)
}

// Value wraps a number for Recorder.Send.
func Value(v float64) *float64 { return &v }

func newEvent(category, action, name string, value *float64) Event {
	return Event{
		Category:  category,
		Action:    action,
		Name:      name,
		Value:     value,
		Timestamp: time.Now().Unix(),
	}
}

// StreamRecorder publishes events as JSON to a Redis stream.
type StreamRecorder struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewStreamRecorder(client *redis.Client, stream string, logger *zap.Logger) *StreamRecorder {
	return &StreamRecorder{client: client, stream: stream, maxLen: 100000, logger: logger}
}

func (r *StreamRecorder) Send(ctx context.Context, category, action, name string, value *float64) {
	ev := newEvent(category, action, name, value)
	if _, err := commonredis.PublishJSONToStream(ctx, r.client, r.stream, r.maxLen, ev); err != nil {
		r.logger.Warn("Failed to publish metric",
			zap.String("stream", r.stream),
			zap.String("category", category),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// LogRecorder writes events to the log. Used when Redis is unavailable.
type LogRecorder struct {
	logger *zap.Logger
}

func NewLogRecorder(logger *zap.Logger) *LogRecorder { return &LogRecorder{logger: logger} }

func (r *LogRecorder) Send(_ context.Context, category, action, name string, value *float64) {
	fields := []zap.Field{
		zap.String("category", category),
		zap.String("action", action),
		zap.String("name", name),
	}
	if value != nil {
		fields = append(fields, zap.Float64("value", *value))
	}
	r.logger.Info("metric", fields...)
}

type NopRecorder struct{}

func (NopRecorder) Send(context.Context, string, string, string, *float64) {}

var (
	_ Recorder = (*StreamRecorder)(nil)
	_ Recorder = (*LogRecorder)(nil)
	_ Recorder = NopRecorder{}
)
