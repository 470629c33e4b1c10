package summary

import (
	"context"
	"math"
	"sync"
	"time"

	"yourloops-dashboard/internal/metrics"

	"go.uber.org/zap"
)

// FetchResult labels how a summary fetch ended.
type FetchResult string

const (
	ResultOK           FetchResult = "OK"
	ResultSummaryError FetchResult = "summary-error"
	ResultRangeError   FetchResult = "range-error"
	ResultTIRError     FetchResult = "tir-error"
)

const (
	metricCategory = "performance"
	metricAction   = "fetch_summaries"
	metricName     = "/professional/patients"
)

type timing struct {
	duration time.Duration
	result   FetchResult
}

// TimerMetrics collects fetch durations and, at most once per interval
// (trailing edge), sends their average in seconds.
type TimerMetrics struct {
	recorder metrics.Recorder
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	timings []timing
	timer   *time.Timer
}

func NewTimerMetrics(recorder metrics.Recorder, interval time.Duration, logger *zap.Logger) *TimerMetrics {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TimerMetrics{recorder: recorder, interval: interval, logger: logger}
}

func (m *TimerMetrics) Add(d time.Duration, result FetchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings = append(m.timings, timing{duration: d, result: result})
	if m.timer == nil {
		m.timer = time.AfterFunc(m.interval, m.Flush)
	}
}

// Flush sends the pending average now. No-op when nothing was collected.
func (m *TimerMetrics) Flush() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	timings := m.timings
	m.timings = nil
	m.mu.Unlock()

	if len(timings) == 0 {
		return
	}
	var total time.Duration
	failures := 0
	for _, t := range timings {
		total += t.duration
		if t.result != ResultOK {
			failures++
		}
	}
	avg := total.Seconds() / float64(len(timings))
	avg = math.Round(avg*100) / 100

	m.logger.Debug("Sending summary fetch timings",
		zap.Int("count", len(timings)),
		zap.Int("failures", failures),
		zap.Float64("avg_seconds", avg),
	)
	m.recorder.Send(context.Background(), metricCategory, metricAction, metricName, metrics.Value(avg))
}
