package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpCollector(t *testing.T) {
	collector := NewNoOpCollector()

	// Should not panic
	collector.IncrementCounter("statements_total", "category", "QUERY")
	collector.RecordHistogram("statement_duration_seconds", 0.5, "category", "QUERY")
	collector.RecordGauge("open_sessions", 1)
}

func TestNoOpCollector_StartTimer(t *testing.T) {
	collector := NewNoOpCollector()
	timer := collector.StartTimer("dispatch")

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Less(t, duration, time.Second)
}
