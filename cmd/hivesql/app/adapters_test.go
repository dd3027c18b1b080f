package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/hivesql/pkg/infrastructure/metrics"
)

func TestLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := &loggerAdapter{logger: zerolog.New(&buf)}

	l.Info("Statement dispatched",
		"action", "SELECT",
		"rows", 3,
		"affected", int64(7),
		"ok", true,
		"took", 1500*time.Millisecond,
		"error", fmt.Errorf("boom"),
		"tags", []string{"a"},
		42, "ignored",
		"dangling",
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "Statement dispatched", got["message"])
	assert.Equal(t, "SELECT", got["action"])
	assert.Equal(t, float64(3), got["rows"])
	assert.Equal(t, float64(7), got["affected"])
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, []interface{}{"a"}, got["tags"])
	assert.Contains(t, got, "took")
	assert.NotContains(t, got, "dangling")
}

func TestLoggerAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := &loggerAdapter{logger: zerolog.New(&buf).Level(zerolog.WarnLevel)}

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("shown")))
	assert.NotContains(t, buf.String(), "hidden")
}

func TestServiceMetricsAdapter(t *testing.T) {
	m := &serviceMetricsAdapter{collector: metrics.NewNoOpCollector()}
	m.IncrementCounter("statements_total", "category", "QUERY")
	m.RecordHistogram("statement_duration_seconds", 0.1)
	m.RecordGauge("cache_entries", 3)
	assert.GreaterOrEqual(t, m.StartTimer("dispatch").Stop(), time.Duration(0))
}
