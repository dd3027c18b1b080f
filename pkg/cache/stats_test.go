package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCollector_Counters(t *testing.T) {
	collector := NewStatsCollector()

	for i := 0; i < 5; i++ {
		collector.RecordHit()
	}
	for i := 0; i < 3; i++ {
		collector.RecordMiss()
	}
	collector.RecordEviction()
	collector.UpdateSize(7)

	stats := collector.GetStats()
	assert.Equal(t, uint64(5), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, int64(7), stats.Entries)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestStatsCollector_HitRate(t *testing.T) {
	collector := NewStatsCollector()

	assert.Equal(t, 0.0, collector.HitRate())

	collector.RecordHit()
	collector.RecordHit()
	assert.Equal(t, 1.0, collector.HitRate())

	collector.RecordMiss()
	collector.RecordMiss()
	assert.Equal(t, 0.5, collector.HitRate())
}

func TestStatsCollector_Concurrent(t *testing.T) {
	collector := NewStatsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.RecordHit()
				collector.RecordMiss()
			}
		}()
	}
	wg.Wait()

	stats := collector.GetStats()
	assert.Equal(t, uint64(1000), stats.Hits)
	assert.Equal(t, uint64(1000), stats.Misses)
}
