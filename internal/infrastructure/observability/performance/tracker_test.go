package performance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClock(t *Tracker) *time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t.now = func() time.Time { return now }
	return &now
}

func TestMarkerCompleteRecordsOnce(t *testing.T) {
	tr := NewTracker(nil)
	now := fakeClock(tr)

	m := tr.StartOperation("docs:build", "all")
	*now = now.Add(300 * time.Millisecond)
	m.SetSuccess(true)
	m.Complete()
	m.Complete()

	assert.Equal(t, 300*time.Millisecond, m.Duration)
	recent := tr.GetRecentMetrics(time.Minute)
	require.Len(t, recent, 1)
	assert.Equal(t, "docs:build", recent[0].Operation)
	assert.True(t, recent[0].Success)
}

func TestTrackerWindowAndStats(t *testing.T) {
	tr := NewTracker(&TrackerConfig{MaxMarkers: 3, SlowThreshold: time.Second})
	now := fakeClock(tr)

	for i, d := range []time.Duration{100, 200, 3000, 400} {
		m := tr.StartOperation("playground:render", "s")
		*now = now.Add(d * time.Millisecond)
		if i == 1 {
			m.SetError(errors.New("boom"))
		} else {
			m.SetSuccess(true)
		}
		m.Complete()
	}

	recent := tr.GetRecentMetrics(time.Hour)
	require.Len(t, recent, 3)
	assert.Equal(t, 200*time.Millisecond, recent[0].Duration)
	assert.Equal(t, 400*time.Millisecond, recent[2].Duration)

	stats := tr.GetOverallStats()
	assert.Equal(t, 3, stats["retained"])
	ops := stats["operations"].(map[string]*OperationStats)
	render := ops["playground:render"]
	require.NotNil(t, render)
	assert.Equal(t, 3, render.Count)
	assert.Equal(t, 1, render.Failed)
	assert.Equal(t, 1, render.Slow)
	assert.Equal(t, 3000*time.Millisecond, render.Max)
	assert.Equal(t, 1200*time.Millisecond, render.Average)
}

func TestGetRecentMetricsFiltersOld(t *testing.T) {
	tr := NewTracker(nil)
	now := fakeClock(tr)

	tr.StartOperation("old", "").Complete()
	*now = now.Add(time.Hour)
	tr.StartOperation("new", "").Complete()

	recent := tr.GetRecentMetrics(time.Minute)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].Operation)
}
