package performance

import (
	"slices"
	"sync"
	"time"
)

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers    int           `json:"maxMarkers"`    // completed markers retained
	SlowThreshold time.Duration `json:"slowThreshold"` // operations above this count as slow
}

// DefaultTrackerConfig returns the default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    1000,
		SlowThreshold: 2 * time.Second,
	}
}

// OperationStats aggregates the retained markers of one operation.
type OperationStats struct {
	Count   int           `json:"count"`
	Failed  int           `json:"failed"`
	Slow    int           `json:"slow"`
	Average time.Duration `json:"average"`
	Max     time.Duration `json:"max"`
	P95     time.Duration `json:"p95"`
}

// Tracker keeps a bounded window of completed markers.
type Tracker struct {
	markers []Marker
	next    int
	started time.Time
	config  *TrackerConfig
	mu      sync.Mutex
	now     func() time.Time
}

// NewTracker creates a tracker. A nil config uses DefaultTrackerConfig.
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.MaxMarkers <= 0 {
		config.MaxMarkers = DefaultTrackerConfig().MaxMarkers
	}
	return &Tracker{
		markers: make([]Marker, 0, config.MaxMarkers),
		started: time.Now(),
		config:  config,
		now:     time.Now,
	}
}

// StartOperation begins timing operation for scope.
func (t *Tracker) StartOperation(operation, scope string) *Marker {
	return &Marker{
		Operation: operation,
		Scope:     scope,
		StartTime: t.now(),
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := *m
	snapshot.tracker = nil
	if len(t.markers) < t.config.MaxMarkers {
		t.markers = append(t.markers, snapshot)
		return
	}
	t.markers[t.next] = snapshot
	t.next = (t.next + 1) % t.config.MaxMarkers
}

// GetRecentMetrics returns the markers completed within the given window,
// oldest first.
func (t *Tracker) GetRecentMetrics(within time.Duration) []Marker {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-within)
	var out []Marker
	for i := range len(t.markers) {
		m := t.markers[(t.next+i)%len(t.markers)]
		if m.EndTime.After(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// IsSlow reports whether d exceeds the slow threshold.
func (t *Tracker) IsSlow(d time.Duration) bool {
	return d > t.config.SlowThreshold
}

// GetOverallStats aggregates the retained markers per operation.
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.Lock()
	durations := make(map[string][]time.Duration)
	stats := make(map[string]*OperationStats)
	for _, m := range t.markers {
		s, ok := stats[m.Operation]
		if !ok {
			s = &OperationStats{}
			stats[m.Operation] = s
		}
		s.Count++
		if !m.Success {
			s.Failed++
		}
		if t.IsSlow(m.Duration) {
			s.Slow++
		}
		durations[m.Operation] = append(durations[m.Operation], m.Duration)
	}
	retained := len(t.markers)
	t.mu.Unlock()

	for op, ds := range durations {
		slices.Sort(ds)
		var total time.Duration
		for _, d := range ds {
			total += d
		}
		s := stats[op]
		s.Average = total / time.Duration(len(ds))
		s.Max = ds[len(ds)-1]
		s.P95 = ds[(len(ds)*95-1)/100]
	}

	return map[string]any{
		"uptime":     time.Since(t.started).Round(time.Second).String(),
		"retained":   retained,
		"operations": stats,
	}
}
