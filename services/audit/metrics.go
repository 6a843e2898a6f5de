package audit

import "sync/atomic"

// Metrics are best-effort aggregate counters over coach and search
// traffic. They carry no correctness obligation; lost updates under
// concurrency would be acceptable, though atomics avoid them cheaply.
type Metrics struct {
	searchRequests atomic.Int64
	coachRequests  atomic.Int64
	gatePassed     atomic.Int64
	gateFailed     atomic.Int64
	crisisDetected atomic.Int64
}

// NewMetrics creates a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSearch counts one search request.
func (m *Metrics) RecordSearch() {
	m.searchRequests.Add(1)
}

// RecordCoach counts one coach request and its gate outcome.
func (m *Metrics) RecordCoach(refused bool) {
	m.coachRequests.Add(1)
	if refused {
		m.gateFailed.Add(1)
	} else {
		m.gatePassed.Add(1)
	}
}

// RecordCrisis counts a coach request refused by the crisis pre-check.
func (m *Metrics) RecordCrisis() {
	m.crisisDetected.Add(1)
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"search_requests": m.searchRequests.Load(),
		"coach_requests":  m.coachRequests.Load(),
		"gate_passed":     m.gatePassed.Load(),
		"gate_failed":     m.gateFailed.Load(),
		"crisis_detected": m.crisisDetected.Load(),
	}
}
