package metrics

import (
	"sync/atomic"
	"time"
)

// Registry holds the service counters exposed at /api/metrics.
type Registry struct {
	Probes           atomic.Int64
	ProbeFailures    atomic.Int64
	FetchesStarted   atomic.Int64
	FetchesCompleted atomic.Int64
	FetchesFailed    atomic.Int64
	SessionsActive   atomic.Int64
	ArtifactsCleaned atomic.Int64
	CleanupFailures  atomic.Int64
	StreamErrors     atomic.Int64
	BytesStreamed    atomic.Int64
	UptimeStart      time.Time
}

func NewRegistry() *Registry {
	return &Registry{UptimeStart: time.Now()}
}

func (r *Registry) UptimeSeconds() int64 {
	return int64(time.Since(r.UptimeStart).Seconds())
}

// SuccessRate is completed fetches over all finished fetches; 1.0 when
// nothing has finished yet.
func (r *Registry) SuccessRate() float64 {
	s := r.FetchesCompleted.Load()
	f := r.FetchesFailed.Load()
	if s+f == 0 {
		return 1.0
	}
	return float64(s) / float64(s+f)
}
