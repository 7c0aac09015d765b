package status

import (
	"fmt"
	"sync/atomic"
)

// Metric keys written by the campaign core
const (
	OpsExecuted   = "scheduler.ops"
	OpsFailed     = "scheduler.failed"
	OpsDeferred   = "scheduler.deferred"
	OpsSkipped    = "scheduler.skipped"
	QueuesActive  = "scheduler.queues"
	OpsPending    = "scheduler.pending"
	CampsSpawned  = "camp.spawned"
	CampsCleared  = "camp.cleared"
	CampsExpired  = "camp.expired"
	SiegeMobs     = "siege.mobs"
	SiegeWave     = "siege.wave"
	SiegePhase    = "siege.phase"
	SiegeRun      = "siege.run"
	SiegeActive   = "siege.active"
	ClockDay      = "clock.day"
	ClockProgress = "clock.progress"
	EventsDropped = "event.dropped"
	HUDPushes     = "hud.pushes"
	EngineSteps   = "engine.steps"
)

// Registry is the central metrics facade
// Components cache pointers during construction; update paths write directly to atomics
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Lines renders every metric as "key=value" in sorted order per kind
func (r *Registry) Lines() []string {
	out := make([]string, 0, r.TotalCount())
	r.Ints.Range(func(k string, v *atomic.Int64) {
		out = append(out, fmt.Sprintf("%s=%d", k, v.Load()))
	})
	r.Floats.Range(func(k string, v *AtomicFloat) {
		out = append(out, fmt.Sprintf("%s=%.2f", k, v.Get()))
	})
	r.Bools.Range(func(k string, v *atomic.Bool) {
		out = append(out, fmt.Sprintf("%s=%t", k, v.Load()))
	})
	r.Strings.Range(func(k string, v *AtomicString) {
		out = append(out, fmt.Sprintf("%s=%s", k, v.Load()))
	})
	return out
}
