package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/mega-knights/core"
	"github.com/lixenwraith/mega-knights/status"
)

// Loop calls step on a fixed interval with drift correction
// A loop that falls more than two intervals behind skips the missed steps
// instead of bursting to catch up
type Loop struct {
	step     func()
	interval time.Duration
	clock    TimeSource
	isPaused atomic.Bool

	nextDeadline time.Time
	stepCount    atomic.Uint64

	// Control channels
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	statSteps *atomic.Int64
}

// NewLoop creates a stopped loop; clock may be nil for wall time
func NewLoop(interval time.Duration, clock TimeSource, reg *status.Registry, step func()) *Loop {
	if clock == nil {
		clock = WallTime{}
	}
	return &Loop{
		step:      step,
		interval:  interval,
		clock:     clock,
		stopChan:  make(chan struct{}),
		statSteps: reg.Ints.Get(status.EngineSteps),
	}
}

// Start begins the loop; later calls are no-ops
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		l.wg.Add(1)
		core.Go(l.run)
	}
}

// Stop halts the loop and waits for the current step to finish; idempotent
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.running.CompareAndSwap(true, false) {
			close(l.stopChan)
			l.wg.Wait()
		}
	})
}

// Pause suspends stepping without stopping the goroutine
func (l *Loop) Pause() { l.isPaused.Store(true) }

// Resume continues stepping from the current time
func (l *Loop) Resume() { l.isPaused.Store(false) }

func (l *Loop) IsPaused() bool { return l.isPaused.Load() }

// Steps returns the number of steps executed
func (l *Loop) Steps() uint64 { return l.stepCount.Load() }

func (l *Loop) run() {
	defer l.wg.Done()

	l.nextDeadline = l.clock.Now().Add(l.interval)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		var sleep time.Duration
		if l.isPaused.Load() {
			// Longer sleep while paused; the deadline restarts on resume
			sleep = l.interval * 2
			l.nextDeadline = l.clock.Now().Add(l.interval)
		} else {
			now := l.clock.Now()
			if !now.Before(l.nextDeadline) {
				l.step()
				n := l.stepCount.Add(1)
				l.statSteps.Store(int64(n))

				l.nextDeadline = l.nextDeadline.Add(l.interval)
				if now.Sub(l.nextDeadline) > l.interval*2 {
					l.nextDeadline = now.Add(l.interval)
				}
			}
			sleep = max(0, l.nextDeadline.Sub(l.clock.Now()))
		}

		if sleep > 0 {
			timer.Reset(sleep)
			select {
			case <-timer.C:
			case <-l.stopChan:
				return
			}
		}
	}
}
