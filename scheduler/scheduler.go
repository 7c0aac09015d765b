// Package scheduler spreads spawn and removal work across engine steps
//
// Work is enqueued as named FIFO queues of operations. Each Step executes at most
// a queue's budget from every active queue, bounded by a global ceiling, so a large
// wave never lands in a single step. Start positions rotate across steps
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/status"
)

// ErrDefer keeps the operation at the head of its queue and yields the queue for this step
var ErrDefer = errors.New("scheduler: deferred")

// Resolver re-resolves a player immediately before a player-bound operation runs
type Resolver interface {
	Lookup(id string) (host.Player, bool)
}

// Op is a single unit of deferred work
// PlayerID binds the op to a player; the op is skipped if the player is absent when it runs
type Op struct {
	Name     string
	PlayerID string
	Run      func(p host.Player) error
}

// Summary reports the outcome of a drained queue
type Summary struct {
	Name     string
	Executed int // ops that ran without error
	Failed   int
	Skipped  int // player absent at run time
}

// Queue is an ordered list of ops drained at most budget per step
type Queue struct {
	name    string
	budget  int
	ops     []Op
	onDone  func(Summary)
	summary Summary
}

// OnDone registers a callback fired once when the queue drains
func (q *Queue) OnDone(fn func(Summary)) *Queue {
	q.onDone = fn
	return q
}

// Name returns the queue label
func (q *Queue) Name() string { return q.name }

// Len returns ops still pending in the queue
func (q *Queue) Len() int { return len(q.ops) }

// Scheduler owns the active queues; it is driven from the engine loop only
type Scheduler struct {
	resolver Resolver
	queues   []*Queue
	next     int
	maxOps   int

	failLog rate.Sometimes
	log     *slog.Logger

	statOps      *atomic.Int64
	statFailed   *atomic.Int64
	statDeferred *atomic.Int64
	statSkipped  *atomic.Int64
	statQueues   *atomic.Int64
	statPending  *atomic.Int64
}

// New creates a scheduler; maxOpsPerStep <= 0 selects the default ceiling
func New(resolver Resolver, reg *status.Registry, maxOpsPerStep int) *Scheduler {
	if maxOpsPerStep <= 0 {
		maxOpsPerStep = parameter.DefaultMaxOpsPerStep
	}
	return &Scheduler{
		resolver:     resolver,
		maxOps:       maxOpsPerStep,
		failLog:      rate.Sometimes{First: 5, Interval: 10 * time.Second},
		log:          slog.With("component", "scheduler"),
		statOps:      reg.Ints.Get(status.OpsExecuted),
		statFailed:   reg.Ints.Get(status.OpsFailed),
		statDeferred: reg.Ints.Get(status.OpsDeferred),
		statSkipped:  reg.Ints.Get(status.OpsSkipped),
		statQueues:   reg.Ints.Get(status.QueuesActive),
		statPending:  reg.Ints.Get(status.OpsPending),
	}
}

// Enqueue registers a new queue; budget is clamped to [1, MaxQueueBudget]
func (s *Scheduler) Enqueue(name string, budget int, ops ...Op) *Queue {
	budget = max(1, min(budget, parameter.MaxQueueBudget))
	q := &Queue{
		name:    name,
		budget:  budget,
		ops:     ops,
		summary: Summary{Name: name},
	}
	s.queues = append(s.queues, q)
	s.publish()
	return q
}

// Append adds ops to the tail of an active queue
func (s *Scheduler) Append(q *Queue, ops ...Op) {
	q.ops = append(q.ops, ops...)
	s.publish()
}

// Step executes one round of queued work and returns the number of ops run
func (s *Scheduler) Step() int {
	n := len(s.queues)
	if n == 0 {
		return 0
	}

	start := s.next % n
	ran := 0
	for i := 0; i < n && ran < s.maxOps; i++ {
		q := s.queues[(start+i)%n]
		ran += s.drain(q, s.maxOps-ran)
	}

	// Retire drained queues in order, then rotate
	kept := s.queues[:0]
	var done []*Queue
	for _, q := range s.queues {
		if len(q.ops) == 0 {
			done = append(done, q)
			continue
		}
		kept = append(kept, q)
	}
	clear(s.queues[len(kept):])
	s.queues = kept
	if len(s.queues) > 0 {
		s.next = (start + 1) % len(s.queues)
	} else {
		s.next = 0
	}

	for _, q := range done {
		if q.onDone != nil {
			s.callDone(q)
		}
	}

	s.statOps.Add(int64(ran))
	s.publish()
	return ran
}

// drain runs up to the queue budget, never exceeding limit
func (s *Scheduler) drain(q *Queue, limit int) int {
	used := 0
	for used < q.budget && used < limit && len(q.ops) > 0 {
		op := q.ops[0]

		var (
			p  host.Player
			ok = true
		)
		if op.PlayerID != "" {
			p, ok = s.resolver.Lookup(op.PlayerID)
		}
		if !ok {
			q.ops = q.ops[1:]
			q.summary.Skipped++
			s.statSkipped.Add(1)
			continue
		}

		err := s.run(op, p)
		if errors.Is(err, ErrDefer) {
			s.statDeferred.Add(1)
			break
		}
		q.ops = q.ops[1:]
		used++
		if err != nil {
			q.summary.Failed++
			s.statFailed.Add(1)
			s.failLog.Do(func() {
				s.log.Warn("operation failed", "queue", q.name, "op", op.Name, "player", op.PlayerID, "error", err)
			})
			continue
		}
		q.summary.Executed++
	}
	return used
}

// run executes op, converting a panic into an error
func (s *Scheduler) run(op Op, p host.Player) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("op %s panicked: %v", op.Name, r)
		}
	}()
	return op.Run(p)
}

func (s *Scheduler) callDone(q *Queue) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("queue completion panicked", "queue", q.name, "panic", r)
		}
	}()
	q.onDone(q.summary)
}

// Pending returns the number of ops waiting across all queues
func (s *Scheduler) Pending() int {
	total := 0
	for _, q := range s.queues {
		total += len(q.ops)
	}
	return total
}

// Active returns the number of queues not yet drained
func (s *Scheduler) Active() int {
	return len(s.queues)
}

func (s *Scheduler) publish() {
	s.statQueues.Store(int64(len(s.queues)))
	s.statPending.Store(int64(s.Pending()))
}
