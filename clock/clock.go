// Package clock owns the persistent campaign day and the tick counter within it
//
// The day is persisted on every change; the tick counter only every
// TickPersistEvery calls, so a crash replays at most that many ticks
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/scheduler"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

// State is the clock snapshot
type State struct {
	Day     int
	Tick    int
	Endless bool
	Active  bool
}

// Publisher delivers day-advanced notifications on the engine loop
type Publisher interface {
	Publish(ev event.GameEvent)
}

// EffectFunc runs a milestone effect; registered per effect kind
type EffectFunc func(m config.Milestone)

// Clock is driven from the engine loop only
type Clock struct {
	ctx        context.Context
	store      store.Store
	sched      *scheduler.Scheduler
	host       *host.Host
	publisher  Publisher
	cfg        config.Clock
	milestones map[int]config.Milestone
	effects    map[string]EffectFunc

	state      State
	loaded     bool
	sinceFlush int
	gen        int // bumped by Reset; queued milestone ops from an older gen are skipped

	log          *slog.Logger
	statDay      *atomic.Int64
	statProgress *status.AtomicFloat
}

// New creates a clock; state is loaded from the store on first use
func New(ctx context.Context, s store.Store, sched *scheduler.Scheduler, h *host.Host, pub Publisher, content *config.Content, reg *status.Registry) *Clock {
	c := &Clock{
		ctx:          ctx,
		store:        s,
		sched:        sched,
		host:         h,
		publisher:    pub,
		cfg:          content.Clock,
		milestones:   content.MilestoneByDay(),
		effects:      make(map[string]EffectFunc),
		log:          slog.With("component", "clock"),
		statDay:      reg.Ints.Get(status.ClockDay),
		statProgress: reg.Floats.Get(status.ClockProgress),
	}
	c.effects[config.EffectReward] = c.grantToAll
	return c
}

// HandleEffect registers the handler for a milestone effect kind
func (c *Clock) HandleEffect(kind string, fn EffectFunc) {
	c.effects[kind] = fn
}

// load reads persisted state once; absent or corrupt values fall back to zero state
// Milestones reached but never marked fired, e.g. a catch-up drain cut short by a
// restart, are queued again in day order
func (c *Clock) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.state = State{
		Day:     max(0, store.Int(c.ctx, c.store, store.KeyDay, 0)),
		Tick:    store.Int(c.ctx, c.store, store.KeyTick, 0),
		Endless: store.Bool(c.ctx, c.store, store.KeyEndless, false),
		Active:  store.Bool(c.ctx, c.store, store.KeyActive, false),
	}
	if c.state.Tick < 0 || c.state.Tick >= c.cfg.TicksPerDay {
		c.state.Tick = 0
	}
	if !c.state.Endless && c.state.Day > c.cfg.MaxDay {
		c.state.Day = c.cfg.MaxDay
	}
	c.publish()
	c.log.Info("clock loaded", "day", c.state.Day, "tick", c.state.Tick, "endless", c.state.Endless, "active", c.state.Active)

	if c.state.Active {
		var pending []int
		for _, d := range slices.Sorted(maps.Keys(c.milestones)) {
			if d <= c.state.Day && !store.Bool(c.ctx, c.store, store.MilestoneKey(d), false) {
				pending = append(pending, d)
			}
		}
		if len(pending) > 0 {
			c.log.Info("resuming unfired milestones", "days", pending)
			c.queueMilestones(pending)
		}
	}
}

// State returns the current snapshot
func (c *Clock) State() State {
	c.load()
	return c.state
}

// Day returns the current campaign day
func (c *Clock) Day() int {
	c.load()
	return c.state.Day
}

// Progress returns the fraction of the current day elapsed in [0,1)
func (c *Clock) Progress() float64 {
	c.load()
	return float64(c.state.Tick) / float64(c.cfg.TicksPerDay)
}

// IsMilestoneDay reports whether a milestone is scheduled on day
func (c *Clock) IsMilestoneDay(day int) bool {
	_, ok := c.milestones[day]
	return ok
}

// MaxDay returns the final bounded campaign day
func (c *Clock) MaxDay() int {
	return c.cfg.MaxDay
}

// Tick advances the counter by one step, rolling the day over at TicksPerDay
func (c *Clock) Tick() {
	c.load()
	if !c.state.Active {
		return
	}
	if !c.state.Endless && c.state.Day >= c.cfg.MaxDay {
		c.state.Tick = 0
		return
	}

	c.state.Tick += c.cfg.TickStep
	c.sinceFlush++

	if c.state.Tick >= c.cfg.TicksPerDay {
		c.state.Tick = 0
		c.state.Day++
		c.persist(store.KeyDay, c.state.Day)
		c.Flush()
		c.publish()
		c.log.Info("day advanced", "day", c.state.Day)

		c.dispatch(c.state.Day)
		c.notify(c.state.Day)
		return
	}

	if c.sinceFlush >= parameter.TickPersistEvery {
		c.Flush()
	}
	c.statProgress.Set(c.Progress())
}

// SetDay jumps to target, queueing one milestone dispatch per skipped day
// Milestones fire through the scheduler so a large jump never bursts in one step
func (c *Clock) SetDay(target int) {
	c.load()
	target = max(0, target)
	if !c.state.Endless {
		target = min(target, c.cfg.MaxDay)
	}

	prev := c.state.Day
	c.state.Day = target
	c.state.Tick = 0
	c.persist(store.KeyDay, target)
	c.Flush()
	if !c.state.Active {
		c.state.Active = true
		c.persist(store.KeyActive, true)
	}
	c.publish()
	c.log.Info("day set", "from", prev, "to", target)

	if target > prev {
		days := make([]int, 0, target-prev)
		for d := prev + 1; d <= target; d++ {
			days = append(days, d)
		}
		c.queueMilestones(days)
	}

	c.notify(target)
}

// queueMilestones dispatches days one per scheduler step, in the given order
func (c *Clock) queueMilestones(days []int) {
	gen := c.gen
	ops := make([]scheduler.Op, 0, len(days))
	for _, d := range days {
		ops = append(ops, scheduler.Op{
			Name: "milestone:" + strconv.Itoa(d),
			Run: func(host.Player) error {
				if gen == c.gen {
					c.dispatch(d)
				}
				return nil
			},
		})
	}
	c.sched.Enqueue("milestones", 1, ops...)
}

// Start activates the campaign
func (c *Clock) Start() {
	c.load()
	if c.state.Active {
		return
	}
	c.state.Active = true
	c.persist(store.KeyActive, true)
	c.log.Info("campaign started", "day", c.state.Day)
}

// SetEndless toggles unbounded advancement past MaxDay
func (c *Clock) SetEndless(on bool) {
	c.load()
	c.state.Endless = on
	c.persist(store.KeyEndless, on)
	c.log.Info("endless mode", "enabled", on)
}

// Reset returns to day 0 and clears fired milestone marks
func (c *Clock) Reset() error {
	c.load()
	keys, err := c.store.Keys(c.ctx, store.MilestonePrefix())
	if err != nil {
		return fmt.Errorf("clock reset: %w", err)
	}
	for _, k := range keys {
		if err := c.store.Delete(c.ctx, k); err != nil {
			return fmt.Errorf("clock reset: %w", err)
		}
	}
	c.gen++
	c.state = State{}
	c.persist(store.KeyDay, 0)
	c.persist(store.KeyEndless, false)
	c.persist(store.KeyActive, false)
	c.Flush()
	c.publish()
	c.log.Info("clock reset", "cleared_marks", len(keys))
	return nil
}

// Flush persists the tick counter immediately
func (c *Clock) Flush() {
	if !c.loaded {
		return
	}
	c.sinceFlush = 0
	c.persist(store.KeyTick, c.state.Tick)
}

// dispatch fires the milestone for day at most once per campaign
// The fired mark is written before any effect so a crash mid-effect never repeats it
func (c *Clock) dispatch(day int) {
	m, ok := c.milestones[day]
	if !ok {
		return
	}
	key := store.MilestoneKey(day)
	if store.Bool(c.ctx, c.store, key, false) {
		c.log.Debug("milestone already fired", "day", day)
		return
	}
	if err := store.Put(c.ctx, c.store, key, true); err != nil {
		c.log.Error("milestone mark failed, skipping", "day", day, "error", err)
		return
	}

	c.log.Info("milestone", "day", day, "title", m.Title, "effect", m.Effect)
	c.host.Title(host.Everyone, m.Title, "Day "+strconv.Itoa(day))
	if m.Message != "" {
		c.host.Send(host.Everyone, m.Message)
	}
	c.host.Play(host.Everyone, host.SoundMilestone)

	if fn, ok := c.effects[m.Effect]; ok {
		fn(m)
	} else if m.Effect != config.EffectNone {
		c.log.Warn("no handler for milestone effect", "day", day, "effect", m.Effect)
	}
}

func (c *Clock) grantToAll(m config.Milestone) {
	for _, p := range c.host.Players() {
		for _, r := range m.Rewards {
			c.host.Grant(p.ID, r.Item, r.Count)
		}
	}
}

func (c *Clock) notify(day int) {
	if c.publisher != nil {
		c.publisher.Publish(event.DayAdvanced(day))
	}
}

func (c *Clock) persist(key string, v any) {
	if err := store.Put(c.ctx, c.store, key, v); err != nil {
		c.log.Warn("persist failed", "key", key, "error", err)
	}
}

func (c *Clock) publish() {
	c.statDay.Store(int64(c.state.Day))
	c.statProgress.Set(float64(c.state.Tick) / float64(c.cfg.TicksPerDay))
}
