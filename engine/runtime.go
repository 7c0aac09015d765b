// Package engine wires the campaign core onto one control path and drives it
// at a fixed cadence
//
// Each step drains inbound host events, advances the clock, runs siege upkeep
// and one scheduler step. The HUD runs every HUDEverySteps steps and the camp and
// siege safety nets every RecountEverySteps steps
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lixenwraith/mega-knights/camp"
	"github.com/lixenwraith/mega-knights/clock"
	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/hud"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/scheduler"
	"github.com/lixenwraith/mega-knights/siege"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

// Options configures a Runtime
type Options struct {
	Content       *config.Content
	Store         store.Store
	Host          *host.Host
	Registry      *status.Registry
	MaxOpsPerStep int
	Displays      []hud.Display
}

// Runtime owns every campaign component; Step must only be called from one goroutine
type Runtime struct {
	Queue     *event.EventQueue
	Router    *event.Router
	Scheduler *scheduler.Scheduler
	Clock     *clock.Clock
	Camps     *camp.Director
	Siege     *siege.Director
	HUD       *hud.Throttle

	store store.Store
	steps uint64

	log         *slog.Logger
	statDropped *atomic.Int64
}

// NewRuntime builds every component over one scheduler and router; ctx scopes
// store access for the runtime's lifetime
func NewRuntime(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Content == nil || opts.Store == nil || opts.Host == nil {
		return nil, fmt.Errorf("runtime: content, store and host are required")
	}
	reg := opts.Registry
	if reg == nil {
		reg = status.NewRegistry()
	}

	r := &Runtime{
		Queue:       event.NewEventQueue(),
		store:       opts.Store,
		log:         slog.With("component", "engine"),
		statDropped: reg.Ints.Get(status.EventsDropped),
	}
	r.Router = event.NewRouter(r.Queue)
	r.Scheduler = scheduler.New(opts.Host, reg, opts.MaxOpsPerStep)
	r.Clock = clock.New(ctx, opts.Store, r.Scheduler, opts.Host, r.Router, opts.Content, reg)
	r.Siege = siege.NewDirector(ctx, opts.Store, r.Scheduler, opts.Host, opts.Content, r.Clock, reg)

	camps, err := camp.NewDirector(ctx, opts.Store, r.Scheduler, opts.Host, opts.Content, r.Clock, r.Siege, reg)
	if err != nil {
		return nil, fmt.Errorf("camp director: %w", err)
	}
	r.Camps = camps
	r.HUD = hud.New(ctx, opts.Store, opts.Host, opts.Content.Capacity, r.Clock, reg, opts.Displays...)

	r.Clock.HandleEffect(config.EffectAmbush, r.Camps.Ambush)
	r.Clock.HandleEffect(config.EffectSiege, r.Siege.Milestone)

	// Siege before camps so a siege started by a day change excludes that day's camps
	r.Router.Register(r.Siege)
	r.Router.Register(r.Camps)
	r.Router.Register(r.HUD)

	return r, nil
}

// Push queues an inbound host event; safe from any goroutine
func (r *Runtime) Push(ev event.GameEvent) {
	r.Queue.Push(ev)
}

// Step runs one engine step
func (r *Runtime) Step() {
	r.steps++

	r.Router.DispatchAll()
	r.Clock.Tick()
	r.Siege.Upkeep()
	r.Scheduler.Step()

	if r.steps%parameter.HUDEverySteps == 0 {
		r.HUD.Update()
	}
	if r.steps%parameter.RecountEverySteps == 0 {
		r.Siege.Recount()
		r.Camps.Recount()
		r.Camps.ExpireStale()
	}
	r.statDropped.Store(int64(r.Queue.Dropped()))
}

// Steps returns the number of steps run
func (r *Runtime) Steps() uint64 {
	return r.steps
}

// Reset restarts the campaign from day zero, forgetting siege runs, camps and cooldowns
func (r *Runtime) Reset() error {
	if err := r.Siege.Reset(); err != nil {
		return err
	}
	if err := r.Camps.Reset(); err != nil {
		return err
	}
	if err := r.Clock.Reset(); err != nil {
		return err
	}
	r.log.Info("campaign reset")
	return nil
}

// Shutdown persists the clock; the loop must already be stopped
func (r *Runtime) Shutdown() {
	r.Router.DispatchAll()
	r.Clock.Flush()
	r.log.Info("runtime stopped", "steps", r.steps, "day", r.Clock.Day())
}
