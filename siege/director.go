// Package siege runs the final wave-based boss encounter
//
// Waves fire on a fixed interval measured from the previous wave's start. Mob
// spawns pause through the scheduler while the live-mob ceiling is reached and
// resume as mobs die. Boss phases advance monotonically on health thresholds
package siege

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lixenwraith/mega-knights/camp"
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/scheduler"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

// Outcomes recorded when a siege ends
const (
	OutcomeVictory  = "victory"
	OutcomeTimeout  = "timeout"
	OutcomeDeserted = "deserted"
)

// State is the persisted siege progress
type State struct {
	Active     bool             `json:"active"`
	RunID      string           `json:"run_id"`
	Phase      int              `json:"phase"`
	Boss       host.ActorHandle `json:"boss"`
	MobCount   int              `json:"mob_count"`
	WaveIndex  int              `json:"wave_index"` // next wave to fire
	Dimension  string           `json:"dimension"`
	Origin     host.Location    `json:"origin"`
	Elapsed    int              `json:"elapsed"`
	NextWaveAt int              `json:"next_wave_at"`
	Outcome    string           `json:"outcome"`
	RetryIn    int              `json:"retry_in"` // steps before a lost siege is retried
}

// Campaign is the clock surface the siege reads and unlocks
type Campaign interface {
	Day() int
	SetEndless(on bool)
}

// Director owns the siege state; driven from the engine loop only
type Director struct {
	ctx      context.Context
	store    store.Store
	sched    *scheduler.Scheduler
	host     *host.Host
	cfg      config.Siege
	campaign Campaign

	state  State
	loaded bool

	log        *slog.Logger
	statMobs   *atomic.Int64
	statWave   *atomic.Int64
	statPhase  *atomic.Int64
	statActive *atomic.Bool
	statRun    *status.AtomicString
}

// NewDirector wires collaborators; state is loaded from the store on first use
func NewDirector(ctx context.Context, s store.Store, sched *scheduler.Scheduler, h *host.Host, content *config.Content, campaign Campaign, reg *status.Registry) *Director {
	return &Director{
		ctx:        ctx,
		store:      s,
		sched:      sched,
		host:       h,
		cfg:        content.Siege,
		campaign:   campaign,
		log:        slog.With("component", "siege"),
		statMobs:   reg.Ints.Get(status.SiegeMobs),
		statWave:   reg.Ints.Get(status.SiegeWave),
		statPhase:  reg.Ints.Get(status.SiegePhase),
		statActive: reg.Bools.Get(status.SiegeActive),
		statRun:    reg.Strings.Get(status.SiegeRun),
	}
}

func (d *Director) load() {
	if d.loaded {
		return
	}
	d.loaded = true
	obj, ok := store.Object(d.ctx, d.store, store.KeySiege)
	if !ok {
		return
	}
	d.state = State{
		Active:     obj.Get("active").Bool(),
		RunID:      obj.Get("run_id").String(),
		Phase:      max(0, min(int(obj.Get("phase").Int()), len(d.cfg.Phases))),
		Boss:       host.ActorHandle(obj.Get("boss").String()),
		MobCount:   max(0, int(obj.Get("mob_count").Int())),
		WaveIndex:  max(0, int(obj.Get("wave_index").Int())),
		Dimension:  obj.Get("dimension").String(),
		Elapsed:    max(0, int(obj.Get("elapsed").Int())),
		NextWaveAt: int(obj.Get("next_wave_at").Int()),
		Outcome:    obj.Get("outcome").String(),
		RetryIn:    max(0, int(obj.Get("retry_in").Int())),
	}
	if o := obj.Get("origin"); o.IsObject() {
		d.state.Origin = host.Location{
			Dimension: o.Get("dimension").String(),
			X:         o.Get("x").Float(),
			Y:         o.Get("y").Float(),
			Z:         o.Get("z").Float(),
		}
	}
	d.publish()
	if d.state.Active {
		d.log.Info("siege resumed", "run", d.state.RunID, "wave", d.state.WaveIndex, "phase", d.state.Phase)
	}
}

func (d *Director) save() {
	if err := store.Put(d.ctx, d.store, store.KeySiege, d.state); err != nil {
		d.log.Warn("siege state persist failed", "error", err)
	}
	d.publish()
}

// Active reports whether a siege is running
func (d *Director) Active() bool {
	d.load()
	return d.state.Active
}

// State returns a snapshot of siege progress
func (d *Director) State() State {
	d.load()
	return d.state
}

// EventTypes implements event.Handler
func (d *Director) EventTypes() []event.EventType {
	return []event.EventType{
		event.EventDayAdvanced,
		event.EventActorDied,
		event.EventBossHealthChanged,
	}
}

// HandleEvent implements event.Handler
func (d *Director) HandleEvent(ev event.GameEvent) {
	switch p := ev.Payload.(type) {
	case *event.DayAdvancedPayload:
		d.OnDayChanged(p.Day)
	case *event.ActorDiedPayload:
		d.OnActorDied(p.TypeID, p.OwnerID, p.Handle)
	case *event.BossHealthPayload:
		d.OnBossHealth(p.Fraction)
	}
}

// OnDayChanged starts the siege once the siege day is reached
func (d *Director) OnDayChanged(day int) {
	if day >= d.cfg.Day {
		d.StartNearPlayers()
	}
}

// Milestone is the siege milestone effect
func (d *Director) Milestone(config.Milestone) {
	d.StartNearPlayers()
}

// StartNearPlayers starts at the first online player's location
func (d *Director) StartNearPlayers() bool {
	players := d.host.Players()
	if len(players) == 0 {
		d.log.Debug("siege start deferred until a player is online")
		return false
	}
	return d.Start(players[0].Location)
}

// Start begins a siege at origin; a running or already won siege is left alone
func (d *Director) Start(origin host.Location) bool {
	d.load()
	if d.state.Active || d.state.Outcome == OutcomeVictory {
		return false
	}
	d.state = State{
		Active:    true,
		RunID:     uuid.NewString(),
		Dimension: origin.Dimension,
		Origin:    origin,
	}
	d.log.Info("siege started", "run", d.state.RunID, "origin", origin)
	d.host.Title(host.Everyone, "The Siege", "Defend the realm")
	d.host.Play(host.Everyone, host.SoundSiegeStart)
	d.fireWave()
	return true
}

// Upkeep advances the wave timer and checks defeat; called once per engine step
// While no siege runs it starts one that is due
func (d *Director) Upkeep() {
	d.load()
	if !d.state.Active {
		d.retry()
		return
	}
	d.state.Elapsed++

	if len(d.host.Players()) == 0 {
		d.end(OutcomeDeserted)
		return
	}
	if d.state.Elapsed >= d.cfg.MaxDurationTicks {
		d.end(OutcomeTimeout)
		return
	}
	if d.state.WaveIndex < len(d.cfg.Waves) && d.state.Elapsed >= d.state.NextWaveAt {
		d.fireWave()
		return
	}
	if d.state.Elapsed%parameter.TickPersistEvery == 0 {
		d.save()
	}
}

// retry starts a due siege that is not running: nobody was online when the siege
// day came, or the last attempt was lost. A won siege is never due
func (d *Director) retry() {
	if d.state.Outcome == OutcomeVictory || d.campaign.Day() < d.cfg.Day {
		return
	}
	if d.state.RetryIn > 0 {
		d.state.RetryIn--
		if d.state.RetryIn%parameter.TickPersistEvery == 0 {
			d.save()
		}
		return
	}
	players := d.host.Players()
	if len(players) == 0 {
		return
	}
	d.log.Info("due siege starting", "previous", d.state.Outcome)
	d.Start(players[0].Location)
}

func (d *Director) fireWave() {
	idx := d.state.WaveIndex
	wave := d.cfg.Waves[idx]
	players := max(1, len(d.host.Players()))
	limit := d.cfg.MaxPerPlayer * players
	roster := camp.Size(wave.Spawns, capacity.Scale(players), limit)
	total := camp.Total(roster)
	run := d.state.RunID

	ops := make([]scheduler.Op, 0, total+1)
	if wave.Boss {
		ops = append(ops, scheduler.Op{
			Name: "siege-boss",
			Run:  func(host.Player) error { return d.spawnBoss(run) },
		})
	}
	i := 0
	for _, g := range roster {
		for range g.Count {
			at := d.state.Origin.Ring(i, total, parameter.SiegeSpawnRadius)
			ops = append(ops, scheduler.Op{
				Name: "siege-mob",
				Run:  func(host.Player) error { return d.spawnMob(run, g.Type, at) },
			})
			i++
		}
	}
	d.sched.Enqueue(fmt.Sprintf("siege-wave-%d", idx+1), parameter.DefaultQueueBudget, ops...)

	d.state.WaveIndex++
	d.state.NextWaveAt = d.state.Elapsed + d.cfg.WaveIntervalTick
	d.save()

	d.host.Title(host.Everyone, fmt.Sprintf("Wave %d of %d", idx+1, len(d.cfg.Waves)), "")
	d.host.Play(host.Everyone, host.SoundWave)
	d.log.Info("wave fired", "run", run, "wave", idx+1, "mobs", total, "boss", wave.Boss)
}

// spawnMob defers while the live-mob ceiling is reached
func (d *Director) spawnMob(run, typeID string, at host.Location) error {
	if !d.state.Active || d.state.RunID != run {
		return nil
	}
	if d.state.MobCount >= d.cfg.MaxActiveMobs {
		return scheduler.ErrDefer
	}
	if _, err := d.host.Spawn(typeID, at, parameter.SiegeOwner); err != nil {
		return err
	}
	d.state.MobCount++
	d.save()
	return nil
}

func (d *Director) spawnBoss(run string) error {
	if !d.state.Active || d.state.RunID != run || d.state.Boss != "" {
		return nil
	}
	h, err := d.host.Spawn(d.cfg.Boss, d.state.Origin, parameter.SiegeOwner)
	if err != nil {
		return err
	}
	d.state.Boss = h
	d.save()
	d.host.Title(host.Everyone, "The Siege Lord", "has entered the field")
	d.log.Info("boss spawned", "run", run, "handle", h)
	return nil
}

// OnActorDied tracks siege deaths; the boss's death is victory
func (d *Director) OnActorDied(typeID, ownerID string, h host.ActorHandle) {
	d.load()
	if !d.state.Active || ownerID != parameter.SiegeOwner {
		return
	}
	if d.state.Boss != "" && (h == d.state.Boss || (h == "" && typeID == d.cfg.Boss)) {
		d.end(OutcomeVictory)
		return
	}
	d.state.MobCount = max(0, d.state.MobCount-1)
	d.save()
}

// OnBossHealth advances phases for every threshold crossed, in order, never backwards
func (d *Director) OnBossHealth(fraction float64) {
	d.load()
	if !d.state.Active || d.state.Boss == "" {
		return
	}
	target := 0
	for i, p := range d.cfg.Phases {
		if fraction <= p.Threshold {
			target = i + 1
		}
	}
	for d.state.Phase < target {
		p := d.cfg.Phases[d.state.Phase]
		d.state.Phase++
		d.save()
		d.host.ApplyBundle(d.state.Boss, p.Add, p.Remove)
		d.host.Title(host.Everyone, p.Title, fmt.Sprintf("Phase %d", d.state.Phase))
		d.host.Play(host.Everyone, host.SoundBossPhase)
		d.log.Info("boss phase", "run", d.state.RunID, "phase", d.state.Phase, "health", fraction)
	}
}

func (d *Director) end(outcome string) {
	run := d.state.RunID
	victory := outcome == OutcomeVictory

	if victory {
		for _, p := range d.host.Players() {
			for _, r := range d.cfg.Rewards {
				d.host.Grant(p.ID, r.Item, r.Count)
			}
		}
		d.campaign.SetEndless(true)
		d.host.Title(host.Everyone, "Victory", "Endless mode unlocked")
		d.host.Play(host.Everyone, host.SoundSiegeVictory)
	} else {
		d.host.Title(host.Everyone, "The realm has fallen", "")
		d.host.Play(host.Everyone, host.SoundSiegeDefeat)
	}

	d.cleanup()
	d.state.Active = false
	d.state.Outcome = outcome
	if outcome == OutcomeTimeout {
		d.state.RetryIn = parameter.SiegeRetrySteps
	}
	d.save()
	d.log.Info("siege ended", "run", run, "outcome", outcome, "waves", d.state.WaveIndex, "phase", d.state.Phase)
}

// cleanup zeroes the live count first, then removes siege actors in the captured
// dimension through the scheduler
func (d *Director) cleanup() {
	d.state.MobCount = 0
	d.state.Boss = ""
	d.save()

	handles := d.host.List(d.state.Dimension, parameter.SiegeOwner)
	if len(handles) == 0 {
		return
	}
	ops := make([]scheduler.Op, len(handles))
	for i, h := range handles {
		ops[i] = scheduler.Op{
			Name: "siege-remove",
			Run:  func(host.Player) error { return d.host.Remove(h) },
		}
	}
	d.sched.Enqueue("siege-cleanup", parameter.DefaultQueueBudget, ops...)
}

// Recount reconciles MobCount with the live siege actors, covering deaths the host
// never reported. Skipped while nobody is in the siege dimension to keep it loaded
func (d *Director) Recount() {
	d.load()
	if !d.state.Active || !d.watched() {
		return
	}
	alive, ok := d.host.Count(d.state.Dimension, parameter.SiegeOwner)
	if !ok {
		return
	}
	if d.state.Boss != "" && slices.Contains(d.host.List(d.state.Dimension, parameter.SiegeOwner), d.state.Boss) {
		alive--
	}
	alive = max(0, alive)
	if alive == d.state.MobCount {
		return
	}
	d.log.Info("recount corrected mobs", "run", d.state.RunID, "recorded", d.state.MobCount, "alive", alive)
	d.state.MobCount = alive
	d.save()
}

func (d *Director) watched() bool {
	for _, p := range d.host.Players() {
		if p.Location.Dimension == d.state.Dimension {
			return true
		}
	}
	return false
}

// Reset forgets every siege run, removing any live siege actors
func (d *Director) Reset() error {
	d.load()
	if d.state.Active {
		d.cleanup()
	}
	if err := d.store.Delete(d.ctx, store.KeySiege); err != nil {
		return fmt.Errorf("siege reset: %w", err)
	}
	d.state = State{}
	d.publish()
	d.log.Info("siege reset")
	return nil
}

func (d *Director) publish() {
	d.statMobs.Store(int64(d.state.MobCount))
	d.statWave.Store(int64(d.state.WaveIndex))
	d.statPhase.Store(int64(d.state.Phase))
	d.statActive.Store(d.state.Active)
	d.statRun.Store(d.state.RunID)
}
