// Package camp spawns per-player hostile encampments on eligible days and
// resolves each exactly once when its guards fall
package camp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/lixenwraith/mega-knights/cache"
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/clock"
	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/scheduler"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

// Calendar exposes the clock state the director reads
type Calendar interface {
	State() clock.State
	IsMilestoneDay(day int) bool
}

// SiegeState reports whether the final siege is running
type SiegeState interface {
	Active() bool
}

// BonusPerCamp is the army bonus earned for each cleared camp
const BonusPerCamp = 2

// Director owns camp records; driven from the engine loop only
type Director struct {
	ctx      context.Context
	store    store.Store
	sched    *scheduler.Scheduler
	host     *host.Host
	policy   capacity.Policy
	cfg      config.Camp
	maxDay   int
	siegeDay int
	rules    *RuleSet
	calendar Calendar
	siege    SiegeState

	// last camp day keyed by player name, mirrored to the store
	cooldown *cache.RateLimitCache[string, int]
	// owners whose spawn queue lives in this process
	spawning map[string]bool

	log         *slog.Logger
	statSpawned *atomic.Int64
	statCleared *atomic.Int64
	statExpired *atomic.Int64
}

// NewDirector compiles exclusion rules and wires collaborators
func NewDirector(ctx context.Context, s store.Store, sched *scheduler.Scheduler, h *host.Host, content *config.Content, cal Calendar, siege SiegeState, reg *status.Registry) (*Director, error) {
	rules, err := CompileRules(content.Camp.Rules)
	if err != nil {
		return nil, err
	}
	cooldown, err := cache.New[string, int](content.Camp.CooldownCapacity)
	if err != nil {
		return nil, fmt.Errorf("camp cooldown table: %w", err)
	}
	return &Director{
		ctx:         ctx,
		store:       s,
		sched:       sched,
		host:        h,
		policy:      content.Capacity,
		cfg:         content.Camp,
		maxDay:      content.Clock.MaxDay,
		siegeDay:    content.Siege.Day,
		rules:       rules,
		calendar:    cal,
		siege:       siege,
		cooldown:    cooldown,
		spawning:    make(map[string]bool),
		log:         slog.With("component", "camp"),
		statSpawned: reg.Ints.Get(status.CampsSpawned),
		statCleared: reg.Ints.Get(status.CampsCleared),
		statExpired: reg.Ints.Get(status.CampsExpired),
	}, nil
}

// EventTypes implements event.Handler
func (d *Director) EventTypes() []event.EventType {
	return []event.EventType{
		event.EventDayAdvanced,
		event.EventActorDied,
		event.EventPlayerJoined,
		event.EventPlayerLeft,
	}
}

// HandleEvent implements event.Handler
func (d *Director) HandleEvent(ev event.GameEvent) {
	switch p := ev.Payload.(type) {
	case *event.DayAdvancedPayload:
		d.OnDayChanged(p.Day)
	case *event.ActorDiedPayload:
		d.OnActorDied(p.TypeID, p.OwnerID)
	case *event.PlayerPayload:
		if ev.Type == event.EventPlayerJoined {
			d.OnPlayerJoined(p.PlayerID, p.Initial)
		} else {
			d.OnPlayerLeft(p.PlayerID)
		}
	}
}

// OnDayChanged evaluates every online player and spawns camps where no exclusion holds
func (d *Director) OnDayChanged(day int) {
	players := d.host.Players()
	for _, p := range players {
		env := d.eligibility(p, day, len(players))
		hits, err := d.rules.Exclusions(env)
		if err != nil {
			d.log.Error("rule evaluation failed", "player", p.ID, "day", day, "error", err)
			continue
		}
		if len(hits) > 0 {
			d.log.Debug("camp excluded", "player", p.ID, "day", day, "rules", hits)
			continue
		}
		d.spawn(p, day, len(players))
	}
}

func (d *Director) eligibility(p host.Player, day, players int) Eligibility {
	st := d.calendar.State()
	last, hasLast := d.lastCampDay(p)
	_, active := loadRecord(d.ctx, d.store, p.ID)
	return Eligibility{
		Day:             day,
		MinDay:          d.cfg.MinDay,
		MaxDay:          d.maxDay,
		SiegeDay:        d.siegeDay,
		CooldownDays:    d.cfg.CooldownDays,
		LastCampDay:     last,
		HasPreviousCamp: hasLast,
		SiegeActive:     d.siege.Active(),
		MilestoneDay:    d.calendar.IsMilestoneDay(day),
		HasActiveCamp:   active,
		Endless:         st.Endless,
		Players:         players,
	}
}

// lastCampDay reads the cooldown table, falling back to the store on a miss
func (d *Director) lastCampDay(p host.Player) (int, bool) {
	if day, ok := d.cooldown.Get(p.Name); ok {
		return day, day >= 0
	}
	day := store.Int(d.ctx, d.store, store.PlayerKey(p.ID, store.FieldLastCamp), -1)
	d.cooldown.Set(p.Name, day)
	return day, day >= 0
}

func (d *Director) spawn(p host.Player, day, players int) {
	idx, ok := d.cfg.TierFor(day)
	if !ok {
		d.log.Warn("no camp tier covers day", "day", day)
		return
	}
	tier := d.cfg.Tiers[idx]
	guards := Size(tier.Guards, capacity.Scale(players), d.cfg.MaxGuards)
	origin := p.Location.Ring(day, 8, parameter.CampSpawnRadius)

	rec := Record{
		Tier:      idx,
		TierName:  tier.Name,
		SpawnDay:  day,
		Dimension: origin.Dimension,
		Origin:    origin,
	}
	if err := saveRecord(d.ctx, d.store, p.ID, rec); err != nil {
		d.log.Error("camp record write failed, not spawning", "player", p.ID, "error", err)
		return
	}
	d.cooldown.Set(p.Name, day)
	if err := store.Put(d.ctx, d.store, store.PlayerKey(p.ID, store.FieldLastCamp), day); err != nil {
		d.log.Warn("cooldown persist failed", "player", p.ID, "error", err)
	}

	total := Total(guards)
	ops := make([]scheduler.Op, 0, total+1)
	spawned := 0
	i := 0
	for _, g := range guards {
		for range g.Count {
			at := origin.Ring(i, total, 4)
			ops = append(ops, scheduler.Op{
				Name:     "camp-guard",
				PlayerID: p.ID,
				Run: func(host.Player) error {
					if d.guardSpawned(p.ID, g.Type, at) {
						spawned++
					}
					return nil
				},
			})
			i++
		}
	}
	ops = append(ops, scheduler.Op{
		Name:     "camp-banner",
		PlayerID: p.ID,
		Run: func(pl host.Player) error {
			d.host.Send(pl.ID, fmt.Sprintf("A hostile %s has been sighted near %s. %d guards hold it.", tier.Name, origin, total))
			d.host.Play(pl.ID, host.SoundCampSpawn)
			return nil
		},
	})

	d.spawning[p.ID] = true
	d.sched.Enqueue("camp:"+p.ID, parameter.DefaultQueueBudget, ops...).OnDone(func(scheduler.Summary) {
		delete(d.spawning, p.ID)
		d.spawningDone(p.ID, spawned)
	})
	d.statSpawned.Add(1)
	d.log.Info("camp spawning", "player", p.ID, "day", day, "tier", tier.Name, "guards", total)
}

// guardSpawned places one guard if the record still stands, counting it on success
func (d *Director) guardSpawned(playerID, typeID string, at host.Location) bool {
	rec, ok := loadRecord(d.ctx, d.store, playerID)
	if !ok || rec.Cleared {
		return false
	}
	if _, err := d.host.Spawn(typeID, at, playerID); err != nil {
		d.log.Warn("guard spawn failed", "player", playerID, "type", typeID, "error", err)
		return false
	}
	rec.GuardCount++
	if err := saveRecord(d.ctx, d.store, playerID, rec); err != nil {
		d.log.Warn("guard count persist failed", "player", playerID, "error", err)
	}
	return true
}

func (d *Director) spawningDone(playerID string, spawned int) {
	rec, ok := loadRecord(d.ctx, d.store, playerID)
	if !ok || rec.Cleared {
		return
	}
	if spawned == 0 {
		d.log.Warn("camp spawned no guards, abandoning", "player", playerID)
		d.drop(playerID)
		return
	}
	rec.SpawningComplete = true
	if err := saveRecord(d.ctx, d.store, playerID, rec); err != nil {
		d.log.Warn("camp record persist failed", "player", playerID, "error", err)
		return
	}
	d.log.Debug("camp spawning complete", "player", playerID, "spawned", spawned, "alive", rec.GuardCount)
	if rec.GuardCount == 0 {
		d.resolve(playerID)
	}
}

// OnActorDied decrements the guard count of the owner's camp
// Deaths of other actors tagged with the owner are ignored; an empty type counts
func (d *Director) OnActorDied(typeID, ownerID string) {
	if ownerID == "" {
		return
	}
	rec, ok := loadRecord(d.ctx, d.store, ownerID)
	if !ok || rec.Cleared {
		return
	}
	if typeID != "" && !d.guardType(rec, typeID) {
		d.log.Debug("non-guard death ignored", "player", ownerID, "type", typeID)
		return
	}
	rec.GuardCount = max(0, rec.GuardCount-1)
	if err := saveRecord(d.ctx, d.store, ownerID, rec); err != nil {
		d.log.Warn("guard count persist failed", "player", ownerID, "error", err)
		return
	}
	if rec.SpawningComplete && rec.GuardCount == 0 {
		d.resolve(ownerID)
	}
}

func (d *Director) guardType(rec Record, typeID string) bool {
	if rec.Tier < 0 || rec.Tier >= len(d.cfg.Tiers) {
		return true
	}
	for _, g := range d.cfg.Tiers[rec.Tier].Guards {
		if g.Type == typeID {
			return true
		}
	}
	return false
}

// Recount reconciles guard counts with live actors for owners who are online
// Covers deaths the host never reported, and camps whose spawn queue was lost to
// a restart: those are completed with the guards that made it, or dropped if none did
func (d *Director) Recount() {
	owners, err := recordOwners(d.ctx, d.store)
	if err != nil {
		d.log.Warn("recount scan failed", "error", err)
		return
	}
	for _, id := range owners {
		rec, ok := loadRecord(d.ctx, d.store, id)
		if !ok {
			continue
		}
		if rec.Cleared {
			// resolve was interrupted after its first write
			d.drop(id)
			continue
		}
		if !rec.SpawningComplete && d.spawning[id] {
			continue
		}
		p, online := d.host.Lookup(id)
		if !online || p.Location.Dimension != rec.Dimension {
			continue
		}
		alive, ok := d.host.Count(rec.Dimension, id)
		if !ok {
			continue
		}
		if !rec.SpawningComplete {
			d.finishOrphan(id, rec, alive)
			continue
		}
		if alive == rec.GuardCount {
			continue
		}
		d.log.Info("recount corrected guards", "player", id, "recorded", rec.GuardCount, "alive", alive)
		rec.GuardCount = alive
		if err := saveRecord(d.ctx, d.store, id, rec); err != nil {
			d.log.Warn("guard count persist failed", "player", id, "error", err)
			continue
		}
		if alive == 0 {
			d.resolve(id)
		}
	}
}

func (d *Director) finishOrphan(playerID string, rec Record, alive int) {
	if alive == 0 {
		d.log.Warn("orphaned camp has no guards, abandoning", "player", playerID)
		d.drop(playerID)
		return
	}
	rec.GuardCount = alive
	rec.SpawningComplete = true
	if err := saveRecord(d.ctx, d.store, playerID, rec); err != nil {
		d.log.Warn("camp record persist failed", "player", playerID, "error", err)
		return
	}
	d.log.Info("orphaned camp completed", "player", playerID, "alive", alive)
}

// resolve grants rewards exactly once; the Cleared mark is persisted before any effect
// The record is re-read so a caller holding a stale copy cannot resolve twice
func (d *Director) resolve(playerID string) {
	rec, ok := loadRecord(d.ctx, d.store, playerID)
	if !ok || rec.Cleared {
		return
	}
	rec.Cleared = true
	if err := saveRecord(d.ctx, d.store, playerID, rec); err != nil {
		d.log.Error("clear mark failed, will retry", "player", playerID, "error", err)
		return
	}

	var rewards []config.Reward
	if rec.Tier >= 0 && rec.Tier < len(d.cfg.Tiers) {
		rewards = d.cfg.Tiers[rec.Tier].Rewards
	}
	for _, r := range rewards {
		d.host.Grant(playerID, r.Item, r.Count)
	}

	kills, err := store.Add(d.ctx, d.store, store.PlayerKey(playerID, store.FieldKills), 1)
	if err != nil {
		d.log.Warn("kill count persist failed", "player", playerID, "error", err)
	}
	d.award(playerID, kills)

	d.host.Title(playerID, "Camp cleared", rec.TierName)
	d.host.Send(playerID, fmt.Sprintf("The %s is destroyed. That is your %s camp.", rec.TierName, humanize.Ordinal(kills)))
	d.host.Play(playerID, host.SoundCampClear)

	d.drop(playerID)
	d.statCleared.Add(1)
	d.log.Info("camp cleared", "player", playerID, "tier", rec.TierName, "kills", kills)
}

// award raises army bonus and rank after a clear
func (d *Director) award(playerID string, kills int) {
	bonusKey := store.PlayerKey(playerID, store.FieldBonus)
	bonus := store.Int(d.ctx, d.store, bonusKey, 0)
	next := min(bonus+BonusPerCamp, d.policy.MaxBonus)
	if next != bonus {
		if err := store.Put(d.ctx, d.store, bonusKey, next); err != nil {
			d.log.Warn("bonus persist failed", "player", playerID, "error", err)
		}
	}

	tierKey := store.PlayerKey(playerID, store.FieldTier)
	prev := store.Int(d.ctx, d.store, tierKey, 0)
	rank := RankFor(kills)
	if rank == prev {
		return
	}
	if err := store.Put(d.ctx, d.store, tierKey, rank); err != nil {
		d.log.Warn("rank persist failed", "player", playerID, "error", err)
		return
	}
	if rank > prev {
		d.host.Title(playerID, RankName(rank), "Your renown grows")
	}
}

// ExpireStale drops camps whose owner has been offline for StaleDays or more
// Guards are removed through the scheduler; no rewards are granted
func (d *Director) ExpireStale() {
	owners, err := recordOwners(d.ctx, d.store)
	if err != nil {
		d.log.Warn("stale scan failed", "error", err)
		return
	}
	day := d.calendar.State().Day
	for _, id := range owners {
		if _, online := d.host.Lookup(id); online {
			continue
		}
		rec, ok := loadRecord(d.ctx, d.store, id)
		if !ok {
			continue
		}
		lastSeen := store.Int(d.ctx, d.store, store.PlayerKey(id, store.FieldLastSeen), rec.SpawnDay)
		if day-lastSeen < d.cfg.StaleDays {
			continue
		}
		d.drop(id)
		d.removeGuards(id, rec.Dimension)
		d.statExpired.Add(1)
		d.log.Info("stale camp expired", "player", id, "last_seen", lastSeen, "day", day)
	}
}

func (d *Director) removeGuards(ownerID, dimension string) {
	handles := d.host.List(dimension, ownerID)
	if len(handles) == 0 {
		return
	}
	ops := make([]scheduler.Op, len(handles))
	for i, h := range handles {
		ops[i] = scheduler.Op{
			Name: "camp-remove",
			Run:  func(host.Player) error { return d.host.Remove(h) },
		}
	}
	d.sched.Enqueue("camp-expire:"+ownerID, parameter.DefaultQueueBudget, ops...)
}

func (d *Director) drop(playerID string) {
	if err := deleteRecord(d.ctx, d.store, playerID); err != nil {
		d.log.Warn("camp record delete failed", "player", playerID, "error", err)
	}
}

// OnPlayerJoined clears offline tracking and advises first-time players
func (d *Director) OnPlayerJoined(playerID string, initial bool) {
	if err := d.store.Delete(d.ctx, store.PlayerKey(playerID, store.FieldLastSeen)); err != nil {
		d.log.Debug("last seen clear failed", "player", playerID, "error", err)
	}
	if !initial {
		return
	}
	day := d.calendar.State().Day
	if day < d.cfg.MinDay {
		d.host.Send(playerID, fmt.Sprintf("Hostile camps begin to appear on day %d. Raise your army before then.", d.cfg.MinDay))
	}
}

// OnPlayerLeft records the day a player went offline for stale expiry
func (d *Director) OnPlayerLeft(playerID string) {
	day := d.calendar.State().Day
	if err := store.Put(d.ctx, d.store, store.PlayerKey(playerID, store.FieldLastSeen), day); err != nil {
		d.log.Warn("last seen persist failed", "player", playerID, "error", err)
	}
}

// Reset removes every camp and forgets camp cooldowns and offline tracking
// Kills, army bonus and rank are kept
func (d *Director) Reset() error {
	keys, err := d.store.Keys(d.ctx, store.PlayerFieldPrefix())
	if err != nil {
		return fmt.Errorf("camp reset: %w", err)
	}
	camps := 0
	for _, k := range keys {
		id, field, ok := store.SplitPlayerKey(k)
		if !ok {
			continue
		}
		switch field {
		case store.FieldCamp:
			if rec, ok := loadRecord(d.ctx, d.store, id); ok {
				d.removeGuards(id, rec.Dimension)
			}
			camps++
		case store.FieldLastCamp, store.FieldLastSeen:
		default:
			continue
		}
		if err := d.store.Delete(d.ctx, k); err != nil {
			return fmt.Errorf("camp reset: %w", err)
		}
	}
	d.cooldown.Clear()
	d.log.Info("camps reset", "camps", camps)
	return nil
}

// Active returns a player's camp record, if any
func (d *Director) Active(playerID string) (Record, bool) {
	return loadRecord(d.ctx, d.store, playerID)
}
