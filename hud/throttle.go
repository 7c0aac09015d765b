// Package hud keeps each player's day/army readout current without pushing
// unchanged frames
//
// Update runs on the HUD cadence. The online roster is refreshed every
// HUDRosterEvery calls and per-player store reads every HUDPropertiesEvery
// calls; a frame is pushed only when the player's Key differs from the last one
package hud

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/lixenwraith/mega-knights/cache"
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/clock"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

// Key is the change-detection value for one player's frame
type Key struct {
	Day  int
	Fill int
	Army int
	Cap  int
	Tier int
}

// View is one player's frame
type View struct {
	Key
	Player  host.Player
	Bonus   int
	Kills   int
	Endless bool
	Full    bool // no more allies fit under Cap
}

// Display receives frames that changed since the last push
type Display interface {
	Push(v View) error
}

// Source is the clock surface the HUD reads
type Source interface {
	State() clock.State
	Progress() float64
}

type props struct {
	army, bonus, tier, kills int
}

// Throttle is driven from the engine loop only
type Throttle struct {
	ctx      context.Context
	store    store.Store
	host     *host.Host
	policy   capacity.Policy
	source   Source
	displays []Display

	calls  int
	roster []host.Player
	props  map[string]props
	keys   *cache.RateLimitCache[string, Key]

	log        *slog.Logger
	statPushes *atomic.Int64
}

// New builds a throttle pushing to displays; policy derives each player's army cap
func New(ctx context.Context, s store.Store, h *host.Host, policy capacity.Policy, src Source, reg *status.Registry, displays ...Display) *Throttle {
	return &Throttle{
		ctx:        ctx,
		store:      s,
		host:       h,
		policy:     policy,
		source:     src,
		displays:   displays,
		props:      make(map[string]props),
		keys:       cache.MustNew[string, Key](parameter.HUDKeyCapacity),
		log:        slog.With("component", "hud"),
		statPushes: reg.Ints.Get(status.HUDPushes),
	}
}

// AddDisplay attaches another frame consumer
func (t *Throttle) AddDisplay(d Display) {
	t.displays = append(t.displays, d)
}

// Update recomputes keys and pushes changed frames; returns the number of frames pushed
func (t *Throttle) Update() int {
	call := t.calls
	t.calls++

	if call%parameter.HUDRosterEvery == 0 {
		t.refreshRoster()
	}
	refresh := call%parameter.HUDPropertiesEvery == 0
	if refresh {
		clear(t.props)
	}

	st := t.source.State()
	fill := Fill(t.source.Progress())
	players := len(t.roster)

	pushed := 0
	for _, p := range t.roster {
		pr, ok := t.props[p.ID]
		if !ok {
			pr = t.read(p.ID)
			t.props[p.ID] = pr
		}
		v := View{
			Key: Key{
				Day:  st.Day,
				Fill: fill,
				Army: pr.army,
				Cap:  t.policy.EffectiveCap(pr.bonus, players),
				Tier: pr.tier,
			},
			Player:  p,
			Bonus:   pr.bonus,
			Kills:   pr.kills,
			Endless: st.Endless,
			Full:    !t.policy.CanAdmit(pr.army, pr.bonus, players),
		}
		if prev, ok := t.keys.Get(p.ID); ok && prev == v.Key {
			continue
		}
		t.keys.Set(p.ID, v.Key)
		for _, d := range t.displays {
			if err := d.Push(v); err != nil {
				t.log.Debug("hud push failed", "player", p.ID, "error", err)
			}
		}
		pushed++
	}
	t.statPushes.Add(int64(pushed))
	return pushed
}

// Dropper is implemented by displays that keep per-player state
type Dropper interface {
	Drop(playerID string)
}

func (t *Throttle) refreshRoster() {
	prev := t.roster
	t.roster = t.host.Players()
	for _, old := range prev {
		if slices.ContainsFunc(t.roster, func(p host.Player) bool { return p.ID == old.ID }) {
			continue
		}
		t.Invalidate(old.ID)
		for _, d := range t.displays {
			if dr, ok := d.(Dropper); ok {
				dr.Drop(old.ID)
			}
		}
	}
}

// EventTypes implements event.Handler
func (t *Throttle) EventTypes() []event.EventType {
	return []event.EventType{event.EventPlayerJoined}
}

// HandleEvent implements event.Handler; a joining player gets a fresh frame on the next roster refresh
func (t *Throttle) HandleEvent(ev event.GameEvent) {
	if p, ok := ev.Payload.(*event.PlayerPayload); ok {
		t.Invalidate(p.PlayerID)
	}
}

// Invalidate forces the next Update to push a frame for playerID
func (t *Throttle) Invalidate(playerID string) {
	t.keys.Delete(playerID)
	delete(t.props, playerID)
}

func (t *Throttle) read(playerID string) props {
	get := func(field string) int {
		return max(0, store.Int(t.ctx, t.store, store.PlayerKey(playerID, field), 0))
	}
	return props{
		army:  get(store.FieldArmy),
		bonus: min(get(store.FieldBonus), t.policy.MaxBonus),
		tier:  get(store.FieldTier),
		kills: get(store.FieldKills),
	}
}

// Fill discretizes day progress into HUDFillLevels steps
func Fill(progress float64) int {
	return max(0, min(int(progress*parameter.HUDFillLevels), parameter.HUDFillLevels))
}
