// Package sandbox is an in-memory host: a world of actors, a roster and
// recording collaborators. It backs the standalone binary and integration tests
package sandbox

import (
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
)

// ErrUnknownActor is returned for handles that are not alive
var ErrUnknownActor = errors.New("sandbox: unknown actor")

// Actor is a live sandbox actor
type Actor struct {
	Handle  host.ActorHandle
	Type    string
	Owner   string
	At      host.Location
	Bundles map[string]bool
}

// Grant records a reward
type Grant struct {
	Player string
	Item   string
	Count  int
}

// Message records chat, title or action bar output
type Message struct {
	Kind   string // chat, title, actionbar
	Player string
	Text   string
}

// Sink receives host events; typically EventQueue.Push
type Sink func(ev event.GameEvent)

// World implements every host collaborator in memory; safe for concurrent use
type World struct {
	mu      sync.Mutex
	actors  map[host.ActorHandle]*Actor
	seq     int
	online  map[string]host.Player
	seen    map[string]bool
	loaded  map[string]bool // dimensions with loaded regions; nil means all
	sink    Sink
	grants  []Grant
	msgs    []Message
	sounds  []host.SoundID
	spawnFn func(typeID string) error
}

func New(sink Sink) *World {
	return &World{
		actors: make(map[host.ActorHandle]*Actor),
		online: make(map[string]host.Player),
		seen:   make(map[string]bool),
		sink:   sink,
	}
}

// FailSpawns installs a spawn failure hook; nil clears it
func (w *World) FailSpawns(fn func(typeID string) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawnFn = fn
}

// Unload marks a dimension's regions as unloaded; its actors become invisible to counts
func (w *World) Unload(dimension string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded == nil {
		w.loaded = make(map[string]bool)
		for _, a := range w.actors {
			w.loaded[a.At.Dimension] = true
		}
		for _, p := range w.online {
			w.loaded[p.Location.Dimension] = true
		}
	}
	w.loaded[dimension] = false
}

func (w *World) visible(dimension string) bool {
	return w.loaded == nil || w.loaded[dimension]
}

// === host.World ===

func (w *World) Spawn(typeID string, at host.Location, owner string) (host.ActorHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spawnFn != nil {
		if err := w.spawnFn(typeID); err != nil {
			return "", err
		}
	}
	w.seq++
	h := host.ActorHandle(fmt.Sprintf("actor-%d", w.seq))
	w.actors[h] = &Actor{Handle: h, Type: typeID, Owner: owner, At: at, Bundles: make(map[string]bool)}
	return h, nil
}

func (w *World) CountActors(dimension, owner string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.visible(dimension) {
		return 0, nil
	}
	n := 0
	for _, a := range w.actors {
		if a.Owner == owner && a.At.Dimension == dimension {
			n++
		}
	}
	return n, nil
}

func (w *World) ListActors(dimension, owner string) ([]host.ActorHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.visible(dimension) {
		return nil, nil
	}
	var out []host.ActorHandle
	for _, a := range w.actors {
		if a.Owner == owner && a.At.Dimension == dimension {
			out = append(out, a.Handle)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (w *World) Remove(h host.ActorHandle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.actors[h]; !ok {
		return ErrUnknownActor
	}
	delete(w.actors, h)
	return nil
}

func (w *World) ApplyBundle(h host.ActorHandle, add, remove string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.actors[h]
	if !ok {
		return ErrUnknownActor
	}
	if remove != "" {
		delete(a.Bundles, remove)
	}
	if add != "" {
		a.Bundles[add] = true
	}
	return nil
}

// === host.Roster ===

func (w *World) Players() []host.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]host.Player, 0, len(w.online))
	for _, id := range slices.Sorted(maps.Keys(w.online)) {
		out = append(out, w.online[id])
	}
	return out
}

func (w *World) Lookup(id string) (host.Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.online[id]
	return p, ok
}

// === host.Rewarder, host.Messenger, host.SoundPlayer ===

func (w *World) Grant(playerID, itemID string, count int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.online[playerID]; !ok {
		return fmt.Errorf("sandbox: player %s offline", playerID)
	}
	w.grants = append(w.grants, Grant{Player: playerID, Item: itemID, Count: count})
	return nil
}

func (w *World) Send(playerID, text string) error {
	return w.record("chat", playerID, text)
}

func (w *World) Title(playerID, title, subtitle string) error {
	if subtitle != "" {
		title += " | " + subtitle
	}
	return w.record("title", playerID, title)
}

func (w *World) ActionBar(playerID, text string) error {
	return w.record("actionbar", playerID, text)
}

func (w *World) Play(playerID string, id host.SoundID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sounds = append(w.sounds, id)
	return nil
}

func (w *World) record(kind, playerID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, Message{Kind: kind, Player: playerID, Text: text})
	return nil
}

// === Driving the sandbox ===

// Join brings a player online and emits player-joined
func (w *World) Join(id, name string, at host.Location) {
	w.mu.Lock()
	initial := !w.seen[id]
	w.seen[id] = true
	w.online[id] = host.Player{ID: id, Name: name, Location: at}
	w.mu.Unlock()
	w.emit(event.PlayerJoined(id, initial))
}

// Leave takes a player offline and emits player-left
func (w *World) Leave(id string) {
	w.mu.Lock()
	_, ok := w.online[id]
	delete(w.online, id)
	w.mu.Unlock()
	if ok {
		w.emit(event.PlayerLeft(id))
	}
}

// Kill removes an actor and emits actor-died
func (w *World) Kill(h host.ActorHandle) error {
	w.mu.Lock()
	a, ok := w.actors[h]
	if ok {
		delete(w.actors, h)
	}
	w.mu.Unlock()
	if !ok {
		return ErrUnknownActor
	}
	w.emit(event.ActorDied(a.Type, a.Owner, a.Handle))
	return nil
}

// KillOwned kills up to n actors tagged with owner; n < 0 kills all
func (w *World) KillOwned(owner string, n int) int {
	killed := 0
	for _, a := range w.Actors(owner) {
		if n >= 0 && killed >= n {
			break
		}
		if w.Kill(a.Handle) == nil {
			killed++
		}
	}
	return killed
}

// Skirmish kills up to n random actors whose type is not excluded
func (w *World) Skirmish(rng *rand.Rand, n int, exclude ...string) int {
	all := w.Actors("")
	killed := 0
	for killed < n && len(all) > 0 {
		i := rng.IntN(len(all))
		a := all[i]
		all = slices.Delete(all, i, i+1)
		if slices.Contains(exclude, a.Type) {
			continue
		}
		if w.Kill(a.Handle) == nil {
			killed++
		}
	}
	return killed
}

// BossHealth emits boss-health-changed
func (w *World) BossHealth(fraction float64) {
	w.emit(event.BossHealthChanged(fraction))
}

func (w *World) emit(ev event.GameEvent) {
	if w.sink != nil {
		w.sink(ev)
	}
}

// === Inspection ===

// Actors returns live actors tagged with owner, or all when owner is empty, in handle order
func (w *World) Actors(owner string) []Actor {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Actor
	for _, h := range slices.Sorted(maps.Keys(w.actors)) {
		a := w.actors[h]
		if owner == "" || a.Owner == owner {
			cp := *a
			cp.Bundles = maps.Clone(a.Bundles)
			out = append(out, cp)
		}
	}
	return out
}

// ActorCount returns the number of live actors
func (w *World) ActorCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.actors)
}

func (w *World) Grants() []Grant {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.grants)
}

func (w *World) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.msgs)
}

func (w *World) Sounds() []host.SoundID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.sounds)
}

// Host wires the sandbox as every collaborator; sound may be nil to record cues here
func (w *World) Host(sound host.SoundPlayer) *host.Host {
	if sound == nil {
		sound = w
	}
	return host.New(w, w, w, w, sound)
}
