package host

import (
	"fmt"
	"log/slog"
)

// Host bundles the collaborators and isolates the core from their failures
// Fire-and-forget calls log and swallow errors and panics; Spawn converts panics to errors
type Host struct {
	World    World
	Roster   Roster
	Rewarder Rewarder
	Messages Messenger
	Sound    SoundPlayer

	log *slog.Logger
}

// New wires collaborators; a nil Sound is replaced by a silent player
func New(w World, r Roster, rw Rewarder, m Messenger, s SoundPlayer) *Host {
	if s == nil {
		s = Silent{}
	}
	return &Host{
		World:    w,
		Roster:   r,
		Rewarder: rw,
		Messages: m,
		Sound:    s,
		log:      slog.With("component", "host"),
	}
}

// guard runs fn, converting a panic into an error
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn()
}

// Spawn requests an actor; failure is returned for the caller's bookkeeping
func (h *Host) Spawn(typeID string, at Location, owner string) (ActorHandle, error) {
	var handle ActorHandle
	err := guard("spawn", func() error {
		var err error
		handle, err = h.World.Spawn(typeID, at, owner)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("spawn %s at %s: %w", typeID, at, err)
	}
	return handle, nil
}

// Count returns the live actor count, or ok=false when the host could not answer
func (h *Host) Count(dimension, owner string) (int, bool) {
	var n int
	err := guard("count", func() error {
		var err error
		n, err = h.World.CountActors(dimension, owner)
		return err
	})
	if err != nil {
		h.log.Warn("count actors failed", "dimension", dimension, "owner", owner, "error", err)
		return 0, false
	}
	return n, true
}

// List returns live actor handles; failure yields an empty list
func (h *Host) List(dimension, owner string) []ActorHandle {
	var out []ActorHandle
	err := guard("list", func() error {
		var err error
		out, err = h.World.ListActors(dimension, owner)
		return err
	})
	if err != nil {
		h.log.Warn("list actors failed", "dimension", dimension, "owner", owner, "error", err)
		return nil
	}
	return out
}

// Remove despawns an actor; the error is returned so cleanup queues can count failures
func (h *Host) Remove(a ActorHandle) error {
	return guard("remove", func() error { return h.World.Remove(a) })
}

// ApplyBundle swaps capability bundles, logging failure
func (h *Host) ApplyBundle(a ActorHandle, add, remove string) bool {
	if err := guard("bundle", func() error { return h.World.ApplyBundle(a, add, remove) }); err != nil {
		h.log.Warn("apply bundle failed", "actor", a, "add", add, "remove", remove, "error", err)
		return false
	}
	return true
}

// Players returns the online roster, empty on failure
func (h *Host) Players() []Player {
	var out []Player
	if err := guard("roster", func() error { out = h.Roster.Players(); return nil }); err != nil {
		h.log.Warn("roster read failed", "error", err)
		return nil
	}
	return out
}

// Lookup resolves a player id against the live roster
func (h *Host) Lookup(id string) (Player, bool) {
	var (
		p  Player
		ok bool
	)
	if err := guard("lookup", func() error { p, ok = h.Roster.Lookup(id); return nil }); err != nil {
		h.log.Warn("roster lookup failed", "player", id, "error", err)
		return Player{}, false
	}
	return p, ok
}

// Grant gives a reward, logging failure
func (h *Host) Grant(playerID, itemID string, count int) {
	if err := guard("grant", func() error { return h.Rewarder.Grant(playerID, itemID, count) }); err != nil {
		h.log.Warn("grant reward failed", "player", playerID, "item", itemID, "count", count, "error", err)
	}
}

// Send delivers a chat message, logging failure
func (h *Host) Send(playerID, text string) {
	if err := guard("send", func() error { return h.Messages.Send(playerID, text) }); err != nil {
		h.log.Warn("send message failed", "player", playerID, "error", err)
	}
}

// Title shows a title, logging failure
func (h *Host) Title(playerID, title, subtitle string) {
	if err := guard("title", func() error { return h.Messages.Title(playerID, title, subtitle) }); err != nil {
		h.log.Warn("set title failed", "player", playerID, "error", err)
	}
}

// ActionBar pushes HUD text, reporting success so the HUD can retry on the next change
func (h *Host) ActionBar(playerID, text string) bool {
	if err := guard("actionbar", func() error { return h.Messages.ActionBar(playerID, text) }); err != nil {
		h.log.Debug("action bar push failed", "player", playerID, "error", err)
		return false
	}
	return true
}

// Play plays a sound cue, logging failure
func (h *Host) Play(playerID string, id SoundID) {
	if err := guard("sound", func() error { return h.Sound.Play(playerID, id) }); err != nil {
		h.log.Debug("play sound failed", "player", playerID, "sound", id, "error", err)
	}
}

// Silent is a SoundPlayer that plays nothing
type Silent struct{}

func (Silent) Play(string, SoundID) error { return nil }
