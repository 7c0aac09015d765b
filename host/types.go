// Package host declares the collaborators the campaign core calls outward into:
// actor spawning, rewards, messaging and sound. All are fallible and non-blocking
package host

import (
	"fmt"
	"math"
)

// Everyone addresses a message or sound to every online player
const Everyone = "*"

// Location is a point in a host dimension
type Location struct {
	Dimension string  `json:"dimension"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// Offset returns the location shifted on the horizontal plane
func (l Location) Offset(dx, dz float64) Location {
	l.X += dx
	l.Z += dz
	return l
}

// Ring returns the i-th of n points on a horizontal circle of radius r around l
func (l Location) Ring(i, n int, r float64) Location {
	if n <= 0 {
		return l
	}
	a := 2 * math.Pi * float64(i%n) / float64(n)
	return l.Offset(r*math.Cos(a), r*math.Sin(a))
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.0f,%.0f,%.0f)", l.Dimension, l.X, l.Y, l.Z)
}

// ActorHandle is an opaque host identifier for a spawned actor
type ActorHandle string

// Player is a roster entry resolved at the moment it is used
type Player struct {
	ID       string
	Name     string
	Location Location
}

// SoundID names a sound cue
type SoundID string

const (
	SoundMilestone    SoundID = "mk.milestone"
	SoundCampSpawn    SoundID = "mk.camp.horn"
	SoundCampClear    SoundID = "mk.camp.clear"
	SoundSiegeStart   SoundID = "mk.siege.start"
	SoundWave         SoundID = "mk.siege.wave"
	SoundBossPhase    SoundID = "mk.boss.phase"
	SoundSiegeVictory SoundID = "mk.siege.victory"
	SoundSiegeDefeat  SoundID = "mk.siege.defeat"
)

// World spawns, counts and removes actors
type World interface {
	// Spawn places typeID at the location, tagging it with owner
	Spawn(typeID string, at Location, owner string) (ActorHandle, error)

	// CountActors counts live actors tagged with owner in loaded regions of dimension
	CountActors(dimension, owner string) (int, error)

	// ListActors returns handles of live actors tagged with owner in dimension
	ListActors(dimension, owner string) ([]ActorHandle, error)

	// Remove despawns an actor without drops
	Remove(h ActorHandle) error

	// ApplyBundle swaps one capability bundle on an actor for another
	ApplyBundle(h ActorHandle, add, remove string) error
}

// Roster reports online players
type Roster interface {
	Players() []Player
	Lookup(id string) (Player, bool)
}

// Rewarder grants items to a player
type Rewarder interface {
	Grant(playerID, itemID string, count int) error
}

// Messenger delivers chat, title and action bar text
type Messenger interface {
	Send(playerID, text string) error
	Title(playerID, title, subtitle string) error
	ActionBar(playerID, text string) error
}

// SoundPlayer plays a cue for a player or Everyone
type SoundPlayer interface {
	Play(playerID string, id SoundID) error
}
