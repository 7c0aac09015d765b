package event

import "github.com/lixenwraith/mega-knights/host"

// DayAdvancedPayload carries the new current day
type DayAdvancedPayload struct {
	Day int
}

// ActorDiedPayload identifies a dead actor by type and owner tag
type ActorDiedPayload struct {
	TypeID  string
	OwnerID string
	Handle  host.ActorHandle
}

// PlayerPayload identifies a joining or leaving player
type PlayerPayload struct {
	PlayerID string
	Initial  bool // first join of this player in the world
}

// BossHealthPayload carries the boss health as a fraction of maximum
type BossHealthPayload struct {
	Fraction float64
}

// Constructors used by host adapters

func DayAdvanced(day int) GameEvent {
	return GameEvent{Type: EventDayAdvanced, Payload: &DayAdvancedPayload{Day: day}}
}

func ActorDied(typeID, ownerID string, h host.ActorHandle) GameEvent {
	return GameEvent{Type: EventActorDied, Payload: &ActorDiedPayload{TypeID: typeID, OwnerID: ownerID, Handle: h}}
}

func PlayerJoined(playerID string, initial bool) GameEvent {
	return GameEvent{Type: EventPlayerJoined, Payload: &PlayerPayload{PlayerID: playerID, Initial: initial}}
}

func PlayerLeft(playerID string) GameEvent {
	return GameEvent{Type: EventPlayerLeft, Payload: &PlayerPayload{PlayerID: playerID}}
}

func BossHealthChanged(fraction float64) GameEvent {
	return GameEvent{Type: EventBossHealthChanged, Payload: &BossHealthPayload{Fraction: fraction}}
}
