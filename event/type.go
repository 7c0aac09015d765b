package event

// EventType represents the type of campaign event
type EventType int

const (
	// EventDayAdvanced signals a new in-game day
	// Trigger: GameClock rollover and SetDay | Payload: *DayAdvancedPayload
	EventDayAdvanced EventType = iota

	// EventActorDied reports an actor death observed by the host
	// Trigger: host | Consumer: CampDirector, SiegeDirector | Payload: *ActorDiedPayload
	EventActorDied

	// EventPlayerJoined reports a player connecting
	// Trigger: host | Consumer: CampDirector, HUD | Payload: *PlayerPayload
	EventPlayerJoined

	// EventPlayerLeft reports a player disconnecting
	// Trigger: host | Consumer: CampDirector, HUD | Payload: *PlayerPayload
	EventPlayerLeft

	// EventBossHealthChanged reports the siege boss health fraction
	// Trigger: host | Consumer: SiegeDirector | Payload: *BossHealthPayload
	EventBossHealthChanged
)

var typeNames = map[EventType]string{
	EventDayAdvanced:       "day-advanced",
	EventActorDied:         "actor-died",
	EventPlayerJoined:      "player-joined",
	EventPlayerLeft:        "player-left",
	EventBossHealthChanged: "boss-health-changed",
}

func (t EventType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// GameEvent is a routed event with its typed payload
type GameEvent struct {
	Type    EventType
	Payload any
}
