package store

import (
	"strconv"
	"strings"
)

// World-scoped keys
const (
	KeyDay     = "world.day"
	KeyTick    = "world.tick"
	KeyEndless = "world.endless"
	KeyActive  = "world.active"
	KeySiege   = "world.siege"

	milestonePrefix = "world.milestone."
	playerPrefix    = "player."
)

// Per-player field names
const (
	FieldKills    = "kills"
	FieldArmy     = "army"
	FieldBonus    = "bonus"
	FieldTier     = "tier"
	FieldCamp     = "camp"
	FieldLastCamp = "last_camp"
	FieldLastSeen = "last_seen"
)

// MilestoneKey marks a milestone day as fired
func MilestoneKey(day int) string {
	return milestonePrefix + strconv.Itoa(day)
}

// MilestonePrefix is the prefix shared by all milestone marks
func MilestonePrefix() string {
	return milestonePrefix
}

// PlayerKey builds a per-player key
func PlayerKey(playerID, field string) string {
	return playerPrefix + playerID + "." + field
}

// PlayerFieldPrefix is the prefix of every player's copy of field, used to scan records
func PlayerFieldPrefix() string {
	return playerPrefix
}

// SplitPlayerKey extracts player id and field; ok is false for non-player keys
// Player ids may contain dots, so the field is taken from the last segment
func SplitPlayerKey(key string) (playerID, field string, ok bool) {
	rest, found := strings.CutPrefix(key, playerPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
